package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"precinctwatch/internal/common"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func withUser(c echo.Context, user *models.User) echo.Context {
	req := c.Request()
	c.SetRequest(req.WithContext(common.WithSession(req.Context(), user.ID, user.Role, "sess-1")))
	return c
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"field error", &services.FieldError{Field: "name", Message: "name is required"}, http.StatusBadRequest, `"name":"name is required"`},
		{"invalid input", fmt.Errorf("bad range: %w", services.ErrInvalidInput), http.StatusBadRequest, `"CLIENT_ERROR"`},
		{"not found", fmt.Errorf("store: %w", services.ErrNotFound), http.StatusNotFound, `"Store not found"`},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, `"UNAUTHORIZED"`},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, `"FORBIDDEN"`},
		{"conflict", fmt.Errorf("store: %w", services.ErrConflict), http.StatusConflict, `"CONFLICT"`},
		{"invalid state", services.ErrInvalidState, http.StatusConflict, `"CONFLICT"`},
		{"rate limited", services.ErrRateLimited, http.StatusTooManyRequests, `"RATE_LIMITED"`},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, `"Internal server error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "/", "")
			require.NoError(t, writeError(c, logger.NewNoOpLogger(), "Store", tt.err))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "pq:")
		})
	}
}

func TestAuthHandlers_Login(t *testing.T) {
	auth := &MockAuthService{}
	h := NewAuthHandlers(auth, logger.NewNoOpLogger())
	session := &models.SessionResponse{AccessToken: "tok", TokenType: "Bearer", ExpiresIn: 3600}

	auth.On("Login", mock.Anything, "thandi", "192.0.2.1").Return(session, nil).Once()
	auth.On("Login", mock.Anything, "ghost", "192.0.2.1").Return(nil, services.ErrUnauthorized).Once()
	auth.On("Login", mock.Anything, "spammer", "192.0.2.1").Return(nil, services.ErrRateLimited).Once()

	c, rec := newContext(http.MethodPost, "/v1/auth/login", `{"username":"thandi"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"tok"`)

	c, rec = newContext(http.MethodPost, "/v1/auth/login", `{"username":"ghost"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodPost, "/v1/auth/login", `{"username":"spammer"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	c, rec = newContext(http.MethodPost, "/v1/auth/login", `{"username":"  "}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"VALIDATION_ERROR"`)

	c, rec = newContext(http.MethodPost, "/v1/auth/login", `{"username":`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	auth.AssertExpectations(t)
}

func TestAuthHandlers_MeAndLogout(t *testing.T) {
	auth := &MockAuthService{}
	h := NewAuthHandlers(auth, logger.NewNoOpLogger())
	user := &models.User{ID: uuid.New(), Username: "nomsa", Role: models.RoleOfficer, Active: true}
	auth.On("CurrentUser", mock.Anything, user.ID).Return(user, nil).Once()
	auth.On("Logout", mock.Anything, "sess-1").Return(nil).Once()

	c, rec := newContext(http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(withUser(c, user)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"nomsa"`)

	c, rec = newContext(http.MethodPost, "/v1/auth/logout", "")
	require.NoError(t, h.Logout(withUser(c, user)))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	auth.AssertExpectations(t)
}

func TestDashboardHandlers(t *testing.T) {
	dash := &MockDashboardService{}
	exec := &MockExecService{}
	h := NewDashboardHandlers(dash, exec, logger.NewNoOpLogger())

	payload := &services.DashboardPayload{}
	payload.KPIs.TotalStores = 12
	dash.On("GetDashboard", mock.Anything).Return(payload, nil).Once()
	exec.On("GetExecDashboard", mock.Anything, 90).Return(&services.ExecPayload{ExecView: compliance.ExecView{TimeframeDays: 90}}, nil).Once()
	exec.On("GetExecDashboard", mock.Anything, 30).Return(nil, errors.New("redis down and db down")).Once()

	c, rec := newContext(http.MethodGet, "/v1/dashboard", "")
	require.NoError(t, h.Dashboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_stores":12`)

	c, rec = newContext(http.MethodGet, "/v1/exec?timeframe=45", "")
	require.NoError(t, h.Exec(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"timeframe_days":90`)

	c, rec = newContext(http.MethodGet, "/v1/exec?timeframe=30", "")
	require.NoError(t, h.Exec(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	dash.AssertExpectations(t)
	exec.AssertExpectations(t)
}

func TestStoreHandlers_List(t *testing.T) {
	stores := &MockStoreService{}
	h := NewStoreHandlers(stores, logger.NewNoOpLogger())
	opts := compliance.FilterOptions{
		Filter:   compliance.FilterHighRisk,
		Search:   "mall",
		Precinct: "Alfred Mall",
		Category: "FB",
	}
	stores.On("ListFiltered", mock.Anything, opts).Return(&services.StoreList{Filter: compliance.FilterHighRisk, Total: 0, Stores: []services.StoreRow{}}, nil).Once()

	c, rec := newContext(http.MethodGet, "/v1/stores?filter=highrisk&q=mall&precinct=Alfred+Mall&category=FB", "")
	require.NoError(t, h.ListStores(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filter":"highrisk"`)
	stores.AssertExpectations(t)
}

func TestStoreHandlers_GetAndWrite(t *testing.T) {
	stores := &MockStoreService{}
	h := NewStoreHandlers(stores, logger.NewNoOpLogger())
	id := uuid.New()

	stores.On("GetBySlug", mock.Anything, "gone-store").Return(nil, fmt.Errorf("store: %w", services.ErrNotFound)).Once()
	stores.On("Create", mock.Anything, &services.StoreRequest{Code: "am-01", Name: ""}).
		Return(nil, &services.FieldError{Field: "name", Message: "name is required"}).Once()
	stores.On("Update", mock.Anything, id, mock.AnythingOfType("*services.StoreRequest")).Return(&models.Store{ID: id, Name: "Kiosk"}, nil).Once()
	stores.On("Delete", mock.Anything, id).Return(nil).Once()
	stores.On("Deactivate", mock.Anything, id).Return(nil).Once()

	c, rec := newContext(http.MethodGet, "/v1/stores/gone-store", "")
	require.NoError(t, h.GetStore(withParam(c, "slug", "gone-store")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodPost, "/v1/stores", `{"code":"am-01","name":""}`)
	require.NoError(t, h.CreateStore(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"name is required"`)

	c, rec = newContext(http.MethodPut, "/v1/stores/not-a-uuid", `{}`)
	require.NoError(t, h.UpdateStore(withParam(c, "id", "not-a-uuid")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodPut, "/v1/stores/"+id.String(), `{"name":"Kiosk"}`)
	require.NoError(t, h.UpdateStore(withParam(c, "id", id.String())))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/v1/stores/"+id.String()+"/deactivate", "")
	require.NoError(t, h.DeactivateStore(withParam(c, "id", id.String())))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(http.MethodDelete, "/v1/stores/"+id.String(), "")
	require.NoError(t, h.DeleteStore(withParam(c, "id", id.String())))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stores.AssertExpectations(t)
}

func multipartRequest(t *testing.T, target, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="certificate.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPut, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCertificationHandlers_UploadDocument(t *testing.T) {
	stores := &MockStoreService{}
	h := NewCertificationHandlers(stores, logger.NewNoOpLogger())
	id := uuid.New()
	content := []byte("%PDF-1.7 fire safety certificate")

	stores.On("UploadDocument", mock.Anything, id, mock.Anything, int64(len(content)), "application/pdf").
		Return(&models.Certification{ID: id, Type: models.CertFireSafety}, nil).Once()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(multipartRequest(t, "/v1/certifications/"+id.String()+"/document", "application/pdf", content), rec)
	require.NoError(t, h.UploadDocument(withParam(c, "id", id.String())))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec2 := newContext(http.MethodPut, "/v1/certifications/"+id.String()+"/document", `{}`)
	require.NoError(t, h.UploadDocument(withParam(c, "id", id.String())))
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
	assert.Contains(t, rec2.Body.String(), `"file"`)

	stores.AssertExpectations(t)
}

func TestCertificationHandlers_CRUDAndDocumentURL(t *testing.T) {
	stores := &MockStoreService{}
	h := NewCertificationHandlers(stores, logger.NewNoOpLogger())
	storeID := uuid.New()
	certID := uuid.New()
	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	stores.On("AddCertification", mock.Anything, storeID, mock.MatchedBy(func(r *services.CertificationRequest) bool {
		return r.Type == string(models.CertFireSafety) && r.ExpiresAt != nil && *r.ExpiresAt == "2026-03-01"
	})).Return(&models.Certification{ID: certID, StoreID: storeID, Type: models.CertFireSafety, ExpiresAt: &expires}, nil).Once()
	stores.On("UpdateCertification", mock.Anything, certID, mock.Anything).Return(nil, fmt.Errorf("certification: %w", services.ErrNotFound)).Once()
	stores.On("DeleteCertification", mock.Anything, certID).Return(nil).Once()
	stores.On("DocumentURL", mock.Anything, certID).Return(&services.DocumentLink{URL: "https://docs.example/cert.pdf"}, nil).Once()

	c, rec := newContext(http.MethodPost, "/", `{"type":"Fire Safety Certificate","expires_at":"2026-03-01"}`)
	require.NoError(t, h.AddCertification(withParam(c, "id", storeID.String())))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "document_key")

	c, rec = newContext(http.MethodPut, "/", `{"type":"Fire Safety Certificate"}`)
	require.NoError(t, h.UpdateCertification(withParam(c, "id", certID.String())))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Certification not found")

	c, rec = newContext(http.MethodDelete, "/", "")
	require.NoError(t, h.DeleteCertification(withParam(c, "id", certID.String())))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(http.MethodGet, "/", "")
	require.NoError(t, h.DocumentURL(withParam(c, "id", certID.String())))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cert.pdf")

	stores.AssertExpectations(t)
}

func TestAuditHandlers_CreateAndSubmit(t *testing.T) {
	audits := &MockAuditService{}
	auth := &MockAuthService{}
	h := NewAuditHandlers(audits, auth, logger.NewNoOpLogger())
	officer := &models.User{ID: uuid.New(), Username: "nomsa", Role: models.RoleOfficer, Active: true}
	storeID := uuid.New()
	auditID := uuid.New()

	auth.On("CurrentUser", mock.Anything, officer.ID).Return(officer, nil)
	audits.On("CreateDraft", mock.Anything, officer, &services.CreateAuditRequest{StoreID: storeID}).
		Return(&models.Audit{ID: auditID, StoreID: storeID, Status: models.AuditDraft}, nil).Once()
	audits.On("Submit", mock.Anything, officer, auditID, map[string]models.ItemResponse(nil)).
		Return(nil, services.ErrInvalidState).Once()
	audits.On("SaveResponses", mock.Anything, officer, auditID, map[string]models.ItemResponse{"first_aid": models.ResponseCompliant}).
		Return(&models.Audit{ID: auditID, Status: models.AuditDraft}, nil).Once()

	c, rec := newContext(http.MethodPost, "/v1/audits", `{}`)
	require.NoError(t, h.CreateAudit(withUser(c, officer)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store_id"`)

	c, rec = newContext(http.MethodPost, "/v1/audits", fmt.Sprintf(`{"store_id":%q}`, storeID))
	require.NoError(t, h.CreateAudit(withUser(c, officer)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newContext(http.MethodPut, "/", `{"responses":{"first_aid":"compliant"}}`)
	require.NoError(t, h.SaveResponses(withParam(withUser(c, officer), "id", auditID.String())))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodPost, "/", "")
	require.NoError(t, h.SubmitAudit(withParam(withUser(c, officer), "id", auditID.String())))
	assert.Equal(t, http.StatusConflict, rec.Code)

	audits.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestAuditHandlers_ReadsWithoutActor(t *testing.T) {
	audits := &MockAuditService{}
	h := NewAuditHandlers(audits, &MockAuthService{}, logger.NewNoOpLogger())
	id := uuid.New()

	audits.On("ListTemplates", mock.Anything).Return([]*models.AuditTemplate{{ID: "retail-floor-v1"}}).Once()
	audits.On("ListAudits", mock.Anything, services.RangeLast30).Return(&services.AuditList{Range: services.RangeLast30, Audits: []*models.AuditListItem{}}, nil).Once()
	audits.On("GetAudit", mock.Anything, id).Return(&services.AuditDetail{Audit: &models.Audit{ID: id}, MissingResponses: []string{"first_aid"}}, nil).Once()

	c, rec := newContext(http.MethodGet, "/v1/audits/templates", "")
	require.NoError(t, h.ListTemplates(c))
	assert.Contains(t, rec.Body.String(), `"count":1`)

	c, rec = newContext(http.MethodGet, "/v1/audits?range=last_30", "")
	require.NoError(t, h.ListAudits(c))
	assert.Contains(t, rec.Body.String(), `"range":"last_30"`)

	c, rec = newContext(http.MethodGet, "/", "")
	require.NoError(t, h.GetAudit(withParam(c, "id", id.String())))
	assert.Contains(t, rec.Body.String(), `"missing_required_responses":["first_aid"]`)

	c, rec = newContext(http.MethodPost, "/v1/audits", `{"store_id":"`+uuid.NewString()+`"}`)
	require.NoError(t, h.CreateAudit(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	audits.AssertExpectations(t)
}

func TestHealthHandlers(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	healthy := NewHealthHandlers(up, up, up, map[string]interface{}{"environment": "test"}, nil, "1.0.0")
	storageDown := NewHealthHandlers(up, up, down, nil, nil, "1.0.0")
	dbDown := NewHealthHandlers(down, up, up, nil, nil, "1.0.0")

	c, rec := newContext(http.MethodGet, "/health", "")
	require.NoError(t, healthy.HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	c, rec = newContext(http.MethodGet, "/health", "")
	require.NoError(t, storageDown.HealthCheck(c))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"unhealthy"`)

	c, rec = newContext(http.MethodGet, "/health/ready", "")
	require.NoError(t, storageDown.ReadinessCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/health/ready", "")
	require.NoError(t, dbDown.ReadinessCheck(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c, rec = newContext(http.MethodGet, "/health/details", "")
	require.NoError(t, healthy.DetailedHealthCheck(c))
	assert.Contains(t, rec.Body.String(), `"environment":"test"`)
	assert.Contains(t, rec.Body.String(), `"goroutines"`)
}

func TestDetailedHealthCheck_ReadsJobStatusPerRequest(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	status := map[string]interface{}{"dashboard-refresh": map[string]interface{}{}}
	h := NewHealthHandlers(up, up, up, nil, func() map[string]interface{} {
		return map[string]interface{}{"total_jobs": 1, "jobs": status}
	}, "1.0.0")

	c, rec := newContext(http.MethodGet, "/health/details", "")
	require.NoError(t, h.DetailedHealthCheck(c))
	assert.Contains(t, rec.Body.String(), `"total_jobs":1`)
	assert.NotContains(t, rec.Body.String(), "last_run")

	status["dashboard-refresh"] = map[string]interface{}{"last_run": "2025-06-01T12:00:00Z"}

	c, rec = newContext(http.MethodGet, "/health/details", "")
	require.NoError(t, h.DetailedHealthCheck(c))
	assert.Contains(t, rec.Body.String(), `"last_run":"2025-06-01T12:00:00Z"`)
}
