package handlers

import (
	"context"
	"io"

	"precinctwatch/internal/compliance"
	"precinctwatch/internal/models"
	"precinctwatch/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockStoreService struct {
	mock.Mock
}

func (m *MockStoreService) ListFiltered(ctx context.Context, opts compliance.FilterOptions) (*services.StoreList, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StoreList), args.Error(1)
}

func (m *MockStoreService) GetBySlug(ctx context.Context, slug string) (*compliance.StoreDetail, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compliance.StoreDetail), args.Error(1)
}

func (m *MockStoreService) Create(ctx context.Context, req *services.StoreRequest) (*models.Store, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreService) Update(ctx context.Context, id uuid.UUID, req *services.StoreRequest) (*models.Store, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Store), args.Error(1)
}

func (m *MockStoreService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStoreService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStoreService) AddCertification(ctx context.Context, storeID uuid.UUID, req *services.CertificationRequest) (*models.Certification, error) {
	args := m.Called(ctx, storeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Certification), args.Error(1)
}

func (m *MockStoreService) UpdateCertification(ctx context.Context, id uuid.UUID, req *services.CertificationRequest) (*models.Certification, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Certification), args.Error(1)
}

func (m *MockStoreService) DeleteCertification(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStoreService) UploadDocument(ctx context.Context, certID uuid.UUID, reader io.Reader, size int64, contentType string) (*models.Certification, error) {
	args := m.Called(ctx, certID, reader, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Certification), args.Error(1)
}

func (m *MockStoreService) DocumentURL(ctx context.Context, certID uuid.UUID) (*services.DocumentLink, error) {
	args := m.Called(ctx, certID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DocumentLink), args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) ListTemplates(ctx context.Context) []*models.AuditTemplate {
	args := m.Called(ctx)
	return args.Get(0).([]*models.AuditTemplate)
}

func (m *MockAuditService) ListAudits(ctx context.Context, r services.AuditRange) (*services.AuditList, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuditList), args.Error(1)
}

func (m *MockAuditService) GetAudit(ctx context.Context, id uuid.UUID) (*services.AuditDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AuditDetail), args.Error(1)
}

func (m *MockAuditService) CreateDraft(ctx context.Context, actor *models.User, req *services.CreateAuditRequest) (*models.Audit, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Audit), args.Error(1)
}

func (m *MockAuditService) SaveResponses(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error) {
	args := m.Called(ctx, actor, id, responses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Audit), args.Error(1)
}

func (m *MockAuditService) Submit(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error) {
	args := m.Called(ctx, actor, id, responses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Audit), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, clientKey string) (*models.SessionResponse, error) {
	args := m.Called(ctx, username, clientKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockAuthService) ValidateSession(ctx context.Context, claims *services.SessionClaims) (uuid.UUID, error) {
	args := m.Called(ctx, claims)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) ParseToken(token string) (*services.SessionClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionClaims), args.Error(1)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetDashboard(ctx context.Context) (*services.DashboardPayload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardPayload), args.Error(1)
}

func (m *MockDashboardService) RefreshDashboard(ctx context.Context) (*services.DashboardPayload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardPayload), args.Error(1)
}

type MockExecService struct {
	mock.Mock
}

func (m *MockExecService) GetExecDashboard(ctx context.Context, timeframeDays int) (*services.ExecPayload, error) {
	args := m.Called(ctx, timeframeDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExecPayload), args.Error(1)
}

func (m *MockExecService) RefreshExecDashboard(ctx context.Context, timeframeDays int) (*services.ExecPayload, error) {
	args := m.Called(ctx, timeframeDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExecPayload), args.Error(1)
}
