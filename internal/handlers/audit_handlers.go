package handlers

import (
	"net/http"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditHandlers handles checklist templates and audits
type AuditHandlers struct {
	auditService services.AuditService
	authService  services.AuthService
	log          logger.Logger
}

func NewAuditHandlers(auditService services.AuditService, authService services.AuthService, log logger.Logger) *AuditHandlers {
	return &AuditHandlers{
		auditService: auditService,
		authService:  authService,
		log:          log,
	}
}

type responsesRequest struct {
	Responses map[string]models.ItemResponse `json:"responses"`
}

func (h *AuditHandlers) ListTemplates(c echo.Context) error {
	templates := h.auditService.ListTemplates(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// ListAudits handles GET /audits?range=this_month|last_30|all
func (h *AuditHandlers) ListAudits(c echo.Context) error {
	list, err := h.auditService.ListAudits(c.Request().Context(), services.ParseAuditRange(c.QueryParam("range")))
	if err != nil {
		return writeError(c, h.log, "Audit", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AuditHandlers) GetAudit(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	detail, err := h.auditService.GetAudit(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, "Audit", err)
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateAudit starts a draft conducted by the caller.
func (h *AuditHandlers) CreateAudit(c echo.Context) error {
	var req services.CreateAuditRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}
	if req.StoreID == uuid.Nil {
		return common.SendValidationError(c, "store_id", "store_id is required")
	}

	user, err := actor(c, h.authService)
	if err != nil {
		return writeError(c, h.log, "User", err)
	}
	audit, err := h.auditService.CreateDraft(c.Request().Context(), user, &req)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusCreated, audit)
}

// SaveResponses merges answers into the caller's own draft.
func (h *AuditHandlers) SaveResponses(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req responsesRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	user, err := actor(c, h.authService)
	if err != nil {
		return writeError(c, h.log, "User", err)
	}
	audit, err := h.auditService.SaveResponses(c.Request().Context(), user, id, req.Responses)
	if err != nil {
		return writeError(c, h.log, "Audit", err)
	}
	return c.JSON(http.StatusOK, audit)
}

// SubmitAudit scores and locks the caller's draft. A body is optional; any
// responses in it are merged before scoring.
func (h *AuditHandlers) SubmitAudit(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req responsesRequest
	if c.Request().ContentLength > 0 {
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}
	}

	user, err := actor(c, h.authService)
	if err != nil {
		return writeError(c, h.log, "User", err)
	}
	audit, err := h.auditService.Submit(c.Request().Context(), user, id, req.Responses)
	if err != nil {
		return writeError(c, h.log, "Audit", err)
	}
	return c.JSON(http.StatusOK, audit)
}
