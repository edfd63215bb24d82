package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"precinctwatch/internal/audittemplates"
	"precinctwatch/internal/caching"
	"precinctwatch/internal/common"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"

	"github.com/google/uuid"
)

const auditListLimit = 50

type AuditRange string

const (
	RangeThisMonth AuditRange = "this_month"
	RangeLast30    AuditRange = "last_30"
	RangeAll       AuditRange = "all"
)

// ParseAuditRange maps unknown and empty values to RangeAll.
func ParseAuditRange(raw string) AuditRange {
	switch r := AuditRange(raw); r {
	case RangeThisMonth, RangeLast30:
		return r
	default:
		return RangeAll
	}
}

type AuditList struct {
	Range  AuditRange              `json:"range"`
	Total  int                     `json:"total"`
	Audits []*models.AuditListItem `json:"audits"`
}

type AuditDetail struct {
	Audit            *models.Audit         `json:"audit"`
	Template         *models.AuditTemplate `json:"template"`
	MissingResponses []string              `json:"missing_required_responses"`
}

type CreateAuditRequest struct {
	StoreID    uuid.UUID `json:"store_id"`
	TemplateID string    `json:"template_id"`
	AuditDate  *string   `json:"audit_date"`
}

type AuditService interface {
	ListTemplates(ctx context.Context) []*models.AuditTemplate
	ListAudits(ctx context.Context, r AuditRange) (*AuditList, error)
	GetAudit(ctx context.Context, id uuid.UUID) (*AuditDetail, error)
	CreateDraft(ctx context.Context, actor *models.User, req *CreateAuditRequest) (*models.Audit, error)
	SaveResponses(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error)
	Submit(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error)
}

type auditService struct {
	engine    *compliance.Engine
	auditRepo repositories.AuditRepository
	storeRepo repositories.StoreRepository
	templates *audittemplates.Catalog
	cache     caching.CacheService
	log       logger.Logger
}

func NewAuditService(engine *compliance.Engine, auditRepo repositories.AuditRepository, storeRepo repositories.StoreRepository, templates *audittemplates.Catalog, cache caching.CacheService, log logger.Logger) AuditService {
	return &auditService{
		engine:    engine,
		auditRepo: auditRepo,
		storeRepo: storeRepo,
		templates: templates,
		cache:     cache,
		log:       log,
	}
}

func (s *auditService) ListTemplates(ctx context.Context) []*models.AuditTemplate {
	return s.templates.Active()
}

func (s *auditService) ListAudits(ctx context.Context, r AuditRange) (*AuditList, error) {
	now := s.engine.Now()
	var since *time.Time
	switch r {
	case RangeThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		since = &start
	case RangeLast30:
		start := now.AddDate(0, 0, -30)
		since = &start
	}

	audits, total, err := s.auditRepo.List(ctx, since, auditListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	nameTemplates(audits, s.templates)
	return &AuditList{Range: r, Total: total, Audits: audits}, nil
}

func (s *auditService) GetAudit(ctx context.Context, id uuid.UUID) (*AuditDetail, error) {
	audit, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "audit")
	}
	detail := &AuditDetail{Audit: audit, MissingResponses: []string{}}
	if tmpl, err := s.templates.Get(audit.TemplateID); err == nil {
		detail.Template = tmpl
		detail.MissingResponses = compliance.MissingRequiredResponses(tmpl.Items(), audit.Responses)
	}
	return detail, nil
}

func (s *auditService) CreateDraft(ctx context.Context, actor *models.User, req *CreateAuditRequest) (*models.Audit, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	if req == nil || req.StoreID == uuid.Nil {
		return nil, invalid("store_id", "store_id is required")
	}

	store, err := s.storeRepo.GetByID(ctx, req.StoreID)
	if err != nil {
		return nil, fromRepo(err, "store")
	}

	var tmpl *models.AuditTemplate
	if req.TemplateID == "" {
		t, ok := s.templates.ForCategory(store.Category)
		if !ok {
			return nil, invalid("template_id", "no active template for category %s", store.Category)
		}
		tmpl = t
	} else {
		tmpl, err = s.templates.Get(req.TemplateID)
		if err != nil {
			return nil, invalid("template_id", "unknown template %q", req.TemplateID)
		}
	}
	if !tmpl.Active {
		return nil, invalid("template_id", "template %q is not active", tmpl.ID)
	}
	if tmpl.Category != store.Category {
		return nil, invalid("template_id", "template %q is for %s stores", tmpl.ID, tmpl.Category)
	}

	auditDate := s.engine.Now()
	if req.AuditDate != nil {
		d, err := common.ParseDate(req.AuditDate, "audit_date")
		if err != nil {
			return nil, invalid("audit_date", "%v", err)
		}
		if d != nil {
			auditDate = *d
		}
	}

	audit := &models.Audit{
		ID:            uuid.New(),
		StoreID:       store.ID,
		TemplateID:    tmpl.ID,
		ConductedByID: actor.ID,
		AuditDate:     auditDate,
		Status:        models.AuditDraft,
		Responses:     map[string]models.ItemResponse{},
	}
	if err := s.auditRepo.Create(ctx, audit); err != nil {
		return nil, fromRepo(err, "audit")
	}
	s.invalidate(ctx)
	s.log.Info("Audit draft created", map[string]interface{}{
		"audit_id": audit.ID.String(),
		"store_id": store.ID.String(),
		"template": tmpl.ID,
		"user_id":  actor.ID.String(),
	})
	return audit, nil
}

func (s *auditService) SaveResponses(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error) {
	audit, tmpl, err := s.ownDraft(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	merged, err := mergeResponses(tmpl, audit.Responses, responses)
	if err != nil {
		return nil, err
	}
	if err := s.auditRepo.SaveResponses(ctx, id, merged); err != nil {
		return nil, s.draftWriteError(err)
	}
	audit.Responses = merged
	return audit, nil
}

// Submit finalizes the caller's own draft. The score is always derived from the
// responses against the template, never taken from the client.
func (s *auditService) Submit(ctx context.Context, actor *models.User, id uuid.UUID, responses map[string]models.ItemResponse) (*models.Audit, error) {
	audit, tmpl, err := s.ownDraft(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	merged, err := mergeResponses(tmpl, audit.Responses, responses)
	if err != nil {
		return nil, err
	}

	score := compliance.AuditScore(tmpl.Items(), merged)
	if err := s.auditRepo.Submit(ctx, id, score, merged); err != nil {
		return nil, s.draftWriteError(err)
	}

	audit.Responses = merged
	audit.Score = &score
	audit.Status = models.AuditSubmitted
	s.invalidate(ctx)
	s.log.Info("Audit submitted", map[string]interface{}{"audit_id": id.String(), "score": score})
	return audit, nil
}

func (s *auditService) ownDraft(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Audit, *models.AuditTemplate, error) {
	if err := requireEditor(actor); err != nil {
		return nil, nil, err
	}
	audit, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fromRepo(err, "audit")
	}
	if audit.ConductedByID != actor.ID {
		return nil, nil, fmt.Errorf("audit belongs to another user: %w", ErrForbidden)
	}
	if audit.Status != models.AuditDraft {
		return nil, nil, fmt.Errorf("audit is %s: %w", audit.Status, ErrInvalidState)
	}
	tmpl, err := s.templates.Get(audit.TemplateID)
	if err != nil {
		return nil, nil, fmt.Errorf("audit template %q: %w", audit.TemplateID, ErrInvalidState)
	}
	return audit, tmpl, nil
}

// draftWriteError reports a lost race: the draft was submitted or removed between
// the read and the conditional update.
func (s *auditService) draftWriteError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("audit is no longer a draft: %w", ErrInvalidState)
	}
	return fmt.Errorf("failed to save audit: %w", err)
}

func (s *auditService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePayloads(ctx); err != nil {
		s.log.Warn("Failed to invalidate dashboard caches", map[string]interface{}{"error": err.Error()})
	}
}

func requireEditor(actor *models.User) error {
	if actor == nil {
		return ErrUnauthorized
	}
	if !actor.Role.CanEdit() {
		return fmt.Errorf("role %s cannot edit audits: %w", actor.Role, ErrForbidden)
	}
	return nil
}

// mergeResponses overlays updates on existing after checking every key names a
// template item and every value is a known answer.
func mergeResponses(tmpl *models.AuditTemplate, existing, updates map[string]models.ItemResponse) (map[string]models.ItemResponse, error) {
	known := make(map[string]bool)
	for _, item := range tmpl.Items() {
		known[item.ID] = true
	}

	merged := make(map[string]models.ItemResponse, len(existing)+len(updates))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		if !known[k] {
			return nil, invalid("responses", "unknown checklist item %q", k)
		}
		if !v.Valid() {
			return nil, invalid("responses", "item %q has invalid answer %q", k, v)
		}
		merged[k] = v
	}
	return merged, nil
}
