package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"precinctwatch/internal/audittemplates"
	"precinctwatch/internal/caching"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/metrics"
	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"
)

const recentAuditLimit = 8

type DashboardKPIs struct {
	compliance.PortfolioSummary
	AuditsThisMonth int `json:"audits_this_month"`
}

type DashboardPayload struct {
	KPIs                 DashboardKPIs                `json:"kpis"`
	HighestRiskPrecincts []compliance.PrecinctSummary `json:"highest_risk_precincts"`
	TopRiskStores        []compliance.StoreScore      `json:"top_risk_stores"`
	RecentAudits         []*models.AuditListItem      `json:"recent_audits"`
	GeneratedAt          time.Time                    `json:"generated_at"`
}

type ExecPayload struct {
	compliance.ExecView
	GeneratedAt time.Time `json:"generated_at"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context) (*DashboardPayload, error)
	// RefreshDashboard rebuilds the payload and overwrites the cached copy.
	RefreshDashboard(ctx context.Context) (*DashboardPayload, error)
}

type ExecService interface {
	GetExecDashboard(ctx context.Context, timeframeDays int) (*ExecPayload, error)
	RefreshExecDashboard(ctx context.Context, timeframeDays int) (*ExecPayload, error)
}

type dashboardService struct {
	engine    *compliance.Engine
	storeRepo repositories.StoreRepository
	auditRepo repositories.AuditRepository
	templates *audittemplates.Catalog
	cache     caching.CacheService
	ttl       time.Duration
	log       logger.Logger
}

func NewDashboardService(engine *compliance.Engine, storeRepo repositories.StoreRepository, auditRepo repositories.AuditRepository, templates *audittemplates.Catalog, cache caching.CacheService, ttl time.Duration, log logger.Logger) DashboardService {
	return &dashboardService{
		engine:    engine,
		storeRepo: storeRepo,
		auditRepo: auditRepo,
		templates: templates,
		cache:     cache,
		ttl:       ttl,
		log:       log,
	}
}

func (s *dashboardService) GetDashboard(ctx context.Context) (*DashboardPayload, error) {
	return cachedPayload(ctx, s.cache, s.log, caching.KindDashboard, caching.KindDashboard, s.ttl, s.build)
}

func (s *dashboardService) RefreshDashboard(ctx context.Context) (*DashboardPayload, error) {
	payload, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	storePayload(ctx, s.cache, s.log, caching.KindDashboard, payload, s.ttl)
	return payload, nil
}

func (s *dashboardService) build(ctx context.Context) (*DashboardPayload, error) {
	start := time.Now()
	payload, err := s.compute(ctx)
	observeBuild(caching.KindDashboard, start, err)
	if err != nil {
		return nil, err
	}
	metrics.PortfolioCompliance.Set(payload.KPIs.AvgCompliance)
	metrics.HighRiskStores.Set(float64(payload.KPIs.HighRiskStores))
	return payload, nil
}

func (s *dashboardService) compute(ctx context.Context) (*DashboardPayload, error) {
	stores, err := s.storeRepo.ListWithCertifications(ctx, models.StoreListFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	view := s.engine.Dashboard(stores)

	now := s.engine.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	auditCount, err := s.auditRepo.CountSince(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count audits: %w", err)
	}

	recent, _, err := s.auditRepo.List(ctx, nil, recentAuditLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent audits: %w", err)
	}
	nameTemplates(recent, s.templates)

	return &DashboardPayload{
		KPIs: DashboardKPIs{
			PortfolioSummary: view.Summary,
			AuditsThisMonth:  auditCount,
		},
		HighestRiskPrecincts: view.HighestRiskPrecincts,
		TopRiskStores:        view.TopRiskStores,
		RecentAudits:         recent,
		GeneratedAt:          now,
	}, nil
}

type execService struct {
	engine    *compliance.Engine
	storeRepo repositories.StoreRepository
	cache     caching.CacheService
	ttl       time.Duration
	log       logger.Logger
}

func NewExecService(engine *compliance.Engine, storeRepo repositories.StoreRepository, cache caching.CacheService, ttl time.Duration, log logger.Logger) ExecService {
	return &execService{
		engine:    engine,
		storeRepo: storeRepo,
		cache:     cache,
		ttl:       ttl,
		log:       log,
	}
}

func execKind(days int) string {
	return caching.KindExec + ":" + strconv.Itoa(days)
}

// normalizeTimeframe maps anything outside 30/90/180 to the 90-day default.
func normalizeTimeframe(days int) int {
	return compliance.ParseTimeframe(strconv.Itoa(days))
}

func (s *execService) GetExecDashboard(ctx context.Context, timeframeDays int) (*ExecPayload, error) {
	days := normalizeTimeframe(timeframeDays)
	return cachedPayload(ctx, s.cache, s.log, caching.KindExec, execKind(days), s.ttl, func(ctx context.Context) (*ExecPayload, error) {
		return s.build(ctx, days)
	})
}

func (s *execService) RefreshExecDashboard(ctx context.Context, timeframeDays int) (*ExecPayload, error) {
	days := normalizeTimeframe(timeframeDays)
	payload, err := s.build(ctx, days)
	if err != nil {
		return nil, err
	}
	storePayload(ctx, s.cache, s.log, execKind(days), payload, s.ttl)
	return payload, nil
}

func (s *execService) build(ctx context.Context, days int) (*ExecPayload, error) {
	start := time.Now()
	stores, err := s.storeRepo.ListWithCertifications(ctx, models.StoreListFilter{ActiveOnly: true})
	if err != nil {
		err = fmt.Errorf("failed to load stores: %w", err)
		observeBuild(caching.KindExec, start, err)
		return nil, err
	}
	payload := &ExecPayload{
		ExecView:    s.engine.Executive(stores, days),
		GeneratedAt: s.engine.Now(),
	}
	observeBuild(caching.KindExec, start, nil)
	return payload, nil
}

// cachedPayload serves kind from the cache, building and storing it on a miss.
// Cache failures are logged and never fail the request.
func cachedPayload[T any](ctx context.Context, cache caching.CacheService, log logger.Logger, metricKind, kind string, ttl time.Duration, build func(context.Context) (*T, error)) (*T, error) {
	if cache != nil {
		var cached T
		hit, err := cache.GetPayload(ctx, kind, &cached)
		switch {
		case err != nil:
			metrics.CacheRequests.WithLabelValues(metricKind, metrics.CacheError).Inc()
			log.Warn("Payload cache read failed", map[string]interface{}{"kind": kind, "error": err.Error()})
		case hit:
			metrics.CacheRequests.WithLabelValues(metricKind, metrics.CacheHit).Inc()
			return &cached, nil
		default:
			metrics.CacheRequests.WithLabelValues(metricKind, metrics.CacheMiss).Inc()
		}
	}

	payload, err := build(ctx)
	if err != nil {
		return nil, err
	}
	storePayload(ctx, cache, log, kind, payload, ttl)
	return payload, nil
}

func storePayload(ctx context.Context, cache caching.CacheService, log logger.Logger, kind string, payload any, ttl time.Duration) {
	if cache == nil {
		return
	}
	if err := cache.SetPayload(ctx, kind, payload, ttl); err != nil {
		log.Warn("Payload cache write failed", map[string]interface{}{"kind": kind, "error": err.Error()})
	}
}

func observeBuild(kind string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.DashboardBuilds.WithLabelValues(kind, outcome).Inc()
	metrics.DashboardBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// nameTemplates fills TemplateName from the catalog; unknown ids show the raw id.
func nameTemplates(items []*models.AuditListItem, catalog *audittemplates.Catalog) {
	for _, item := range items {
		item.TemplateName = item.TemplateID
		if catalog == nil {
			continue
		}
		if t, err := catalog.Get(item.TemplateID); err == nil {
			item.TemplateName = t.Name
		}
	}
}
