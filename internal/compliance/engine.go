// Package compliance derives certification status, store compliance scores, risk
// levels and the dashboard rollups from store and certification records.
//
// Everything here is pure: inputs are snapshots already loaded from storage and the
// evaluation instant comes from an injectable clock. Nothing is persisted and no
// function returns an error.
package compliance

import (
	"time"

	"precinctwatch/internal/models"
)

// Options sizes the ranked lists of each view.
type Options struct {
	DashboardTopN      int
	ExecTopN           int
	DashboardPrecincts int
}

func DefaultOptions() Options {
	return Options{
		DashboardTopN:      8,
		ExecTopN:           10,
		DashboardPrecincts: 5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DashboardTopN <= 0 {
		o.DashboardTopN = d.DashboardTopN
	}
	if o.ExecTopN <= 0 {
		o.ExecTopN = d.ExecTopN
	}
	if o.DashboardPrecincts <= 0 {
		o.DashboardPrecincts = d.DashboardPrecincts
	}
	return o
}

type Engine struct {
	opts Options
	now  func() time.Time
}

// NewEngine builds an engine. A nil clock means time.Now.
func NewEngine(opts Options, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{opts: opts.withDefaults(), now: clock}
}

func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) Options() Options {
	return e.opts
}

// ScoreStores scores every store at a single instant.
func (e *Engine) ScoreStores(stores []*models.Store) []StoreScore {
	return scoreAll(stores, e.now())
}

func scoreAll(stores []*models.Store, now time.Time) []StoreScore {
	scores := make([]StoreScore, 0, len(stores))
	for _, s := range stores {
		if s == nil {
			continue
		}
		scores = append(scores, ScoreStore(s, now))
	}
	return scores
}

// DashboardView is the operational overview.
type DashboardView struct {
	Summary              PortfolioSummary  `json:"summary"`
	HighestRiskPrecincts []PrecinctSummary `json:"highest_risk_precincts"`
	TopRiskStores        []StoreScore      `json:"top_risk_stores"`
}

func (e *Engine) Dashboard(stores []*models.Store) DashboardView {
	scores := e.ScoreStores(stores)
	return DashboardView{
		Summary:              Portfolio(scores),
		HighestRiskPrecincts: HighestRiskPrecincts(SummarizePrecincts(scores), e.opts.DashboardPrecincts),
		TopRiskStores:        TopRisk(scores, e.opts.DashboardTopN),
	}
}

// RankedStore is a top-risk entry with its sparkline history.
type RankedStore struct {
	StoreScore
	Sparkline []int `json:"sparkline_points"`
}

type ExecSummary struct {
	TotalStores       int `json:"total_stores"`
	AvgCompliance     int `json:"avg_compliance"`
	TotalExpired      int `json:"total_expired"`
	TotalExpiringSoon int `json:"total_expiring_soon"`
	TotalHighRisk     int `json:"total_high_risk"`
	TotalNonCompliant int `json:"total_non_compliant"`
}

// ExecView is the executive reporting payload.
type ExecView struct {
	TimeframeDays  int               `json:"timeframe_days"`
	PrecinctCards  []PrecinctSummary `json:"precinct_cards"`
	ExpiryTimeline ExpiryTimeline    `json:"expiry_timeline"`
	TopRiskStores  []RankedStore     `json:"top_risk_stores"`
	RiskTrend      []TrendPoint      `json:"risk_trend"`
	Summary        ExecSummary       `json:"summary"`
}

// Executive builds the executive view over timeframeDays of synthetic trend.
func (e *Engine) Executive(stores []*models.Store, timeframeDays int) ExecView {
	now := e.now()
	scores := scoreAll(stores, now)
	portfolio := Portfolio(scores)

	top := TopRisk(scores, e.opts.ExecTopN)
	ranked := make([]RankedStore, 0, len(top))
	for _, s := range top {
		ranked = append(ranked, RankedStore{
			StoreScore: s,
			Sparkline:  Sparkline(s.StoreID.String(), s.CompliancePercent),
		})
	}

	return ExecView{
		TimeframeDays:  timeframeDays,
		PrecinctCards:  PrecinctsByCompliance(SummarizePrecincts(scores)),
		ExpiryTimeline: BuildExpiryTimeline(stores, now),
		TopRiskStores:  ranked,
		RiskTrend:      Trend(portfolio.AvgCompliance, timeframeDays, now),
		Summary: ExecSummary{
			TotalStores:       portfolio.TotalStores,
			AvgCompliance:     roundInt(portfolio.AvgCompliance),
			TotalExpired:      portfolio.ExpiredCount,
			TotalExpiringSoon: portfolio.ExpiringSoonCount,
			TotalHighRisk:     portfolio.HighRiskStores,
			TotalNonCompliant: portfolio.NonCompliantStores,
		},
	}
}

// CertificationView is a certification with its status derived at read time.
type CertificationView struct {
	*models.Certification
	Status          models.CertificationStatus `json:"status"`
	DaysUntilExpiry *int                       `json:"days_until_expiry"`
	Required        bool                       `json:"required"`
	HasDocument     bool                       `json:"has_document"`
}

type StoreDetail struct {
	Store           *models.Store              `json:"store"`
	Score           StoreScore                 `json:"score"`
	Certifications  []CertificationView        `json:"certifications"`
	MissingRequired []models.CertificationType `json:"missing_required"`
}

// StoreDetail scores one store and annotates each of its certifications.
func (e *Engine) StoreDetail(store *models.Store) StoreDetail {
	now := e.now()
	views := make([]CertificationView, 0, len(store.Certifications))
	for _, c := range store.Certifications {
		if c == nil {
			continue
		}
		v := CertificationView{
			Certification: c,
			Status:        Classify(c.ExpiresAt, now),
			Required:      IsRequired(store.Category, c.Type),
			HasDocument:   c.HasDocument(),
		}
		if c.ExpiresAt != nil {
			d := DaysUntil(*c.ExpiresAt, now)
			v.DaysUntilExpiry = &d
		}
		views = append(views, v)
	}

	missing := []models.CertificationType{}
	for _, t := range RequiredTypes(store.Category) {
		if PickCertification(store.Certifications, t) == nil {
			missing = append(missing, t)
		}
	}

	header := *store
	header.Certifications = nil
	return StoreDetail{
		Store:           &header,
		Score:           ScoreStore(store, now),
		Certifications:  views,
		MissingRequired: missing,
	}
}
