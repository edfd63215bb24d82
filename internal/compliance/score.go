package compliance

import (
	"math"
	"time"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Severity orders risk levels for sorting: high=0, medium=1, low=2.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// Thresholds. The precinct high-risk bar is deliberately looser than the
// per-store one and the two must stay separate.
const (
	HighRiskBelowPercent           = 50
	HighRiskExpiredAtLeast         = 3
	MediumRiskBelowPercent         = 80
	MediumRiskExpiredAtLeast       = 1
	NonCompliantBelowPercent       = 80
	PrecinctHighRiskExpiredAtLeast = 2
)

// RiskFor classifies a compliance percentage and expired count. HIGH is tested first.
func RiskFor(compliancePercent, expiredCount int) RiskLevel {
	if compliancePercent < HighRiskBelowPercent || expiredCount >= HighRiskExpiredAtLeast {
		return RiskHigh
	}
	if compliancePercent < MediumRiskBelowPercent || expiredCount >= MediumRiskExpiredAtLeast {
		return RiskMedium
	}
	return RiskLow
}

// StoreScore is the derived compliance picture of one store.
type StoreScore struct {
	StoreID  uuid.UUID       `json:"id"`
	Code     string          `json:"code"`
	Slug     string          `json:"slug"`
	Name     string          `json:"name"`
	Precinct string          `json:"precinct"`
	Category models.Category `json:"category"`
	UnitCode string          `json:"unit_code"`

	CompliancePercent int `json:"compliance_score"`
	RequiredCount     int `json:"required_count"`
	SatisfiedCount    int `json:"satisfied_count"`

	// Counted over every certification on file, not only the required ones.
	ValidCount        int `json:"valid_count"`
	ExpiredCount      int `json:"expired_count"`
	ExpiringSoonCount int `json:"expiring_soon_count"`
	MissingCount      int `json:"missing_count"`

	// Required types with no certification record at all.
	MissingRequiredCount int `json:"missing_required_count"`

	RiskLevel RiskLevel `json:"risk_level"`
}

// NonCompliant is true below 80% or with any expired certification.
func (s StoreScore) NonCompliant() bool {
	return s.CompliancePercent < NonCompliantBelowPercent || s.ExpiredCount > 0
}

// ActionCount is the number of certifications that need attention.
func (s StoreScore) ActionCount() int {
	return s.ExpiredCount + s.MissingCount + s.ExpiringSoonCount
}

// precinctHighRisk uses the looser precinct bar: HIGH, or two or more expired.
func (s StoreScore) precinctHighRisk() bool {
	return s.RiskLevel == RiskHigh || s.ExpiredCount >= PrecinctHighRiskExpiredAtLeast
}

// ScoreStore computes the compliance score of a store at now.
//
// A required type is satisfied only when the chosen certification for it classifies
// as VALID. When several certifications share a type the one with the latest expiry
// is chosen.
func ScoreStore(store *models.Store, now time.Time) StoreScore {
	score := StoreScore{
		StoreID:  store.ID,
		Code:     store.Code,
		Slug:     store.Slug,
		Name:     store.Name,
		Precinct: store.Precinct,
		Category: store.Category,
		UnitCode: store.UnitCode,
	}

	for _, c := range store.Certifications {
		if c == nil {
			continue
		}
		switch Classify(c.ExpiresAt, now) {
		case models.StatusValid:
			score.ValidCount++
		case models.StatusExpired:
			score.ExpiredCount++
		case models.StatusExpiringSoon:
			score.ExpiringSoonCount++
		case models.StatusMissing:
			score.MissingCount++
		}
	}

	required := RequiredTypes(store.Category)
	score.RequiredCount = len(required)
	for _, t := range required {
		cert := PickCertification(store.Certifications, t)
		if cert == nil {
			score.MissingRequiredCount++
			continue
		}
		if Classify(cert.ExpiresAt, now) == models.StatusValid {
			score.SatisfiedCount++
		}
	}

	score.CompliancePercent = percent(score.SatisfiedCount, score.RequiredCount)
	score.RiskLevel = RiskFor(score.CompliancePercent, score.ExpiredCount)
	return score
}

// PickCertification returns the certification of type t with the latest expiry.
// Dated certifications beat undated ones; among undated ones the first wins.
func PickCertification(certs []*models.Certification, t models.CertificationType) *models.Certification {
	var best *models.Certification
	for _, c := range certs {
		if c == nil || c.Type != t {
			continue
		}
		switch {
		case best == nil:
			best = c
		case best.ExpiresAt == nil && c.ExpiresAt != nil:
			best = c
		case best.ExpiresAt != nil && c.ExpiresAt != nil && c.ExpiresAt.After(*best.ExpiresAt):
			best = c
		}
	}
	return best
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return roundInt(100 * float64(part) / float64(total))
}

func roundInt(v float64) int {
	return int(math.Floor(v + 0.5))
}
