package compliance

import (
	"sort"

	"precinctwatch/internal/models"
)

// PrecinctSummary aggregates the stores of one precinct.
type PrecinctSummary struct {
	Precinct           string    `json:"precinct"`
	StoreCount         int       `json:"store_count"`
	AvgCompliance      int       `json:"avg_compliance_score"`
	HighRiskCount      int       `json:"high_risk_count"`
	ExpiringSoonStores int       `json:"expiring_soon_count"`
	NonCompliantCount  int       `json:"non_compliant_count"`
	ExpiredCount       int       `json:"expired_count"`
	RiskLevel          RiskLevel `json:"risk_level"`
}

// PortfolioSummary holds the waterfront-wide KPIs.
type PortfolioSummary struct {
	TotalStores        int     `json:"total_stores"`
	NonCompliantStores int     `json:"non_compliant_stores"`
	HighRiskStores     int     `json:"high_risk_stores"`
	ExpiringSoonCount  int     `json:"expiring_soon_count"`
	ExpiredCount       int     `json:"expired_count"`
	OpenActions        int     `json:"open_actions"`
	AvgCompliance      float64 `json:"avg_compliance_score"`
}

// SummarizePrecincts groups scores by precinct. Known precincts come first in their
// canonical order, unknown ones follow in order of first appearance.
func SummarizePrecincts(scores []StoreScore) []PrecinctSummary {
	type acc struct {
		summary PrecinctSummary
		total   int
	}
	byPrecinct := make(map[string]*acc)
	var seen []string

	for _, s := range scores {
		a, ok := byPrecinct[s.Precinct]
		if !ok {
			a = &acc{summary: PrecinctSummary{Precinct: s.Precinct}}
			byPrecinct[s.Precinct] = a
			seen = append(seen, s.Precinct)
		}
		a.summary.StoreCount++
		a.total += s.CompliancePercent
		a.summary.ExpiredCount += s.ExpiredCount
		if s.precinctHighRisk() {
			a.summary.HighRiskCount++
		}
		if s.ExpiringSoonCount > 0 {
			a.summary.ExpiringSoonStores++
		}
		if s.NonCompliant() {
			a.summary.NonCompliantCount++
		}
	}

	order := make([]string, 0, len(seen))
	for _, p := range models.Precincts {
		if _, ok := byPrecinct[p]; ok {
			order = append(order, p)
		}
	}
	for _, p := range seen {
		if !models.ValidPrecinct(p) {
			order = append(order, p)
		}
	}

	out := make([]PrecinctSummary, 0, len(order))
	for _, p := range order {
		a := byPrecinct[p]
		a.summary.AvgCompliance = roundInt(float64(a.total) / float64(a.summary.StoreCount))
		a.summary.RiskLevel = RiskFor(a.summary.AvgCompliance, a.summary.ExpiredCount)
		out = append(out, a.summary)
	}
	return out
}

// HighestRiskPrecincts orders precincts by risk severity, then average compliance
// ascending, and keeps the first n. n <= 0 keeps all.
func HighestRiskPrecincts(summaries []PrecinctSummary, n int) []PrecinctSummary {
	out := append([]PrecinctSummary(nil), summaries...)
	sort.SliceStable(out, func(i, j int) bool {
		if a, b := out[i].RiskLevel.Severity(), out[j].RiskLevel.Severity(); a != b {
			return a < b
		}
		return out[i].AvgCompliance < out[j].AvgCompliance
	})
	return limit(out, n)
}

// PrecinctsByCompliance orders precincts worst average compliance first.
func PrecinctsByCompliance(summaries []PrecinctSummary) []PrecinctSummary {
	out := append([]PrecinctSummary(nil), summaries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgCompliance < out[j].AvgCompliance
	})
	return out
}

// Portfolio computes the KPIs over all scored stores. The average is an unweighted
// mean across stores.
func Portfolio(scores []StoreScore) PortfolioSummary {
	p := PortfolioSummary{TotalStores: len(scores)}
	total := 0
	for _, s := range scores {
		total += s.CompliancePercent
		if s.NonCompliant() {
			p.NonCompliantStores++
		}
		if s.RiskLevel == RiskHigh {
			p.HighRiskStores++
		}
		p.ExpiringSoonCount += s.ExpiringSoonCount
		p.ExpiredCount += s.ExpiredCount
		p.OpenActions += s.ExpiredCount + s.MissingCount
	}
	if len(scores) > 0 {
		p.AvgCompliance = float64(total) / float64(len(scores))
	}
	return p
}

// TopRisk returns the n riskiest stores: severity first, then most expired, then
// lowest compliance. n <= 0 returns all, sorted.
func TopRisk(scores []StoreScore, n int) []StoreScore {
	out := append([]StoreScore(nil), scores...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if sa, sb := a.RiskLevel.Severity(), b.RiskLevel.Severity(); sa != sb {
			return sa < sb
		}
		if a.ExpiredCount != b.ExpiredCount {
			return a.ExpiredCount > b.ExpiredCount
		}
		return a.CompliancePercent < b.CompliancePercent
	})
	return limit(out, n)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
