package compliance

import (
	"sort"
	"strings"
)

type StoreFilter string

const (
	FilterAll          StoreFilter = "all"
	FilterNonCompliant StoreFilter = "noncompliant"
	FilterHighRisk     StoreFilter = "highrisk"
	FilterExpiringSoon StoreFilter = "expiringsoon"
	FilterOpenActions  StoreFilter = "open_actions"
)

// ParseStoreFilter maps unknown values to FilterAll.
func ParseStoreFilter(raw string) StoreFilter {
	switch f := StoreFilter(strings.TrimSpace(raw)); f {
	case FilterNonCompliant, FilterHighRisk, FilterExpiringSoon, FilterOpenActions:
		return f
	default:
		return FilterAll
	}
}

type FilterOptions struct {
	Filter   StoreFilter
	Search   string
	Precinct string
	Category string
}

// FilterStores applies the named filter, free-text search and precinct/category
// narrowing. Risk-oriented filters return the worst compliance first.
func FilterStores(scores []StoreScore, opts FilterOptions) []StoreScore {
	q := strings.ToLower(strings.TrimSpace(opts.Search))
	precinct := strings.TrimSpace(opts.Precinct)
	category := strings.TrimSpace(opts.Category)

	out := make([]StoreScore, 0, len(scores))
	for _, s := range scores {
		if !matchesFilter(s, opts.Filter) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.Code), q) &&
			!strings.Contains(strings.ToLower(s.Precinct), q) {
			continue
		}
		if precinct != "" && !strings.EqualFold(s.Precinct, precinct) {
			continue
		}
		if category != "" && !strings.EqualFold(string(s.Category), category) {
			continue
		}
		out = append(out, s)
	}

	switch opts.Filter {
	case FilterNonCompliant, FilterHighRisk, FilterOpenActions:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CompliancePercent < out[j].CompliancePercent
		})
	}
	return out
}

func matchesFilter(s StoreScore, f StoreFilter) bool {
	switch f {
	case FilterNonCompliant:
		return s.NonCompliant()
	case FilterHighRisk:
		return s.RiskLevel == RiskHigh
	case FilterExpiringSoon:
		return s.ExpiringSoonCount > 0
	case FilterOpenActions:
		return s.ActionCount() > 0
	default:
		return true
	}
}
