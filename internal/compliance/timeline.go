package compliance

import (
	"sort"
	"time"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

const (
	timelineWeek  = 7 * 24 * time.Hour
	timelineMonth = 30 * 24 * time.Hour
	timelineTwoMo = 60 * 24 * time.Hour
)

type ExpiryItem struct {
	StoreID         uuid.UUID                  `json:"store_id"`
	StoreName       string                     `json:"store_name"`
	Precinct        string                     `json:"precinct"`
	CertificationID uuid.UUID                  `json:"certification_id"`
	Type            models.CertificationType   `json:"cert_type"`
	ExpiresAt       time.Time                  `json:"expires_at"`
	Status          models.CertificationStatus `json:"status"`
}

// ExpiryTimeline buckets upcoming expiries: within 7 days, 8 to 30 days, 31 to 60 days.
type ExpiryTimeline struct {
	Next7  []ExpiryItem `json:"next7"`
	Next30 []ExpiryItem `json:"next30"`
	Next60 []ExpiryItem `json:"next60"`
}

// BuildExpiryTimeline collects every certification with a future expiry no more than
// 60 days out. Each bucket is sorted by expiry ascending.
func BuildExpiryTimeline(stores []*models.Store, now time.Time) ExpiryTimeline {
	var items []ExpiryItem
	horizon := now.Add(timelineTwoMo)
	for _, s := range stores {
		if s == nil {
			continue
		}
		for _, c := range s.Certifications {
			if c == nil || c.ExpiresAt == nil || !c.ExpiresAt.After(now) || c.ExpiresAt.After(horizon) {
				continue
			}
			items = append(items, ExpiryItem{
				StoreID:         s.ID,
				StoreName:       s.Name,
				Precinct:        s.Precinct,
				CertificationID: c.ID,
				Type:            c.Type,
				ExpiresAt:       *c.ExpiresAt,
				Status:          Classify(c.ExpiresAt, now),
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})

	timeline := ExpiryTimeline{
		Next7:  []ExpiryItem{},
		Next30: []ExpiryItem{},
		Next60: []ExpiryItem{},
	}
	week, month := now.Add(timelineWeek), now.Add(timelineMonth)
	for _, it := range items {
		switch {
		case !it.ExpiresAt.After(week):
			timeline.Next7 = append(timeline.Next7, it)
		case !it.ExpiresAt.After(month):
			timeline.Next30 = append(timeline.Next30, it)
		default:
			timeline.Next60 = append(timeline.Next60, it)
		}
	}
	return timeline
}
