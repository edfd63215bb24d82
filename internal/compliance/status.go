package compliance

import (
	"time"

	"precinctwatch/internal/models"
)

// ExpiringSoonWindow is how far ahead of now an expiry still counts as "expiring soon".
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Classify derives a certification status from its expiry date.
//
// A nil expiry means the certificate was never issued (MISSING). An expiry at or
// before now is EXPIRED. An expiry after now and no later than now+30d is
// EXPIRING_SOON; anything later is VALID.
func Classify(expiresAt *time.Time, now time.Time) models.CertificationStatus {
	if expiresAt == nil {
		return models.StatusMissing
	}
	if !expiresAt.After(now) {
		return models.StatusExpired
	}
	if !expiresAt.After(now.Add(ExpiringSoonWindow)) {
		return models.StatusExpiringSoon
	}
	return models.StatusValid
}

// DaysUntil returns whole days from now until t, rounded up. Negative when t has passed.
func DaysUntil(t time.Time, now time.Time) int {
	d := t.Sub(now)
	days := int(d / (24 * time.Hour))
	if d > 0 && d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
