package compliance

import (
	"testing"
	"time"

	"precinctwatch/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := testNow.Add(d)
		return &v
	}

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      models.CertificationStatus
	}{
		{"no expiry on file", nil, models.StatusMissing},
		{"expired long ago", at(-days(400)), models.StatusExpired},
		{"expired a second ago", at(-time.Second), models.StatusExpired},
		{"expires exactly now", at(0), models.StatusExpired},
		{"expires in a second", at(time.Second), models.StatusExpiringSoon},
		{"expires in ten days", at(days(10)), models.StatusExpiringSoon},
		{"expires exactly at the 30 day boundary", at(days(30)), models.StatusExpiringSoon},
		{"expires just past 30 days", at(days(30) + time.Second), models.StatusValid},
		{"expires next year", at(days(365)), models.StatusValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.expiresAt, testNow))
		})
	}
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(testNow, testNow))
	assert.Equal(t, 1, DaysUntil(testNow.Add(time.Hour), testNow))
	assert.Equal(t, 7, DaysUntil(testNow.Add(days(7)), testNow))
	assert.Equal(t, 8, DaysUntil(testNow.Add(days(7)+time.Minute), testNow))
	assert.Equal(t, -3, DaysUntil(testNow.Add(-days(3)), testNow))
}

func TestRequiredTypes(t *testing.T) {
	base := RequiredTypes(models.CategoryRetail)
	assert.Len(t, base, 5)
	assert.Equal(t, base, RequiredTypes(models.CategoryServices))

	fb := RequiredTypes(models.CategoryFB)
	assert.Len(t, fb, 7)
	assert.Subset(t, fb, base)
	assert.Contains(t, fb, models.CertHealthHygiene)
	assert.Contains(t, fb, models.CertGas)
	assert.NotContains(t, base, models.CertGas)

	// callers get their own copy
	fb[0] = models.CertOther
	assert.Equal(t, models.CertFireSafety, RequiredTypes(models.CategoryFB)[0])

	assert.True(t, IsRequired(models.CategoryFB, models.CertGas))
	assert.False(t, IsRequired(models.CategoryRetail, models.CertGas))
	assert.False(t, IsRequired(models.CategoryRetail, models.CertLiquor))
}
