package compliance

import (
	"time"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func certIn(t models.CertificationType, d time.Duration) *models.Certification {
	exp := testNow.Add(d)
	return &models.Certification{ID: uuid.New(), Type: t, ExpiresAt: &exp}
}

func certMissing(t models.CertificationType) *models.Certification {
	return &models.Certification{ID: uuid.New(), Type: t}
}

func newStore(name, precinct string, category models.Category, certs ...*models.Certification) *models.Store {
	s := &models.Store{
		ID:       uuid.New(),
		Code:     name,
		Slug:     name,
		Name:     name,
		Precinct: precinct,
		Category: category,
		Active:   true,
	}
	for _, c := range certs {
		c.StoreID = s.ID
	}
	s.Certifications = certs
	return s
}

// fullyCompliant holds every required type valid for a year.
func fullyCompliant(name, precinct string, category models.Category) *models.Store {
	var certs []*models.Certification
	for _, t := range RequiredTypes(category) {
		certs = append(certs, certIn(t, days(365)))
	}
	return newStore(name, precinct, category, certs...)
}

// workedFBStore is the mixed F&B example: 4 of 7 required types valid.
func workedFBStore() *models.Store {
	return newStore("Harbour Grill", "Victoria Wharf", models.CategoryFB,
		certIn(models.CertFireSafety, days(200)),
		certIn(models.CertInsurance, days(10)),
		certIn(models.CertElectrical, -days(5)),
		certMissing(models.CertGas),
		certIn(models.CertHealthHygiene, days(300)),
		certIn(models.CertCOID, days(100)),
		certIn(models.CertOccupancy, days(400)),
	)
}
