package compliance

import "precinctwatch/internal/models"

var requiredBase = []models.CertificationType{
	models.CertFireSafety,
	models.CertOccupancy,
	models.CertElectrical,
	models.CertInsurance,
	models.CertCOID,
}

var requiredFB = append(append([]models.CertificationType{}, requiredBase...),
	models.CertHealthHygiene,
	models.CertGas,
)

// RequiredTypes returns the certification types a store of the given category must hold.
// Food and beverage stores additionally need Health & Hygiene and Gas Compliance.
func RequiredTypes(category models.Category) []models.CertificationType {
	if category == models.CategoryFB {
		return append([]models.CertificationType(nil), requiredFB...)
	}
	return append([]models.CertificationType(nil), requiredBase...)
}

// IsRequired reports whether t is in the required set for category.
func IsRequired(category models.Category, t models.CertificationType) bool {
	for _, req := range RequiredTypes(category) {
		if req == t {
			return true
		}
	}
	return false
}
