package models

import (
	"time"

	"github.com/google/uuid"
)

type CertificationType string

const (
	CertFireSafety    CertificationType = "Fire Safety Certificate"
	CertOccupancy     CertificationType = "Certificate of Occupancy"
	CertElectrical    CertificationType = "Electrical Compliance (COC)"
	CertGas           CertificationType = "Gas Compliance"
	CertHealthHygiene CertificationType = "Health & Hygiene"
	CertInsurance     CertificationType = "Public Liability Insurance"
	CertCOID          CertificationType = "COID / Workman's Comp"
	CertFoodSafety    CertificationType = "Food Safety"
	CertLiquor        CertificationType = "Liquor License"
	CertOther         CertificationType = "Other"
)

var CertificationTypes = []CertificationType{
	CertFireSafety,
	CertOccupancy,
	CertElectrical,
	CertGas,
	CertHealthHygiene,
	CertInsurance,
	CertCOID,
	CertFoodSafety,
	CertLiquor,
	CertOther,
}

func (t CertificationType) Valid() bool {
	for _, known := range CertificationTypes {
		if known == t {
			return true
		}
	}
	return false
}

// CertificationStatus is derived from the expiry date at read time and is never stored.
type CertificationStatus string

const (
	StatusValid        CertificationStatus = "VALID"
	StatusExpiringSoon CertificationStatus = "EXPIRING_SOON"
	StatusExpired      CertificationStatus = "EXPIRED"
	StatusMissing      CertificationStatus = "MISSING"
)

type Certification struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	StoreID     uuid.UUID         `json:"store_id" db:"store_id"`
	Type        CertificationType `json:"type" db:"type"`
	IssuedAt    *time.Time        `json:"issued_at" db:"issued_at"`
	ExpiresAt   *time.Time        `json:"expires_at" db:"expires_at"`
	ReferenceNo *string           `json:"reference_no" db:"reference_no"`
	Notes       *string           `json:"notes" db:"notes"`
	Mandatory   bool              `json:"mandatory" db:"mandatory"`
	DocumentKey *string           `json:"-" db:"document_key"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// HasDocument reports whether a scan has been uploaded for the certification.
func (c *Certification) HasDocument() bool {
	return c.DocumentKey != nil && *c.DocumentKey != ""
}
