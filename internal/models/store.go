package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the tenant trading category. It decides which certifications are required.
type Category string

const (
	CategoryFB       Category = "FB"
	CategoryRetail   Category = "RETAIL"
	CategoryServices Category = "SERVICES"
)

var Categories = []Category{CategoryFB, CategoryRetail, CategoryServices}

var categoryLabels = map[Category]string{
	CategoryFB:       "F&B",
	CategoryRetail:   "Retail",
	CategoryServices: "Services",
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name, e.g. "F&B".
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Precincts are the named zones of the waterfront. Order is display order.
var Precincts = []string{
	"Victoria Wharf",
	"Alfred Mall",
	"Silo District",
	"Watershed",
	"Clock Tower",
	"Portswood Ridge",
	"Pierhead",
	"Quay / Harbor",
}

func ValidPrecinct(p string) bool {
	for _, known := range Precincts {
		if known == p {
			return true
		}
	}
	return false
}

// Store is a tenant unit. Certifications are owned by the store and removed with it.
type Store struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Code           string           `json:"code" db:"code"`
	Slug           string           `json:"slug" db:"slug"`
	Name           string           `json:"name" db:"name"`
	Precinct       string           `json:"precinct" db:"precinct"`
	Category       Category         `json:"category" db:"category"`
	UnitCode       string           `json:"unit_code" db:"unit_code"`
	Active         bool             `json:"active" db:"active"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
	Certifications []*Certification `json:"certifications,omitempty"`
}

// StoreListFilter narrows store queries at the database level. Precinct and
// category narrowing happens after scoring so the unfiltered total is known.
type StoreListFilter struct {
	ActiveOnly bool
}
