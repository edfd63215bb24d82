package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleOfficer Role = "OFFICER"
	RoleViewer  Role = "VIEWER"
)

type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Name      string    `json:"name" db:"name"`
	Role      Role      `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOfficer, RoleViewer:
		return true
	}
	return false
}

// CanEdit reports whether the role may change stores, certifications and audits.
func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleOfficer
}
