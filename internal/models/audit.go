package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditStatus string

const (
	AuditDraft     AuditStatus = "DRAFT"
	AuditSubmitted AuditStatus = "SUBMITTED"
)

// ItemResponse is the answer recorded against a checklist item.
type ItemResponse string

const (
	ResponseCompliant    ItemResponse = "compliant"
	ResponseNonCompliant ItemResponse = "non_compliant"
	ResponseNA           ItemResponse = "na"
)

func (r ItemResponse) Valid() bool {
	return r == ResponseCompliant || r == ResponseNonCompliant || r == ResponseNA
}

type Audit struct {
	ID            uuid.UUID               `json:"id" db:"id"`
	StoreID       uuid.UUID               `json:"store_id" db:"store_id"`
	TemplateID    string                  `json:"template_id" db:"template_id"`
	ConductedByID uuid.UUID               `json:"conducted_by_id" db:"conducted_by_id"`
	AuditDate     time.Time               `json:"audit_date" db:"audit_date"`
	Status        AuditStatus             `json:"status" db:"status"`
	Score         *int                    `json:"score" db:"score"`
	Responses     map[string]ItemResponse `json:"responses,omitempty" db:"responses"`
	CreatedAt     time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at" db:"updated_at"`
}

// AuditListItem is the joined row shown in audit lists and the dashboard feed.
type AuditListItem struct {
	ID              uuid.UUID   `json:"id"`
	StoreName       string      `json:"store_name"`
	StoreCode       string      `json:"store_code"`
	TemplateID      string      `json:"template_id"`
	TemplateName    string      `json:"template_name"`
	ConductedByName string      `json:"conducted_by_name"`
	AuditDate       time.Time   `json:"audit_date"`
	Status          AuditStatus `json:"status"`
	Score           *int        `json:"score,omitempty"`
}

type AuditTemplateItem struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Required bool   `json:"required" yaml:"required"`
}

type AuditTemplateSection struct {
	ID    string              `json:"id" yaml:"id"`
	Title string              `json:"title" yaml:"title"`
	Items []AuditTemplateItem `json:"items" yaml:"items"`
}

type AuditTemplate struct {
	ID          string                 `json:"id" yaml:"id"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	Category    Category               `json:"category" yaml:"category"`
	Active      bool                   `json:"active" yaml:"active"`
	Sections    []AuditTemplateSection `json:"sections" yaml:"sections"`
}

// Items flattens the template sections in order.
func (t *AuditTemplate) Items() []AuditTemplateItem {
	var items []AuditTemplateItem
	for _, s := range t.Sections {
		items = append(items, s.Items...)
	}
	return items
}
