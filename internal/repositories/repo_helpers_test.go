package repositories

import "time"

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var (
	storeCols = []string{"id", "code", "slug", "name", "precinct", "category", "unit_code", "active", "created_at", "updated_at"}
	certCols  = []string{"id", "store_id", "type", "issued_at", "expires_at", "reference_no", "notes", "mandatory", "document_key", "created_at", "updated_at"}
)
