package repositories

import (
	"context"
	"fmt"
	"time"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

type AuditRepository interface {
	Create(ctx context.Context, audit *models.Audit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Audit, error)
	// SaveResponses stores checklist answers on a draft.
	SaveResponses(ctx context.Context, id uuid.UUID, responses map[string]models.ItemResponse) error
	// Submit marks a draft submitted with its final score. Returns ErrNotFound when
	// no draft with that id exists.
	Submit(ctx context.Context, id uuid.UUID, score int, responses map[string]models.ItemResponse) error
	CountSince(ctx context.Context, since time.Time) (int, error)
	// List returns audits newest first. A nil since means all time. The int is the
	// total matching count before limit.
	List(ctx context.Context, since *time.Time, limit int) ([]*models.AuditListItem, int, error)
}

type auditRepo struct {
	db DBTX
}

func NewAuditRepo(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, audit *models.Audit) error {
	if audit.Responses == nil {
		audit.Responses = map[string]models.ItemResponse{}
	}
	query := `
		INSERT INTO audits (id, store_id, template_id, conducted_by_id, audit_date, status, score, responses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, audit.ID, audit.StoreID, audit.TemplateID, audit.ConductedByID, audit.AuditDate, audit.Status, audit.Score, audit.Responses)
	if err != nil {
		return fmt.Errorf("failed to create audit: %w", translate(err))
	}
	return nil
}

func (r *auditRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Audit, error) {
	query := `
		SELECT id, store_id, template_id, conducted_by_id, audit_date, status, score, responses, created_at, updated_at
		FROM audits
		WHERE id = $1
	`
	a := &models.Audit{}
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.StoreID, &a.TemplateID, &a.ConductedByID, &a.AuditDate, &a.Status, &a.Score, &a.Responses, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *auditRepo) SaveResponses(ctx context.Context, id uuid.UUID, responses map[string]models.ItemResponse) error {
	query := `UPDATE audits SET responses = $1, updated_at = NOW() WHERE id = $2 AND status = 'DRAFT'`
	return expectOne(r.db.Exec(ctx, query, responses, id))
}

func (r *auditRepo) Submit(ctx context.Context, id uuid.UUID, score int, responses map[string]models.ItemResponse) error {
	query := `
		UPDATE audits
		SET status = 'SUBMITTED', score = $1, responses = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'DRAFT'
	`
	return expectOne(r.db.Exec(ctx, query, score, responses, id))
}

func (r *auditRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM audits WHERE audit_date >= $1`
	if err := r.db.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audits: %w", err)
	}
	return count, nil
}

func (r *auditRepo) List(ctx context.Context, since *time.Time, limit int) ([]*models.AuditListItem, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM audits a WHERE ($1::timestamptz IS NULL OR a.audit_date >= $1)`
	if err := r.db.QueryRow(ctx, countQuery, since).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audits: %w", err)
	}

	query := `
		SELECT a.id, s.name, s.code, a.template_id, u.name, a.audit_date, a.status, a.score
		FROM audits a
		JOIN stores s ON s.id = a.store_id
		JOIN users u ON u.id = a.conducted_by_id
		WHERE ($1::timestamptz IS NULL OR a.audit_date >= $1)
		ORDER BY a.audit_date DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	items := []*models.AuditListItem{}
	for rows.Next() {
		it := &models.AuditListItem{}
		if err := rows.Scan(&it.ID, &it.StoreName, &it.StoreCode, &it.TemplateID, &it.ConductedByName, &it.AuditDate, &it.Status, &it.Score); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}
