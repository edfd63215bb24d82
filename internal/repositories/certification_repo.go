package repositories

import (
	"context"
	"fmt"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

type CertificationRepository interface {
	ListByStores(ctx context.Context, storeIDs []uuid.UUID) ([]*models.Certification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Certification, error)
	Create(ctx context.Context, cert *models.Certification) error
	Update(ctx context.Context, cert *models.Certification) error
	SetDocumentKey(ctx context.Context, id uuid.UUID, key *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type certificationRepo struct {
	db DBTX
}

func NewCertificationRepo(db DBTX) CertificationRepository {
	return &certificationRepo{db: db}
}

const certificationColumns = `id, store_id, type, issued_at, expires_at, reference_no, notes, mandatory, document_key, created_at, updated_at`

func scanCertification(row interface{ Scan(dest ...any) error }) (*models.Certification, error) {
	c := &models.Certification{}
	err := row.Scan(&c.ID, &c.StoreID, &c.Type, &c.IssuedAt, &c.ExpiresAt, &c.ReferenceNo, &c.Notes, &c.Mandatory, &c.DocumentKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// ListByStores orders by store, then expiry with undated certifications last.
func (r *certificationRepo) ListByStores(ctx context.Context, storeIDs []uuid.UUID) ([]*models.Certification, error) {
	query := `
		SELECT ` + certificationColumns + `
		FROM certifications
		WHERE store_id = ANY($1)
		ORDER BY store_id, expires_at ASC NULLS LAST, type
	`
	rows, err := r.db.Query(ctx, query, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	defer rows.Close()

	var certs []*models.Certification
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

func (r *certificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Certification, error) {
	query := `SELECT ` + certificationColumns + ` FROM certifications WHERE id = $1`
	return scanCertification(r.db.QueryRow(ctx, query, id))
}

func (r *certificationRepo) Create(ctx context.Context, cert *models.Certification) error {
	query := `
		INSERT INTO certifications (id, store_id, type, issued_at, expires_at, reference_no, notes, mandatory, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, cert.ID, cert.StoreID, cert.Type, cert.IssuedAt, cert.ExpiresAt, cert.ReferenceNo, cert.Notes, cert.Mandatory)
	return translate(err)
}

func (r *certificationRepo) Update(ctx context.Context, cert *models.Certification) error {
	query := `
		UPDATE certifications
		SET type = $1, issued_at = $2, expires_at = $3, reference_no = $4, notes = $5, mandatory = $6, updated_at = NOW()
		WHERE id = $7
	`
	return expectOne(r.db.Exec(ctx, query, cert.Type, cert.IssuedAt, cert.ExpiresAt, cert.ReferenceNo, cert.Notes, cert.Mandatory, cert.ID))
}

func (r *certificationRepo) SetDocumentKey(ctx context.Context, id uuid.UUID, key *string) error {
	query := `UPDATE certifications SET document_key = $1, updated_at = NOW() WHERE id = $2`
	return expectOne(r.db.Exec(ctx, query, key, id))
}

func (r *certificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM certifications WHERE id = $1`
	return expectOne(r.db.Exec(ctx, query, id))
}
