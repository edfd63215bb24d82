package repositories

import (
	"context"
	"fmt"

	"precinctwatch/internal/models"

	"github.com/google/uuid"
)

type StoreRepository interface {
	// List returns stores without certifications, ordered by name.
	List(ctx context.Context, filter models.StoreListFilter) ([]*models.Store, error)
	// ListWithCertifications returns stores with their certifications attached.
	ListWithCertifications(ctx context.Context, filter models.StoreListFilter) ([]*models.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	Create(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type storeRepo struct {
	db    DBTX
	certs CertificationRepository
}

func NewStoreRepo(db DBTX) StoreRepository {
	return &storeRepo{db: db, certs: NewCertificationRepo(db)}
}

const storeColumns = `id, code, slug, name, precinct, category, unit_code, active, created_at, updated_at`

func scanStore(row interface{ Scan(dest ...any) error }) (*models.Store, error) {
	s := &models.Store{}
	err := row.Scan(&s.ID, &s.Code, &s.Slug, &s.Name, &s.Precinct, &s.Category, &s.UnitCode, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func storeWhere(filter models.StoreListFilter) string {
	if filter.ActiveOnly {
		return " WHERE active = TRUE"
	}
	return ""
}

func (r *storeRepo) List(ctx context.Context, filter models.StoreListFilter) ([]*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores` + storeWhere(filter) + ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []*models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (r *storeRepo) ListWithCertifications(ctx context.Context, filter models.StoreListFilter) ([]*models.Store, error) {
	stores, err := r.List(ctx, filter)
	if err != nil || len(stores) == 0 {
		return stores, err
	}

	ids := make([]uuid.UUID, len(stores))
	byID := make(map[uuid.UUID]*models.Store, len(stores))
	for i, s := range stores {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	certs, err := r.certs.ListByStores(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range certs {
		if s, ok := byID[c.StoreID]; ok {
			s.Certifications = append(s.Certifications, c)
		}
	}
	return stores, nil
}

func (r *storeRepo) withCertifications(ctx context.Context, s *models.Store, err error) (*models.Store, error) {
	if err != nil {
		return nil, err
	}
	certs, err := r.certs.ListByStores(ctx, []uuid.UUID{s.ID})
	if err != nil {
		return nil, err
	}
	s.Certifications = certs
	return s, nil
}

func (r *storeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	s, err := scanStore(r.db.QueryRow(ctx, query, id))
	return r.withCertifications(ctx, s, err)
}

func (r *storeRepo) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE slug = $1`
	s, err := scanStore(r.db.QueryRow(ctx, query, slug))
	return r.withCertifications(ctx, s, err)
}

func (r *storeRepo) Create(ctx context.Context, store *models.Store) error {
	query := `
		INSERT INTO stores (id, code, slug, name, precinct, category, unit_code, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, store.ID, store.Code, store.Slug, store.Name, store.Precinct, store.Category, store.UnitCode, store.Active)
	return translate(err)
}

func (r *storeRepo) Update(ctx context.Context, store *models.Store) error {
	query := `
		UPDATE stores
		SET code = $1, slug = $2, name = $3, precinct = $4, category = $5, unit_code = $6, active = $7, updated_at = NOW()
		WHERE id = $8
	`
	return expectOne(r.db.Exec(ctx, query, store.Code, store.Slug, store.Name, store.Precinct, store.Category, store.UnitCode, store.Active, store.ID))
}

func (r *storeRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE stores SET active = $1, updated_at = NOW() WHERE id = $2`
	return expectOne(r.db.Exec(ctx, query, active, id))
}

// Delete removes the store. Certifications and audits go with it via ON DELETE CASCADE.
func (r *storeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM stores WHERE id = $1`
	return expectOne(r.db.Exec(ctx, query, id))
}
