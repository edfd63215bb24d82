// Package testhelpers sets up a real Postgres database for integration tests.
package testhelpers

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"precinctwatch/internal/models"
	"precinctwatch/internal/repositories"
	"precinctwatch/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB holds the database connection for testing
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties every
// table. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.ApplySchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to apply schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE audits, certifications, stores, users CASCADE`); err != nil {
		pool.Close()
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	db := &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
	t.Cleanup(func() { _ = db.Cleanup() })
	return db
}

// SetupTestUser inserts an active user with the given role.
func SetupTestUser(t *testing.T, db *TestDB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Role:     role,
		Active:   true,
	}
	if err := repositories.NewUserRepo(db.Pool).Create(context.Background(), user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// SetupTestStore inserts an active store. The slug is the lower-cased code.
func SetupTestStore(t *testing.T, db *TestDB, code, precinct string, category models.Category) *models.Store {
	t.Helper()

	store := &models.Store{
		ID:       uuid.New(),
		Code:     code,
		Slug:     strings.ToLower(code),
		Name:     "Store " + code,
		Precinct: precinct,
		Category: category,
		Active:   true,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO stores (id, code, slug, name, precinct, category, unit_code, active) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		store.ID, store.Code, store.Slug, store.Name, store.Precinct, store.Category, store.UnitCode, store.Active)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return store
}

// SetupTestCertification attaches a mandatory certification expiring at expiresAt.
// A nil expiresAt records the certification as missing.
func SetupTestCertification(t *testing.T, db *TestDB, storeID uuid.UUID, certType models.CertificationType, expiresAt *time.Time) *models.Certification {
	t.Helper()

	cert := &models.Certification{
		ID:        uuid.New(),
		StoreID:   storeID,
		Type:      certType,
		ExpiresAt: expiresAt,
		Mandatory: true,
	}
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO certifications (id, store_id, type, expires_at, mandatory) VALUES ($1, $2, $3, $4, $5)`,
		cert.ID, cert.StoreID, cert.Type, cert.ExpiresAt, cert.Mandatory)
	if err != nil {
		t.Fatalf("Failed to create test certification: %v", err)
	}
	return cert
}
