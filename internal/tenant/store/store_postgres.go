package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/tenant/models"
	"storefront/pkg/platform/sentinel"
)

// PostgresStore persists store records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the stores table and its hostname indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stores (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			logo TEXT NOT NULL DEFAULT '',
			favicon TEXT NOT NULL DEFAULT '',
			banner TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'COP',
			active_theme_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			custom_domain TEXT,
			default_domain TEXT NOT NULL,
			domain_verified BOOLEAN NOT NULL DEFAULT FALSE,
			contact_email TEXT NOT NULL DEFAULT '',
			contact_phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stores_custom_domain_idx ON stores (lower(custom_domain)) WHERE custom_domain IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stores_default_domain_idx ON stores (lower(default_domain))`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure stores schema: %w", err)
		}
	}
	return nil
}

// Save upserts a store record.
func (s *PostgresStore) Save(ctx context.Context, store *models.Store) error {
	query := `
		INSERT INTO stores (id, user_id, name, description, logo, favicon, banner, currency, active_theme_id,
			status, custom_domain, default_domain, domain_verified, contact_email, contact_phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			logo = EXCLUDED.logo,
			favicon = EXCLUDED.favicon,
			banner = EXCLUDED.banner,
			currency = EXCLUDED.currency,
			active_theme_id = EXCLUDED.active_theme_id,
			status = EXCLUDED.status,
			custom_domain = EXCLUDED.custom_domain,
			default_domain = EXCLUDED.default_domain,
			domain_verified = EXCLUDED.domain_verified,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			address = EXCLUDED.address,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		store.ID, store.UserID, store.Name, store.Description, store.Logo, store.Favicon, store.Banner,
		store.CurrencyOrDefault(), store.ActiveThemeID, string(store.Status), nullable(store.CustomDomain),
		strings.ToLower(store.DefaultDomain), store.DomainVerified, store.ContactEmail, store.ContactPhone,
		store.Address, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save store %s: %w", store.ID, err)
	}
	return nil
}

const selectStore = `
	SELECT id, user_id, name, description, logo, favicon, banner, currency, active_theme_id,
		status, COALESCE(custom_domain, ''), default_domain, domain_verified, contact_email,
		contact_phone, address, created_at, updated_at
	FROM stores
`

func (s *PostgresStore) FindByID(ctx context.Context, storeID string) (*models.Store, error) {
	return s.findOne(ctx, selectStore+` WHERE id = $1`, storeID)
}

func (s *PostgresStore) FindByCustomDomain(ctx context.Context, host string) (*models.Store, error) {
	return s.findOne(ctx, selectStore+` WHERE lower(custom_domain) = lower($1)`, host)
}

func (s *PostgresStore) FindByDefaultDomain(ctx context.Context, host string) (*models.Store, error) {
	return s.findOne(ctx, selectStore+` WHERE lower(default_domain) = lower($1)`, host)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*models.Store, error) {
	var (
		st     models.Store
		status string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&st.ID, &st.UserID, &st.Name, &st.Description, &st.Logo, &st.Favicon, &st.Banner, &st.Currency,
		&st.ActiveThemeID, &status, &st.CustomDomain, &st.DefaultDomain, &st.DomainVerified,
		&st.ContactEmail, &st.ContactPhone, &st.Address, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find store: %w", err)
	}
	st.Status = models.StoreStatus(status)
	return &st, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return strings.ToLower(v)
}
