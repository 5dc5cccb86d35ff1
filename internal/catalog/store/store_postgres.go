package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"storefront/internal/catalog/ports"
	"storefront/pkg/platform/sentinel"
)

// Table names of the business-data document tables.
const (
	TableProducts        = "products"
	TableCollections     = "collections"
	TablePages           = "pages"
	TableNavigationMenus = "navigation_menus"
)

// Postgres is a Repository over a document table (id, store_id, created_at, data jsonb).
// Conditions are evaluated against top-level document fields.
type Postgres[T ports.Entity] struct {
	db    *sql.DB
	table string
}

// NewPostgres builds a repository over table. Table names are package constants,
// never user input.
func NewPostgres[T ports.Entity](db *sql.DB, table string) *Postgres[T] {
	return &Postgres[T]{db: db, table: table}
}

// EnsureSchema creates the document table and its listing index.
func (s *Postgres[T]) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_store_created_idx ON %s (store_id, created_at DESC, id DESC)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema %s: %w", s.table, err)
		}
	}
	return nil
}

// Save upserts entities.
func (s *Postgres[T]) Save(ctx context.Context, items ...T) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (id, store_id, created_at, data) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET store_id = EXCLUDED.store_id, created_at = EXCLUDED.created_at, data = EXCLUDED.data
	`, s.table)
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", s.table, item.EntityID(), err)
		}
		if _, err := s.db.ExecContext(ctx, q, item.EntityID(), item.EntityStoreID(), item.EntityCreatedAt().UTC(), raw); err != nil {
			return fmt.Errorf("save %s %s: %w", s.table, item.EntityID(), err)
		}
	}
	return nil
}

func (s *Postgres[T]) Get(ctx context.Context, storeID, id string) (T, error) {
	var zero T
	q := fmt.Sprintf(`SELECT data FROM %s WHERE store_id = $1 AND id = $2`, s.table)
	var raw []byte
	if err := s.db.QueryRowContext(ctx, q, storeID, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, sentinel.ErrNotFound
		}
		return zero, fmt.Errorf("get %s %s: %w", s.table, id, err)
	}
	return decode[T](raw)
}

func (s *Postgres[T]) List(ctx context.Context, storeID string, q ports.Query) (ports.Page[T], error) {
	cursorAt, cursorID, err := ports.DecodeToken(q.Token)
	if err != nil {
		return ports.Page[T]{}, fmt.Errorf("list %s: %w", s.table, err)
	}

	args := []any{storeID}
	where := []string{"store_id = $1"}
	next := 2
	for _, c := range q.Conditions {
		switch c.Op {
		case ports.OpEq:
			where = append(where, fmt.Sprintf("data->>'%s' = $%d", column(c.Field), next))
			args = append(args, c.Value)
		case ports.OpContains:
			where = append(where, fmt.Sprintf("strpos(lower(data->>'%s'), lower($%d)) > 0", column(c.Field), next))
			args = append(args, c.Value)
		case ports.OpIn:
			where = append(where, fmt.Sprintf("data->>'%s' = ANY($%d)", column(c.Field), next))
			args = append(args, pq.Array(c.Values))
		}
		next++
	}
	if q.Token != "" {
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", next, next+1))
		args = append(args, cursorAt, cursorID)
		next += 2
	}
	limitClause := ""
	if q.Limit > 0 {
		limitClause = fmt.Sprintf("LIMIT $%d", next)
		args = append(args, q.Limit+1)
	}
	stmt := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE %s
		ORDER BY created_at DESC, id DESC
		%s
	`, s.table, strings.Join(where, " AND "), limitClause)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return ports.Page[T]{}, fmt.Errorf("list %s: %w", s.table, err)
	}
	defer rows.Close()

	items := make([]T, 0, max(q.Limit, 0))
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return ports.Page[T]{}, fmt.Errorf("scan %s: %w", s.table, err)
		}
		item, err := decode[T](raw)
		if err != nil {
			return ports.Page[T]{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return ports.Page[T]{}, fmt.Errorf("list %s: %w", s.table, err)
	}

	page := ports.Page[T]{Items: items}
	if q.Limit > 0 && len(items) > q.Limit {
		last := items[q.Limit-1]
		page.Items = items[:q.Limit]
		page.NextToken = ports.EncodeToken(last.EntityCreatedAt(), last.EntityID())
	}
	return page, nil
}

// decode unmarshals a document into a freshly allocated T. T is a pointer type
// (*models.Product), so the pointee is allocated through json.
func decode[T ports.Entity](raw []byte) (T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		var zero T
		return zero, fmt.Errorf("decode document: %w", err)
	}
	return item, nil
}

// column keeps condition field names to identifier characters; they come from code,
// but they are interpolated into SQL.
func column(field string) string {
	var b strings.Builder
	for _, r := range field {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
