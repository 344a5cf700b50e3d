// Package postgres keeps schema-less items in a single Postgres table, one jsonb
// document per item, and renders access predicates with the JSONB dialect.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
)

const (
	getItemQuery = `SELECT id, attrs FROM items WHERE tbl = $1 AND id = $2`
	putItemQuery = `INSERT INTO items (tbl, id, attrs) VALUES ($1, $2, $3)
ON CONFLICT (tbl, id) DO UPDATE SET attrs = EXCLUDED.attrs`
)

type row struct {
	ID    string `db:"id"`
	Attrs []byte `db:"attrs"`
}

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, table, id string) (store.Item, error) {
	var r row
	if err := s.db.GetContext(ctx, &r, getItemQuery, table, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s/%s: %w", table, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", table, id, err)
	}
	return decode(r)
}

// Query ignores the index name. Postgres plans the jsonb containment through the GIN
// index on attrs, so the key condition is just another clause.
func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.selectWhere(ctx, in.Table, in.Condition())
}

func (s *Store) Scan(ctx context.Context, in store.ScanInput) ([]store.Item, error) {
	return s.selectWhere(ctx, in.Table, in.Filter)
}

func (s *Store) Put(ctx context.Context, table string, item store.Item) error {
	id := item.ID()
	if id == "" {
		return fmt.Errorf("put into %s: %w", table, store.ErrMissingKey)
	}
	attrs, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, id, err)
	}
	if _, err := s.db.ExecContext(ctx, putItemQuery, table, id, attrs); err != nil {
		return fmt.Errorf("put %s/%s: %w", table, id, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) selectWhere(ctx context.Context, table string, expr predicate.Expr) ([]store.Item, error) {
	rendered, err := predicate.RenderSQL(expr, predicate.JSONBDialect{Column: "attrs", Offset: 1})
	if err != nil {
		return nil, fmt.Errorf("render filter for %s: %w", table, err)
	}

	query := fmt.Sprintf("SELECT id, attrs FROM items WHERE tbl = $1 AND (%s) ORDER BY id", rendered.Clause)
	args := append([]any{table}, rendered.Args...)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}

	items := make([]store.Item, 0, len(rows))
	for _, r := range rows {
		item, err := decode(r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decode(r row) (store.Item, error) {
	item := store.Item{}
	if err := json.Unmarshal(r.Attrs, &item); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", r.ID, err)
	}
	item[store.KeyAttr] = r.ID
	return item, nil
}
