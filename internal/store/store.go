// Package store declares the key/attribute store capability the access engine runs
// against: get by key, query a secondary index with a filter, scan with a filter.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
)

// KeyAttr is the primary key attribute of every table.
const KeyAttr = "id"

var (
	ErrNotFound   = errors.New("store: item not found")
	ErrMissingKey = errors.New("store: item has no id")
)

// Item is a schema-less record as held by the store.
type Item map[string]any

func (i Item) ID() string {
	return i.String(KeyAttr)
}

// String returns the attribute as a string, or "" when it is absent or not a string.
func (i Item) String(attr string) string {
	s, _ := i[attr].(string)
	return s
}

func (i Item) Bool(attr string) bool {
	b, _ := i[attr].(bool)
	return b
}

// QueryInput selects the items of an index partition. KeyCondition must be an
// equality on the index partition attribute; Filter is applied to the matches.
type QueryInput struct {
	Table        string
	Index        string
	KeyCondition predicate.Eq
	Filter       predicate.Expr
}

type ScanInput struct {
	Table  string
	Filter predicate.Expr
}

// Store is the read capability of a key/attribute store.
type Store interface {
	Get(ctx context.Context, table, id string) (Item, error)
	Query(ctx context.Context, in QueryInput) ([]Item, error)
	Scan(ctx context.Context, in ScanInput) ([]Item, error)
}

type Writer interface {
	Put(ctx context.Context, table string, item Item) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadWriter is what the seeder and the tests need.
type ReadWriter interface {
	Store
	Writer
}

// Validate checks the parts of a query every backend relies on.
func (in QueryInput) Validate() error {
	if in.Table == "" {
		return errors.New("store: query without table")
	}
	if in.KeyCondition.Attr == "" {
		return fmt.Errorf("store: query on %s without key condition", in.Table)
	}
	return nil
}

// Condition is the key condition AND the filter, the predicate an item must satisfy
// to be returned by the query.
func (in QueryInput) Condition() predicate.Expr {
	return predicate.AllOf(in.KeyCondition, in.Filter)
}
