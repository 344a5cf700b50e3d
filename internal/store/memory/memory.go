// Package memory is an in-process store used for development and tests. It evaluates
// predicates directly against the held items.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]store.Item
}

func New() *Store {
	return &Store{tables: make(map[string]map[string]store.Item)}
}

func (s *Store) Put(ctx context.Context, table string, item store.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := item.ID()
	if id == "" {
		return fmt.Errorf("put into %s: %w", table, store.ErrMissingKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[table] == nil {
		s.tables[table] = make(map[string]store.Item)
	}
	s.tables[table][id] = maps.Clone(item)
	return nil
}

func (s *Store) Get(ctx context.Context, table, id string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.tables[table][id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", table, id, store.ErrNotFound)
	}
	return maps.Clone(item), nil
}

// Query ignores the index name; the key condition is evaluated like any other clause.
func (s *Store) Query(ctx context.Context, in store.QueryInput) ([]store.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.filter(ctx, in.Table, in.Condition())
}

func (s *Store) Scan(ctx context.Context, in store.ScanInput) ([]store.Item, error) {
	return s.filter(ctx, in.Table, in.Filter)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) filter(ctx context.Context, table string, expr predicate.Expr) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// surface malformed predicates the same way the real backends do
	if _, err := predicate.Params(expr); err != nil {
		return nil, fmt.Errorf("filter %s: %w", table, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Item, 0)
	for _, item := range s.tables[table] {
		if predicate.Eval(expr, item) {
			out = append(out, maps.Clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}
