package access

import (
	"context"
	"fmt"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
)

const (
	UsersTable       = "users"
	ReportingToIndex = "reportingTo-index"
)

// StoreDirectory looks users up in the item store. A single-manager lookup is a
// Query on the reportingTo index; a level lookup is a Scan.
type StoreDirectory struct {
	store store.Store
	table string
}

func NewStoreDirectory(s store.Store) *StoreDirectory {
	return &StoreDirectory{store: s, table: UsersTable}
}

func (d *StoreDirectory) FindUsers(ctx context.Context, q UserQuery) ([]string, error) {
	var (
		items []store.Item
		err   error
	)
	if key, ok := q.ReportingTo.(predicate.Eq); ok {
		items, err = d.store.Query(ctx, store.QueryInput{
			Table:        d.table,
			Index:        ReportingToIndex,
			KeyCondition: key,
			Filter:       q.Filter,
		})
	} else {
		items, err = d.store.Scan(ctx, store.ScanInput{Table: d.table, Filter: q.Expr()})
	}
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID())
	}
	return ids, nil
}
