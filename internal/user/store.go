package user

import (
	"context"
	"errors"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/store"
)

// ItemRepository reads users from the item store, the same table the store
// directory resolves subordinates from.
type ItemRepository struct {
	store store.Store
}

func NewItemRepository(s store.Store) *ItemRepository {
	return &ItemRepository{store: s}
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*User, error) {
	item, err := r.store.Get(ctx, access.UsersTable, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return FromItem(item), nil
}
