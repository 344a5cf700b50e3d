// Package resource is the access-controlled read service shared by every CRM record
// type. A Definition describes one record type; Service runs the engine for it.
package resource

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/store"
)

var (
	// ErrNotFound covers missing records and records the caller may not see.
	ErrNotFound          = errors.New("resource: not found")
	ErrUnsupportedLookup = errors.New("resource: attribute has no lookup index")
)

// TenantIndex is the index every owned table is partitioned on by tenantId.
const TenantIndex = "tenantId-index"

// IndexName is the conventional name of the secondary index partitioned by attr.
func IndexName(attr string) string {
	return attr + "-index"
}

type ScopeResolver interface {
	ResolveScope(ctx context.Context, id identity.Identity) (access.Scope, error)
}

// Base carries the attributes every owned record has besides its owner.
type Base struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

func (b Base) RecordID() string {
	return b.ID
}

func (b Base) RecordTenant() string {
	return b.TenantID
}

func (b Base) SoftDeleted() bool {
	return b.IsDeleted
}

// Definition parameterises the service for one record type.
type Definition[T access.Owned] struct {
	// Name is the singular resource name used in routes, logs and metrics.
	Name      string
	Table     string
	OwnerAttr string
	// TenantIndex and OwnerIndex name secondary indexes partitioned by tenantId and
	// by the owner attribute. Without TenantIndex lists fall back to a scan.
	TenantIndex string
	OwnerIndex  string
	// Lookups maps a non-owner attribute to the index partitioned by it.
	Lookups      map[string]string
	SearchFields []string
	Dimensions   []string
	AmountAttr   string
	// Decode converts a store item; DecodeItem is used when nil.
	Decode func(store.Item) (T, error)
}

func (d Definition[T]) decode(item store.Item) (T, error) {
	if d.Decode != nil {
		return d.Decode(item)
	}
	return DecodeItem[T](item)
}
