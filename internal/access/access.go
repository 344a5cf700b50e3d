// Package access decides which records an identity may see. It resolves the caller's
// visibility scope once per request, turns it into a predicate for bulk queries and
// evaluates the same rules against single records fetched by other paths.
package access

import (
	"errors"
	"sort"

	"github.com/frahmantamala/salescrm/internal/store"
)

// Attribute names shared by every owned record and by the user directory.
const (
	AttrTenant      = "tenantId"
	AttrDeleted     = "isDeleted"
	AttrRole        = "role"
	AttrReportingTo = "reportingTo"
)

// DenySentinel is compared against the owner attribute when the caller may see
// nothing. No user id can take this value.
const DenySentinel = "__no_access__"

var ErrResolveSubordinates = errors.New("access: resolve subordinates")

// Owned is a record with a tenant, a single owner and a soft-delete marker.
type Owned interface {
	RecordID() string
	RecordTenant() string
	RecordOwner() string
	SoftDeleted() bool
}

// Set is a set of user ids.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Add(id string) {
	s[id] = struct{}{}
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ItemRecord adapts a raw store item to Owned.
type ItemRecord struct {
	Item      store.Item
	OwnerAttr string
}

func (r ItemRecord) RecordID() string {
	return r.Item.ID()
}

func (r ItemRecord) RecordTenant() string {
	return r.Item.String(AttrTenant)
}

func (r ItemRecord) RecordOwner() string {
	return r.Item.String(r.OwnerAttr)
}

func (r ItemRecord) SoftDeleted() bool {
	return r.Item.Bool(AttrDeleted)
}
