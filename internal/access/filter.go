package access

import (
	"fmt"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
)

// Filter is the access predicate of one scope over one resource, split into the
// clauses a store may handle differently.
type Filter struct {
	Tenant  predicate.Eq
	Deleted predicate.Expr
	Role    predicate.Expr
}

// NotDeleted matches records whose soft-delete flag is false or was never written.
func NotDeleted() predicate.Expr {
	return predicate.Or{
		predicate.Equal(AttrDeleted, "notDeleted", false),
		predicate.Absent{Attr: AttrDeleted},
	}
}

// BuildFilter turns a scope into the predicate selecting the records it may see. The
// tenant clause is unconditional and comes first.
func BuildFilter(scope Scope, ownerAttr string, includeDeleted bool) Filter {
	f := Filter{
		Tenant: predicate.Equal(AttrTenant, "tenantId", scope.Identity.TenantID),
	}
	if !includeDeleted {
		f.Deleted = NotDeleted()
	}

	switch {
	case scope.WholeTenant():
	case scope.Denied():
		f.Role = predicate.Equal(ownerAttr, "owner", DenySentinel)
	default:
		f.Role = ownerClause(ownerAttr, scope.owners)
	}
	return f
}

func ownerClause(ownerAttr string, owners []string) predicate.Expr {
	if len(owners) == 1 {
		return predicate.Equal(ownerAttr, "owner", owners[0])
	}
	members := make([]predicate.Member, len(owners))
	for i, id := range owners {
		members[i] = predicate.Member{Param: fmt.Sprintf("owner%d", i), Value: id}
	}
	return predicate.In{Attr: ownerAttr, Members: members}
}

// Expr is the whole access predicate.
func (f Filter) Expr() predicate.Expr {
	return predicate.AllOf(f.Tenant, f.Deleted, f.Role)
}

// Residual is everything but the tenant clause, for stores that use the tenant
// equality as an index key condition.
func (f Filter) Residual() predicate.Expr {
	return predicate.AllOf(f.Deleted, f.Role)
}

func (f Filter) Params() (map[string]any, error) {
	return predicate.Params(f.Expr())
}
