package access

import "github.com/frahmantamala/salescrm/internal/core/identity"

type scopeMode int

const (
	scopeNone scopeMode = iota
	scopeTenant
	scopeOwners
)

// Scope is the visibility of one identity for the duration of one request. It is
// computed once and passed by value to every filter and per-record check.
type Scope struct {
	Identity identity.Identity
	mode     scopeMode
	owners   []string
}

// NewScope derives the scope of id given its subordinate set. Subordinates are only
// consulted for managers; invalid identities and unknown roles see nothing.
func NewScope(id identity.Identity, subordinates Set) Scope {
	scope := Scope{Identity: id}
	if !id.Valid() {
		return scope
	}

	switch id.Role {
	case identity.RoleAdmin:
		scope.mode = scopeTenant
	case identity.RoleSalesManager:
		scope.mode = scopeOwners
		scope.owners = []string{id.UserID}
		for _, sub := range subordinates.Sorted() {
			if sub != id.UserID {
				scope.owners = append(scope.owners, sub)
			}
		}
	case identity.RoleSalesRep:
		scope.mode = scopeOwners
		scope.owners = []string{id.UserID}
	}
	return scope
}

// WholeTenant reports whether the scope covers every owner in the tenant.
func (s Scope) WholeTenant() bool {
	return s.mode == scopeTenant
}

// Denied reports whether the scope matches nothing.
func (s Scope) Denied() bool {
	return s.mode == scopeNone
}

// Owners returns the visible owners, the caller first. It is empty for whole-tenant
// and denied scopes.
func (s Scope) Owners() []string {
	return append([]string(nil), s.owners...)
}

// CanViewOwner is the ownership-only check used before querying records of a given
// owner.
func (s Scope) CanViewOwner(ownerID string) bool {
	switch s.mode {
	case scopeTenant:
		return true
	case scopeOwners:
		for _, o := range s.owners {
			if o == ownerID {
				return true
			}
		}
	}
	return false
}
