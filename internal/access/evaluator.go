package access

// Evaluator applies the access rules to a single record already in hand. Its answers
// match what BuildFilter selects in bulk for the same scope.
type Evaluator struct {
	IncludeDeleted bool
}

func (e Evaluator) CanAccess(record Owned, scope Scope) bool {
	if record == nil || record.RecordTenant() != scope.Identity.TenantID {
		return false
	}
	if record.SoftDeleted() && !e.IncludeDeleted {
		return false
	}
	return scope.CanViewOwner(record.RecordOwner())
}

// CanViewOwner answers whether records of ownerID are visible at all, before any
// record is fetched.
func (e Evaluator) CanViewOwner(ownerID string, scope Scope) bool {
	return scope.CanViewOwner(ownerID)
}
