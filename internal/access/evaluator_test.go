package access_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
)

func record(tenant, owner string, deleted any) access.ItemRecord {
	item := store.Item{"id": "rec", "tenantId": tenant, "dealOwner": owner}
	if deleted != nil {
		item["isDeleted"] = deleted
	}
	return access.ItemRecord{Item: item, OwnerAttr: "dealOwner"}
}

var _ = Describe("Evaluator", func() {
	managerScope := access.NewScope(manager, access.NewSet("r1"))

	DescribeTable("CanAccess",
		func(scope access.Scope, rec access.ItemRecord, includeDeleted, expected bool) {
			Expect(access.Evaluator{IncludeDeleted: includeDeleted}.CanAccess(rec, scope)).To(Equal(expected))
		},
		Entry("other tenant, even for admin", access.NewScope(admin, nil), record("t2", "a1", nil), false, false),
		Entry("deleted record", access.NewScope(admin, nil), record("t1", "r1", true), false, false),
		Entry("deleted record in include-deleted mode", access.NewScope(admin, nil), record("t1", "r1", true), true, true),
		Entry("admin sees any owner", access.NewScope(admin, nil), record("t1", "r9", false), false, true),
		Entry("manager sees own", managerScope, record("t1", "m1", nil), false, true),
		Entry("manager sees direct report", managerScope, record("t1", "r1", nil), false, true),
		Entry("manager does not see others", managerScope, record("t1", "r2", nil), false, false),
		Entry("rep sees own", access.NewScope(rep, nil), record("t1", "r1", nil), false, true),
		Entry("rep does not see manager", access.NewScope(rep, nil), record("t1", "m1", nil), false, false),
		Entry("unknown role sees nothing", access.NewScope(auditor, nil), record("t1", "x1", nil), false, false),
	)

	It("answers the owner-only check", func() {
		e := access.Evaluator{}
		Expect(e.CanViewOwner("r1", managerScope)).To(BeTrue())
		Expect(e.CanViewOwner("r2", managerScope)).To(BeFalse())
		Expect(e.CanViewOwner("anyone", access.NewScope(admin, nil))).To(BeTrue())
		Expect(e.CanViewOwner("x1", access.NewScope(auditor, nil))).To(BeFalse())
	})

	It("agrees with the bulk filter on every combination", func() {
		scopes := []access.Scope{
			access.NewScope(admin, nil),
			access.NewScope(manager, nil),
			managerScope,
			access.NewScope(manager, access.NewSet("r1", "r2")),
			access.NewScope(rep, nil),
			access.NewScope(auditor, nil),
			access.NewScope(identity.Identity{UserID: "r3", TenantID: "t2", Role: identity.RoleSalesRep}, nil),
		}
		tenants := []string{"t1", "t2"}
		owners := []string{"a1", "m1", "r1", "r2", "r3", "x1"}
		deletedFlags := []any{nil, false, true}

		for _, scope := range scopes {
			for _, includeDeleted := range []bool{false, true} {
				f := access.BuildFilter(scope, "dealOwner", includeDeleted)
				e := access.Evaluator{IncludeDeleted: includeDeleted}
				for _, tenant := range tenants {
					for _, owner := range owners {
						for _, deleted := range deletedFlags {
							rec := record(tenant, owner, deleted)
							Expect(e.CanAccess(rec, scope)).To(Equal(predicate.Eval(f.Expr(), rec.Item)),
								"scope=%s tenant=%s owner=%s deleted=%v include=%v",
								scope.Identity.UserID, tenant, owner, deleted, includeDeleted)
						}
					}
				}
			}
		}
	})
})
