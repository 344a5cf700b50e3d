package access_test

import (
	"fmt"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
)

var (
	admin   = identity.Identity{UserID: "a1", TenantID: "t1", Role: identity.RoleAdmin}
	manager = identity.Identity{UserID: "m1", TenantID: "t1", Role: identity.RoleSalesManager}
	rep     = identity.Identity{UserID: "r1", TenantID: "t1", Role: identity.RoleSalesRep, ReportingTo: "m1"}
	auditor = identity.Identity{UserID: "x1", TenantID: "t1", Role: identity.NormalizeRole("auditor")}
)

var _ = Describe("BuildFilter", func() {
	It("puts the tenant clause first", func() {
		f := access.BuildFilter(access.NewScope(rep, nil), "dealOwner", false)
		and, ok := f.Expr().(predicate.And)
		Expect(ok).To(BeTrue())
		Expect(and[0]).To(Equal(predicate.Equal("tenantId", "tenantId", "t1")))
	})

	It("adds no role clause for admins", func() {
		f := access.BuildFilter(access.NewScope(admin, nil), "dealOwner", false)
		Expect(f.Role).To(BeNil())
		Expect(f.Deleted).NotTo(BeNil())
	})

	It("drops the soft-delete clause when deleted records are included", func() {
		f := access.BuildFilter(access.NewScope(admin, nil), "dealOwner", true)
		Expect(f.Expr()).To(Equal(predicate.Equal("tenantId", "tenantId", "t1")))
		Expect(f.Residual()).To(BeNil())
	})

	It("uses an equality for a manager without reports", func() {
		f := access.BuildFilter(access.NewScope(manager, nil), "dealOwner", false)
		Expect(f.Role).To(Equal(predicate.Equal("dealOwner", "owner", "m1")))
	})

	It("uses an IN with one parameter per owner for a manager with reports", func() {
		f := access.BuildFilter(access.NewScope(manager, access.NewSet("r2", "r1")), "dealOwner", false)
		Expect(f.Role).To(Equal(predicate.In{Attr: "dealOwner", Members: []predicate.Member{
			{Param: "owner0", Value: "m1"},
			{Param: "owner1", Value: "r1"},
			{Param: "owner2", Value: "r2"},
		}}))

		params, err := f.Params()
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(HaveKeyWithValue("tenantId", "t1"))
		Expect(params).To(HaveKeyWithValue("owner2", "r2"))
	})

	It("restricts a rep to their own records", func() {
		f := access.BuildFilter(access.NewScope(rep, access.NewSet("ignored")), "assignee", false)
		Expect(f.Role).To(Equal(predicate.Equal("assignee", "owner", "r1")))
	})

	It("denies unknown roles with the sentinel", func() {
		f := access.BuildFilter(access.NewScope(auditor, nil), "dealOwner", false)
		Expect(f.Role).To(Equal(predicate.Equal("dealOwner", "owner", access.DenySentinel)))
	})

	It("denies identities without a tenant", func() {
		f := access.BuildFilter(access.NewScope(identity.Identity{UserID: "a1", Role: identity.RoleAdmin}, nil), "dealOwner", false)
		Expect(f.Role).To(Equal(predicate.Equal("dealOwner", "owner", access.DenySentinel)))
	})

	It("is idempotent", func() {
		subs := access.NewSet("r1", "r2")
		first := access.BuildFilter(access.NewScope(manager, subs), "dealOwner", false)
		second := access.BuildFilter(access.NewScope(manager, access.NewSet("r2", "r1")), "dealOwner", false)
		Expect(predicate.Same(first.Expr(), second.Expr())).To(BeTrue())

		p1, _ := first.Params()
		p2, _ := second.Params()
		Expect(p1).To(Equal(p2))
	})

	It("renders to a store expression", func() {
		f := access.BuildFilter(access.NewScope(manager, access.NewSet("r1")), "dealOwner", false)
		out, err := predicate.RenderDynamo(f.Expr())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Expression).To(Equal(
			"#tenantId = :tenantId AND (#isDeleted = :notDeleted OR (attribute_not_exists(#isDeleted) OR attribute_type(#isDeleted, :nullType))) AND #dealOwner IN (:owner0, :owner1)"))
	})

	It("keeps every rendered IN within the DynamoDB operand limit", func() {
		reports := make([]string, 120)
		for i := range reports {
			reports[i] = fmt.Sprintf("r%03d", i)
		}
		f := access.BuildFilter(access.NewScope(manager, access.NewSet(reports...)), "dealOwner", false)
		out, err := predicate.RenderDynamo(f.Residual())
		Expect(err).NotTo(HaveOccurred())

		groups := regexp.MustCompile(`IN \(([^)]*)\)`).FindAllStringSubmatch(out.Expression, -1)
		Expect(groups).To(HaveLen(2))
		total := 0
		for _, g := range groups {
			n := len(strings.Split(g[1], ", "))
			Expect(n).To(BeNumerically("<=", predicate.MaxDynamoInOperands))
			total += n
		}
		Expect(total).To(Equal(121))
		Expect(out.Values).To(HaveKeyWithValue(":owner120", "r119"))
	})
})
