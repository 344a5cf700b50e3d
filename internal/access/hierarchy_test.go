package access_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/store/memory"
)

func seedUsers(ctx context.Context, s *memory.Store) {
	users := []store.Item{
		{"id": "a1", "tenantId": "t1", "role": "ADMIN"},
		{"id": "m1", "tenantId": "t1", "role": "SALES_MANAGER"},
		{"id": "r1", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1"},
		{"id": "r2", "tenantId": "t1", "role": "SALES_REP"},
		{"id": "r3", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "r1"},
		{"id": "r4", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1", "isDeleted": true},
		{"id": "r5", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1", "isDeleted": false},
		{"id": "m2", "tenantId": "t1", "role": "SALES_MANAGER", "reportingTo": "m1"},
		{"id": "r6", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m2"},
		{"id": "z1", "tenantId": "t2", "role": "SALES_REP", "reportingTo": "m1"},
	}
	for _, u := range users {
		Expect(s.Put(ctx, access.UsersTable, u)).To(Succeed())
	}
}

var _ = Describe("Resolver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("over the store directory", func() {
		var directory *access.StoreDirectory

		BeforeEach(func() {
			s := memory.New()
			seedUsers(ctx, s)
			directory = access.NewStoreDirectory(s)
		})

		It("finds direct, live, same-tenant reps only", func() {
			r := access.NewResolver(directory, discardLogger())
			subs, err := r.SubordinatesOf(ctx, "m1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(subs.Sorted()).To(Equal([]string{"r1", "r5"}))
		})

		It("returns an empty set for a manager without reports", func() {
			r := access.NewResolver(directory, discardLogger())
			subs, err := r.SubordinatesOf(ctx, "a1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(subs).To(BeEmpty())
		})

		It("follows every level in transitive mode", func() {
			r := access.NewResolver(directory, discardLogger(), access.WithTransitive(true))
			subs, err := r.SubordinatesOf(ctx, "m1", "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(subs.Sorted()).To(Equal([]string{"m2", "r1", "r3", "r5", "r6"}))
		})
	})

	It("issues one query filtered by manager, role, tenant and deletion", func() {
		dir := &countingDirectory{answer: func(access.UserQuery) ([]string, error) { return []string{"r1"}, nil }}
		r := access.NewResolver(dir, discardLogger())

		_, err := r.SubordinatesOf(ctx, "m1", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(dir.calls()).To(Equal(1))

		q := dir.queries[0]
		Expect(q.ReportingTo).To(Equal(predicate.Equal("reportingTo", "managerId", "m1")))
		params, err := predicate.Params(q.Expr())
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(Equal(map[string]any{
			"managerId":  "m1",
			"role":       "SALES_REP",
			"tenantId":   "t1",
			"notDeleted": false,
		}))
	})

	It("survives reporting cycles in transitive mode", func() {
		graph := map[string][]string{"m1": {"m2"}, "m2": {"m3"}, "m3": {"m1", "r1"}}
		dir := &countingDirectory{answer: func(q access.UserQuery) ([]string, error) {
			var out []string
			switch k := q.ReportingTo.(type) {
			case predicate.Eq:
				out = append(out, graph[k.Value.(string)]...)
			case predicate.In:
				for _, m := range k.Members {
					out = append(out, graph[m.Value.(string)]...)
				}
			}
			return out, nil
		}}
		r := access.NewResolver(dir, discardLogger(), access.WithTransitive(true))

		subs, err := r.SubordinatesOf(ctx, "m1", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(subs.Sorted()).To(Equal([]string{"m2", "m3", "r1"}))
		Expect(dir.calls()).To(Equal(4))
	})

	It("propagates directory failures by default", func() {
		boom := errors.New("directory unavailable")
		dir := &countingDirectory{answer: func(access.UserQuery) ([]string, error) { return nil, boom }}
		r := access.NewResolver(dir, discardLogger())

		_, err := r.SubordinatesOf(ctx, "m1", "t1")
		Expect(err).To(MatchError(access.ErrResolveSubordinates))
		Expect(err).To(MatchError(boom))
	})

	It("falls back to an empty set under the self-only policy", func() {
		dir := &countingDirectory{answer: func(access.UserQuery) ([]string, error) { return nil, errors.New("boom") }}
		r := access.NewResolver(dir, discardLogger(), access.WithFailurePolicy(access.SelfOnly))

		subs, err := r.SubordinatesOf(ctx, "m1", "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(subs).To(BeEmpty())
	})
})

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		dir    *countingDirectory
		engine *access.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = &countingDirectory{answer: func(access.UserQuery) ([]string, error) { return []string{"r1"}, nil }}
		engine = access.NewEngine(access.NewResolver(dir, discardLogger()), discardLogger())
	})

	It("resolves a manager scope with one directory call", func() {
		scope, err := engine.ResolveScope(ctx, manager)
		Expect(err).NotTo(HaveOccurred())
		Expect(scope.Owners()).To(Equal([]string{"m1", "r1"}))
		Expect(dir.calls()).To(Equal(1))
	})

	DescribeTable("resolves other roles without I/O",
		func(id identity.Identity, wholeTenant, denied bool) {
			scope, err := engine.ResolveScope(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(scope.WholeTenant()).To(Equal(wholeTenant))
			Expect(scope.Denied()).To(Equal(denied))
			Expect(dir.calls()).To(BeZero())
		},
		Entry("admin", admin, true, false),
		Entry("rep", rep, false, false),
		Entry("unknown role", auditor, false, true),
		Entry("missing tenant", identity.Identity{UserID: "m1", Role: identity.RoleSalesManager}, false, true),
	)

	It("builds the filter from the resolved scope", func() {
		f, scope, err := engine.BuildFilter(ctx, manager, "dealOwner", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(scope.CanViewOwner("r1")).To(BeTrue())
		Expect(predicate.Attributes(f.Expr())).To(ContainElement("dealOwner"))
	})

	It("returns resolver errors", func() {
		dir.answer = func(access.UserQuery) ([]string, error) { return nil, errors.New("down") }
		_, _, err := engine.BuildFilter(ctx, manager, "dealOwner", false)
		Expect(err).To(MatchError(access.ErrResolveSubordinates))
	})
})
