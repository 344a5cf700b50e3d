package predicate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal/core/predicate"
)

var _ = Describe("Predicate", func() {
	var tenantAndOwner predicate.Expr

	BeforeEach(func() {
		tenantAndOwner = predicate.AllOf(
			predicate.Equal("tenantId", "tenantId", "t1"),
			predicate.AnyOf(
				predicate.Equal("isDeleted", "notDeleted", false),
				predicate.Absent{Attr: "isDeleted"},
			),
			predicate.In{Attr: "dealOwner", Members: []predicate.Member{
				{Param: "owner0", Value: "m1"},
				{Param: "owner1", Value: "r1"},
			}},
		)
	})

	Describe("AllOf and AnyOf", func() {
		It("drops nil expressions and unwraps a single child", func() {
			eq := predicate.Equal("a", "a", 1)
			Expect(predicate.AllOf(nil, eq, nil)).To(Equal(eq))
			Expect(predicate.AnyOf(eq)).To(Equal(eq))
			Expect(predicate.AllOf()).To(BeNil())
		})
	})

	Describe("Params", func() {
		It("collects every bound value", func() {
			params, err := predicate.Params(tenantAndOwner)
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(Equal(map[string]any{
				"tenantId":   "t1",
				"notDeleted": false,
				"owner0":     "m1",
				"owner1":     "r1",
			}))
		})

		It("rejects one parameter bound to two values", func() {
			expr := predicate.AllOf(
				predicate.Equal("a", "p", 1),
				predicate.Equal("b", "p", 2),
			)
			_, err := predicate.Params(expr)
			Expect(err).To(MatchError(predicate.ErrParamCollision))
		})

		It("accepts one parameter reused for the same value", func() {
			expr := predicate.AllOf(
				predicate.Equal("a", "p", 1),
				predicate.Equal("b", "p", int64(1)),
			)
			params, err := predicate.Params(expr)
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(HaveLen(1))
		})

		It("rejects malformed parameter names", func() {
			_, err := predicate.Params(predicate.Equal("a", "bad-name", 1))
			Expect(err).To(MatchError(predicate.ErrInvalidName))
		})
	})

	Describe("Attributes", func() {
		It("lists the referenced attributes once, sorted", func() {
			Expect(predicate.Attributes(tenantAndOwner)).To(Equal([]string{"dealOwner", "isDeleted", "tenantId"}))
		})
	})

	Describe("Same", func() {
		It("ignores parameter names and clause order", func() {
			other := predicate.AllOf(
				predicate.In{Attr: "dealOwner", Members: []predicate.Member{
					{Param: "x1", Value: "r1"},
					{Param: "x0", Value: "m1"},
				}},
				predicate.Equal("tenantId", "tid", "t1"),
				predicate.AnyOf(
					predicate.Absent{Attr: "isDeleted"},
					predicate.Equal("isDeleted", "flag", false),
				),
			)
			Expect(predicate.Same(tenantAndOwner, other)).To(BeTrue())
		})

		It("distinguishes different bound values", func() {
			Expect(predicate.Same(
				predicate.Equal("tenantId", "p", "t1"),
				predicate.Equal("tenantId", "p", "t2"),
			)).To(BeFalse())
		})
	})

	Describe("Eval", func() {
		It("matches an item satisfying every clause", func() {
			Expect(predicate.Eval(tenantAndOwner, map[string]any{
				"tenantId": "t1", "dealOwner": "r1",
			})).To(BeTrue())
		})

		DescribeTable("rejects items failing a clause",
			func(item map[string]any) {
				Expect(predicate.Eval(tenantAndOwner, item)).To(BeFalse())
			},
			Entry("other tenant", map[string]any{"tenantId": "t2", "dealOwner": "r1"}),
			Entry("deleted", map[string]any{"tenantId": "t1", "dealOwner": "r1", "isDeleted": true}),
			Entry("foreign owner", map[string]any{"tenantId": "t1", "dealOwner": "r2"}),
			Entry("missing owner", map[string]any{"tenantId": "t1"}),
			Entry("nil owner", map[string]any{"tenantId": "t1", "dealOwner": nil}),
		)

		It("treats numbers of different kinds as equal", func() {
			Expect(predicate.Eval(predicate.Equal("amount", "a", 100), map[string]any{"amount": float64(100)})).To(BeTrue())
		})

		It("matches everything for a nil expression and nothing for an empty OR", func() {
			Expect(predicate.Eval(nil, map[string]any{})).To(BeTrue())
			Expect(predicate.Eval(predicate.Or{}, map[string]any{})).To(BeFalse())
			Expect(predicate.Eval(predicate.And{}, map[string]any{})).To(BeTrue())
		})
	})
})
