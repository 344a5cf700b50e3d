package resource_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/store/memory"
)

var (
	a1 = identity.Identity{UserID: "a1", TenantID: "t1", Role: identity.RoleAdmin}
	m1 = identity.Identity{UserID: "m1", TenantID: "t1", Role: identity.RoleSalesManager}
	r1 = identity.Identity{UserID: "r1", TenantID: "t1", Role: identity.RoleSalesRep, ReportingTo: "m1"}
	r2 = identity.Identity{UserID: "r2", TenantID: "t1", Role: identity.RoleSalesRep}
	// same user id as r1, different tenant
	foreign = identity.Identity{UserID: "r1", TenantID: "t2", Role: identity.RoleAdmin}
)

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		deals     *memory.Store
		records   *countingStore
		directory *countingDirectory
		sink      *recordingSink
		service   *resource.Service[testDeal]
	)

	BeforeEach(func() {
		ctx = context.Background()

		users := memory.New()
		for _, u := range []store.Item{
			{"id": "a1", "tenantId": "t1", "role": "ADMIN"},
			{"id": "m1", "tenantId": "t1", "role": "SALES_MANAGER"},
			{"id": "r1", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1"},
			{"id": "r2", "tenantId": "t1", "role": "SALES_REP"},
			{"id": "r3", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "r1"},
		} {
			Expect(users.Put(ctx, access.UsersTable, u)).To(Succeed())
		}

		deals = memory.New()
		deleted := dealItem("D5", "t1", "r1", "Old renewal", "Acme", "lost", 10)
		deleted["isDeleted"] = true
		legacy := dealItem("D7", "t1", "r2", "Legacy import", "Initech", "open", 75)
		delete(legacy, "isDeleted")
		for _, d := range []store.Item{
			dealItem("D1", "t1", "r1", "Acme expansion", "Acme Corp", "won", 250000),
			dealItem("D2", "t1", "r2", "Globex pilot", "Globex", "open", 1000),
			dealItem("D3", "t1", "m1", "Initech platform", "Initech", "won", 500.5),
			dealItem("D4", "t1", "r3", "Umbrella trial", "Umbrella", "open", 20),
			deleted,
			dealItem("D6", "t2", "r1", "Foreign deal", "Acme", "won", 99),
			legacy,
		} {
			Expect(deals.Put(ctx, "deals", d)).To(Succeed())
		}

		records = &countingStore{Store: deals}
		directory = &countingDirectory{UserDirectory: access.NewStoreDirectory(users)}
		sink = &recordingSink{}
		engine := access.NewEngine(access.NewResolver(directory, discardLogger()), discardLogger())
		service = resource.NewService(dealDefinition, records, engine, sink, discardLogger())
	})

	Describe("ListForUser", func() {
		It("matches the reference scenario", func() {
			expectations := map[*identity.Identity][]string{
				&a1: {"D1", "D2", "D3", "D4", "D7"},
				&m1: {"D1", "D3"},
				&r1: {"D1"},
				&r2: {"D2", "D7"},
			}
			for id, expected := range expectations {
				deals, err := service.ListForUser(ctx, *id, false)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(deals)).To(ConsistOf(expected), "caller %s", id.UserID)
			}
		})

		It("never leaks records across tenants", func() {
			deals, err := service.ListForUser(ctx, foreign, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(Equal([]string{"D6"}))

			for _, id := range []identity.Identity{a1, m1, r1, r2} {
				deals, err := service.ListForUser(ctx, id, true)
				Expect(err).NotTo(HaveOccurred())
				Expect(ids(deals)).NotTo(ContainElement("D6"))
			}
		})

		It("restricts reps to their own records", func() {
			deals, err := service.ListForUser(ctx, r1, false)
			Expect(err).NotTo(HaveOccurred())
			for _, d := range deals {
				Expect(d.DealOwner).To(Equal("r1"))
			}
		})

		It("excludes soft-deleted records unless asked for them", func() {
			deals, err := service.ListForUser(ctx, a1, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).NotTo(ContainElement("D5"))

			deals, err = service.ListForUser(ctx, a1, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(ContainElement("D5"))
		})

		It("queries the tenant index with the residual filter", func() {
			_, err := service.ListForUser(ctx, r1, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(records.queries).To(HaveLen(1))
			Expect(records.queries[0].Index).To(Equal("tenantId-index"))
			Expect(records.queries[0].KeyCondition.Value).To(Equal("t1"))
			Expect(records.scans).To(BeEmpty())
		})

		It("resolves a manager's subordinates once per request", func() {
			_, err := service.ListForUser(ctx, m1, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(directory.count()).To(Equal(1))
			Expect(records.roundTrips()).To(Equal(1))
		})

		It("does not touch the directory for other roles", func() {
			for _, id := range []identity.Identity{a1, r1} {
				_, err := service.ListForUser(ctx, id, false)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(directory.count()).To(BeZero())
		})

		It("returns an empty list for unknown roles", func() {
			deals, err := service.ListForUser(ctx, identity.Identity{UserID: "x1", TenantID: "t1", Role: "AUDITOR"}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(deals).To(BeEmpty())
			Expect(sink.last().Granted).To(BeFalse())
		})

		It("fails closed when the hierarchy cannot be resolved", func() {
			directory.err = errors.New("directory down")
			_, err := service.ListForUser(ctx, m1, false)
			Expect(err).To(MatchError(access.ErrResolveSubordinates))
		})

		It("skips records that do not decode", func() {
			broken := dealItem("X2", "t1", "r1", "Broken import", "Acme", "open", 0)
			broken["amount"] = "not-a-number"
			Expect(deals.Put(ctx, "deals", broken)).To(Succeed())

			got, err := service.ListForUser(ctx, r1, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(got)).To(Equal([]string{"D1"}))
		})

		It("reports the decision", func() {
			_, err := service.ListForUser(ctx, m1, false)
			Expect(err).NotTo(HaveOccurred())
			d := sink.last()
			Expect(d.Operation).To(Equal(audit.OpList))
			Expect(d.Resource).To(Equal("deal"))
			Expect(d.UserID).To(Equal("m1"))
			Expect(d.Granted).To(BeTrue())
			Expect(d.Count).To(Equal(2))
		})
	})

	Describe("GetByIDForUser", func() {
		It("hides records outside the caller's scope as not found", func() {
			_, err := service.GetByIDForUser(ctx, "D2", r1)
			Expect(err).To(MatchError(resource.ErrNotFound))
			Expect(sink.last().Granted).To(BeFalse())
			Expect(sink.last().ResourceID).To(Equal("D2"))
		})

		It("returns records inside the scope", func() {
			deal, err := service.GetByIDForUser(ctx, "D2", a1)
			Expect(err).NotTo(HaveOccurred())
			Expect(deal.DealName).To(Equal("Globex pilot"))
			Expect(deal.Amount.Equal(decimal.NewFromInt(1000))).To(BeTrue())
			Expect(deal.CreatedAt.IsZero()).To(BeFalse())
		})

		It("lets a manager read a direct report's record", func() {
			_, err := service.GetByIDForUser(ctx, "D1", m1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GetByIDForUser(ctx, "D4", m1)
			Expect(err).To(MatchError(resource.ErrNotFound))
		})

		It("hides other tenants without resolving the hierarchy", func() {
			_, err := service.GetByIDForUser(ctx, "D6", m1)
			Expect(err).To(MatchError(resource.ErrNotFound))
			Expect(directory.count()).To(BeZero())
		})

		It("hides soft-deleted records", func() {
			_, err := service.GetByIDForUser(ctx, "D5", a1)
			Expect(err).To(MatchError(resource.ErrNotFound))
		})

		It("reports missing records as not found", func() {
			_, err := service.GetByIDForUser(ctx, "nope", a1)
			Expect(err).To(MatchError(resource.ErrNotFound))
		})

		It("reports a malformed record of another tenant like a missing one", func() {
			broken := dealItem("X1", "t2", "r1", "Broken import", "Acme", "open", 0)
			broken["amount"] = "not-a-number"
			Expect(deals.Put(ctx, "deals", broken)).To(Succeed())

			_, err := service.GetByIDForUser(ctx, "X1", r1)
			Expect(err).To(MatchError(resource.ErrNotFound))
			Expect(sink.last().Granted).To(BeFalse())
			Expect(directory.count()).To(BeZero())
		})
	})

	Describe("GetByOwnerForUser", func() {
		It("lists a direct report's records for a manager", func() {
			deals, err := service.GetByOwnerForUser(ctx, "r1", m1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(Equal([]string{"D1"}))
			Expect(records.queries[0].Index).To(Equal("dealOwner-index"))
		})

		It("returns an empty list for owners outside the scope", func() {
			deals, err := service.GetByOwnerForUser(ctx, "r2", m1)
			Expect(err).NotTo(HaveOccurred())
			Expect(deals).To(BeEmpty())
			Expect(records.roundTrips()).To(BeZero())
		})

		It("does not cross tenants for the same owner id", func() {
			deals, err := service.GetByOwnerForUser(ctx, "r1", a1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(Equal([]string{"D1"}))
		})
	})

	Describe("SearchForUser", func() {
		It("matches any search field case-insensitively", func() {
			deals, err := service.SearchForUser(ctx, a1, "ACME")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(Equal([]string{"D1"}))

			deals, err = service.SearchForUser(ctx, a1, "250000")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(Equal([]string{"D1"}))
		})

		It("never widens visibility", func() {
			deals, err := service.SearchForUser(ctx, r1, "globex")
			Expect(err).NotTo(HaveOccurred())
			Expect(deals).To(BeEmpty())
		})

		It("returns the visible list for an empty term", func() {
			deals, err := service.SearchForUser(ctx, m1, "  ")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(ConsistOf("D1", "D3"))
		})
	})

	Describe("StatsForUser", func() {
		It("groups visible records and totals the amount", func() {
			stats, err := service.StatsForUser(ctx, m1)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(2))
			Expect(stats.Groups["stage"]).To(Equal(map[string]int{"won": 2}))
			Expect(stats.Amount.Sum.String()).To(Equal("250500.5"))
			Expect(stats.Amount.Average.String()).To(Equal("125250.25"))
		})

		It("counts each record once per dimension", func() {
			stats, err := service.StatsForUser(ctx, a1)
			Expect(err).NotTo(HaveOccurred())
			sum := 0
			for _, n := range stats.Groups["stage"] {
				sum += n
			}
			Expect(sum).To(Equal(stats.Total))
		})
	})

	Describe("FindByAttributeForUser", func() {
		It("evaluates each looked-up record against one scope", func() {
			deals, err := service.FindByAttributeForUser(ctx, m1, "stage", "won")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(deals)).To(ConsistOf("D1", "D3"))
			Expect(directory.count()).To(Equal(1))
			Expect(records.queries[0].Index).To(Equal("stage-index"))
		})

		It("rejects attributes without a lookup index", func() {
			_, err := service.FindByAttributeForUser(ctx, a1, "accountName", "Acme")
			Expect(err).To(MatchError(resource.ErrUnsupportedLookup))
		})
	})
})
