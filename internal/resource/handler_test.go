package resource_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/store/memory"
	"github.com/frahmantamala/salescrm/internal/transport"
)

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// failingReader returns err from every operation
type failingReader struct {
	resource.Reader[testDeal]
	err error
}

func (f failingReader) ListForUser(context.Context, identity.Identity, bool) ([]testDeal, error) {
	return nil, f.err
}

var _ = Describe("Handler", func() {
	var (
		router    *chi.Mux
		directory *countingDirectory
	)

	serve := func(caller *identity.Identity, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if caller != nil {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), *caller))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	listIDs := func(w *httptest.ResponseRecorder) []string {
		Expect(w.Code).To(Equal(http.StatusOK))
		var body resource.ListResponse[testDeal]
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Count).To(Equal(len(body.Data)))
		return ids(body.Data)
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var body errorEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Error.Code
	}

	BeforeEach(func() {
		ctx := context.Background()
		users := memory.New()
		for _, u := range []store.Item{
			{"id": "m1", "tenantId": "t1", "role": "SALES_MANAGER"},
			{"id": "r1", "tenantId": "t1", "role": "SALES_REP", "reportingTo": "m1"},
		} {
			Expect(users.Put(ctx, access.UsersTable, u)).To(Succeed())
		}
		deals := memory.New()
		deleted := dealItem("D5", "t1", "r1", "Old renewal", "Acme", "lost", 10)
		deleted["isDeleted"] = true
		for _, d := range []store.Item{
			dealItem("D1", "t1", "r1", "Acme expansion", "Acme Corp", "won", 250000),
			dealItem("D2", "t1", "r2", "Globex pilot", "Globex", "open", 1000),
			deleted,
		} {
			Expect(deals.Put(ctx, "deals", d)).To(Succeed())
		}

		directory = &countingDirectory{UserDirectory: access.NewStoreDirectory(users)}
		engine := access.NewEngine(access.NewResolver(directory, discardLogger()), discardLogger())
		service := resource.NewService(dealDefinition, deals, engine, audit.Nop{}, discardLogger())
		handler := resource.NewHandler[testDeal](transport.NewBaseHandler(discardLogger()), service)

		router = chi.NewRouter()
		router.Route("/deals", handler.Routes)
	})

	It("lists what the caller may see", func() {
		Expect(listIDs(serve(&r1, "/deals"))).To(ConsistOf("D1"))
		Expect(listIDs(serve(&a1, "/deals"))).To(ConsistOf("D1", "D2"))
	})

	It("honours include_deleted for admins only", func() {
		Expect(listIDs(serve(&a1, "/deals?include_deleted=true"))).To(ConsistOf("D1", "D2", "D5"))
		Expect(listIDs(serve(&m1, "/deals?include_deleted=true"))).To(ConsistOf("D1"))
	})

	It("rejects a malformed include_deleted", func() {
		w := serve(&a1, "/deals?include_deleted=maybe")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("answers 404 for records outside the scope and for missing ones alike", func() {
		hidden := serve(&r1, "/deals/D2")
		missing := serve(&r1, "/deals/D404")
		Expect(hidden.Code).To(Equal(http.StatusNotFound))
		Expect(missing.Code).To(Equal(http.StatusNotFound))
		Expect(hidden.Body.String()).To(Equal(missing.Body.String()))
	})

	It("returns a visible record", func() {
		w := serve(&m1, "/deals/D1")
		Expect(w.Code).To(Equal(http.StatusOK))
		var d testDeal
		Expect(json.NewDecoder(w.Body).Decode(&d)).To(Succeed())
		Expect(d.DealName).To(Equal("Acme expansion"))
	})

	It("serves the owner, search, stats and lookup routes", func() {
		Expect(listIDs(serve(&m1, "/deals/owner/r1"))).To(ConsistOf("D1"))
		Expect(listIDs(serve(&m1, "/deals/owner/r2"))).To(BeEmpty())
		Expect(listIDs(serve(&a1, "/deals/search?q=globex"))).To(ConsistOf("D2"))
		Expect(listIDs(serve(&a1, "/deals/by/stage/won"))).To(ConsistOf("D1"))

		w := serve(&a1, "/deals/stats")
		Expect(w.Code).To(Equal(http.StatusOK))
		var stats resource.Stats
		Expect(json.NewDecoder(w.Body).Decode(&stats)).To(Succeed())
		Expect(stats.Total).To(Equal(2))
		Expect(stats.Groups["stage"]).To(HaveKeyWithValue("won", 1))
	})

	It("rejects lookups on attributes without an index", func() {
		w := serve(&a1, "/deals/by/accountName/Acme")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal(string(internal.ErrCodeUnsupportedQuery)))
	})

	It("rejects malformed owner ids", func() {
		w := serve(&a1, "/deals/owner/"+"r1%7C2")
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("requires an identity", func() {
		w := serve(nil, "/deals")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("reports hierarchy failures as server errors", func() {
		directory.err = fmt.Errorf("directory down")
		w := serve(&m1, "/deals")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(errorCode(w)).To(Equal(string(internal.ErrCodeHierarchyUnavailable)))
		Expect(w.Body.String()).NotTo(ContainSubstring("directory down"))
	})

	It("hides unexpected error text", func() {
		handler := resource.NewHandler[testDeal](transport.NewBaseHandler(discardLogger()), failingReader{err: fmt.Errorf("connection reset by peer")})
		router = chi.NewRouter()
		router.Route("/deals", handler.Routes)

		w := serve(&a1, "/deals")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("connection reset"))
	})
})
