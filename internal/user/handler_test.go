package user_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/transport"
	"github.com/frahmantamala/salescrm/internal/user"
)

type stubProfiles struct {
	profile *user.Profile
	err     error
}

func (s stubProfiles) GetProfile(_ context.Context, id identity.Identity) (*user.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.profile
	p.Identity = id
	return &p, nil
}

var _ = Describe("Handler", func() {
	me := identity.Identity{UserID: "m1", TenantID: "t1", Role: identity.RoleSalesManager}

	request := func(withIdentity bool) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if withIdentity {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), me))
		}
		return req
	}

	It("returns the caller's profile", func() {
		h := user.NewHandler(transport.NewBaseHandler(nil), stubProfiles{profile: &user.Profile{
			Visibility: user.Visibility{Owners: []string{"m1", "r1"}},
		}})
		w := httptest.NewRecorder()
		h.GetCurrentUser(w, request(true))

		Expect(w.Code).To(Equal(http.StatusOK))
		var body user.Profile
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Identity.UserID).To(Equal("m1"))
		Expect(body.Visibility.Owners).To(Equal([]string{"m1", "r1"}))
	})

	It("requires an identity", func() {
		h := user.NewHandler(transport.NewBaseHandler(nil), stubProfiles{})
		w := httptest.NewRecorder()
		h.GetCurrentUser(w, request(false))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps resolver failures to 500", func() {
		h := user.NewHandler(transport.NewBaseHandler(nil), stubProfiles{err: errors.Join(access.ErrResolveSubordinates, errors.New("timeout"))})
		w := httptest.NewRecorder()
		h.GetCurrentUser(w, request(true))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeHierarchyUnavailable)))
	})
})
