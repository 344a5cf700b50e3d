package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/transport"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, id identity.Identity) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, access.ErrResolveSubordinates) {
			h.WriteAppError(w, internal.NewInternalError("team hierarchy unavailable", err).WithCode(internal.ErrCodeHierarchyUnavailable))
			return
		}
		h.WriteAppError(w, internal.NewInternalError("internal server error", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}
