package resource

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/core/common/validation"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/core/predicate"
	"github.com/frahmantamala/salescrm/internal/transport"
)

// Reader is the read surface a Handler serves; *Service implements it.
type Reader[T access.Owned] interface {
	ListForUser(ctx context.Context, id identity.Identity, includeDeleted bool) ([]T, error)
	GetByIDForUser(ctx context.Context, recordID string, id identity.Identity) (T, error)
	GetByOwnerForUser(ctx context.Context, ownerID string, id identity.Identity) ([]T, error)
	SearchForUser(ctx context.Context, id identity.Identity, term string) ([]T, error)
	StatsForUser(ctx context.Context, id identity.Identity) (*Stats, error)
	FindByAttributeForUser(ctx context.Context, id identity.Identity, attr, value string) ([]T, error)
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

type Handler[T access.Owned] struct {
	*transport.BaseHandler
	Service Reader[T]
}

func NewHandler[T access.Owned](base *transport.BaseHandler, svc Reader[T]) *Handler[T] {
	return &Handler[T]{
		BaseHandler: base,
		Service:     svc,
	}
}

// Routes mounts the read endpoints of one resource on r.
func (h *Handler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	r.Get("/owner/{ownerID}", h.ByOwner)
	r.Get("/by/{attr}/{value}", h.ByAttribute)
	r.Get("/{id}", h.Get)
}

// List handles GET /. include_deleted is honoured for admins only.
func (h *Handler[T]) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	includeDeleted := false
	if raw := r.URL.Query().Get("include_deleted"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("include_deleted", "include_deleted must be a boolean", internal.ErrCodeInvalidQuery))
			return
		}
		includeDeleted = parsed && id.IsAdmin()
	}

	records, err := h.Service.ListForUser(r.Context(), id, includeDeleted)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, records)
}

func (h *Handler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	recordID := chi.URLParam(r, "id")
	if verr := validation.ValidateRecordID("id", recordID); verr != nil {
		h.WriteAppError(w, verr)
		return
	}

	record, err := h.Service.GetByIDForUser(r.Context(), recordID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler[T]) ByOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	if verr := validation.ValidateRecordID("owner_id", ownerID); verr != nil {
		h.WriteAppError(w, verr)
		return
	}

	records, err := h.Service.GetByOwnerForUser(r.Context(), ownerID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, records)
}

func (h *Handler[T]) Search(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	term := r.URL.Query().Get("q")
	if verr := validation.ValidateSearchTerm(term); verr != nil {
		h.WriteAppError(w, verr)
		return
	}

	records, err := h.Service.SearchForUser(r.Context(), id, term)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, records)
}

func (h *Handler[T]) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.StatsForUser(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler[T]) ByAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	attr, value := chi.URLParam(r, "attr"), chi.URLParam(r, "value")
	if verr := validation.ValidateLookup(attr, value); verr != nil {
		h.WriteAppError(w, verr)
		return
	}

	records, err := h.Service.FindByAttributeForUser(r.Context(), id, attr, value)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.writeList(w, records)
}

// HandleServiceError maps engine errors onto the HTTP error envelope.
func (h *Handler[T]) HandleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.WriteAppError(w, internal.ErrRecordNotFound)
	case errors.Is(err, ErrUnsupportedLookup):
		h.WriteAppError(w, internal.NewValidationError("attribute has no lookup index", internal.ErrCodeUnsupportedQuery).WithCause(err))
	case errors.Is(err, predicate.ErrInvalidName):
		h.WriteAppError(w, internal.NewValidationError("invalid attribute name", internal.ErrCodeInvalidQuery).WithCause(err))
	case errors.Is(err, access.ErrResolveSubordinates):
		h.WriteAppError(w, internal.NewInternalError("team hierarchy unavailable", err).WithCode(internal.ErrCodeHierarchyUnavailable))
	default:
		h.WriteAppError(w, internal.NewInternalError("internal server error", err))
	}
}

func (h *Handler[T]) identity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return identity.Identity{}, false
	}
	return id, true
}

func (h *Handler[T]) writeList(w http.ResponseWriter, records []T) {
	if records == nil {
		records = []T{}
	}
	h.WriteJSON(w, http.StatusOK, ListResponse[T]{Data: records, Count: len(records)})
}
