package access

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/core/identity"
)

// Engine resolves scopes. It keeps no state between calls.
type Engine struct {
	resolver *Resolver
	logger   *slog.Logger
}

func NewEngine(resolver *Resolver, logger *slog.Logger) *Engine {
	return &Engine{resolver: resolver, logger: logger}
}

// ResolveScope computes the caller's scope. Managers cost one directory round trip;
// every other role is resolved without I/O.
func (e *Engine) ResolveScope(ctx context.Context, id identity.Identity) (Scope, error) {
	if !id.Valid() || !id.Role.IsKnown() {
		e.logger.Warn("identity resolved to an empty scope",
			"user_id", id.UserID,
			"tenant_id", id.TenantID,
			"role", id.Role.String())
		return NewScope(id, nil), nil
	}
	if id.Role != identity.RoleSalesManager {
		return NewScope(id, nil), nil
	}

	subs, err := e.resolver.SubordinatesOf(ctx, id.UserID, id.TenantID)
	if err != nil {
		return Scope{}, err
	}
	e.logger.Debug("resolved manager scope",
		"user_id", id.UserID,
		"tenant_id", id.TenantID,
		"subordinates", len(subs))
	return NewScope(id, subs), nil
}

// BuildFilter resolves the scope of id and builds its filter for one resource.
func (e *Engine) BuildFilter(ctx context.Context, id identity.Identity, ownerAttr string, includeDeleted bool) (Filter, Scope, error) {
	scope, err := e.ResolveScope(ctx, id)
	if err != nil {
		return Filter{}, Scope{}, err
	}
	return BuildFilter(scope, ownerAttr, includeDeleted), scope, nil
}
