package internal

import (
	"context"

	"github.com/frahmantamala/salescrm/internal/core/identity"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

// IdentityFromContext returns the caller placed on the request by the authentication
// middleware.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	id, ok := ctx.Value(ContextIdentityKey).(identity.Identity)
	return id, ok
}

func ContextWithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}
