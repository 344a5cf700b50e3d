package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/auth"
	"github.com/frahmantamala/salescrm/internal/transport"
	"github.com/frahmantamala/salescrm/pkg/logger"
)

// Authenticate verifies the bearer token and places the caller identity on the
// request context. Requests without a valid token never reach a handler.
func Authenticate(verifier auth.TokenVerifier, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := transport.BearerToken(r)
			if token == "" {
				base.WriteAppError(w, internal.ErrMissingToken)
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				logger.From(r.Context()).Warn("token validation failed", "error", err)
				if errors.Is(err, auth.ErrTokenExpired) {
					base.WriteAppError(w, internal.ErrTokenExpired)
				} else {
					base.WriteAppError(w, internal.ErrInvalidToken)
				}
				return
			}

			ctx := internal.ContextWithIdentity(r.Context(), id)
			ctx = logger.With(ctx, "user_id", id.UserID, "tenant_id", id.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
