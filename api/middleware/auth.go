package middleware

import (
	"net/http"
	"strings"

	"github.com/commercezen/engine/api/responses"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/config"
	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/logger"
)

// RequireIdentity validates the bearer token and checks it names the active
// identity. A token for a previously active account is rejected so a stale
// client cannot act across an account switch.
func RequireIdentity(cfg config.JWTConfig, provider *identity.Provider, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				raw = strings.TrimSpace(raw[7:])
			}
			if raw == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeLoginRequired, "missing credentials"))
				return
			}

			claimed, err := identity.ParseToken(raw, cfg)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeLoginRequired, err, "invalid token"))
				return
			}

			current, ok := provider.Current()
			if !ok || current.ID != claimed.ID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeLoginRequired, "session is no longer active"))
				return
			}

			if logg != nil {
				ctx = logg.WithIdentity(ctx, current.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
