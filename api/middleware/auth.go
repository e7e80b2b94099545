package middleware

import (
	"net/http"
	"strings"

	"github.com/dmarceau/storefront-backend/api/responses"
	pkgauth "github.com/dmarceau/storefront-backend/pkg/auth"
	"github.com/dmarceau/storefront-backend/pkg/config"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
	"github.com/dmarceau/storefront-backend/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

// Auth validates a bearer token and seeds the request context with the user
// and device identity. The device tag comes from the X-Device-Id header and
// is optional.
func Auth(cfg config.JWTConfig, verifier pkgauth.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if verifier != nil {
				if claims.ID == "" {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
					return
				}
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithDeviceID(ctx, deviceID)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				if deviceID != "" {
					ctx = logg.WithDeviceID(ctx, deviceID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
