package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/s/leadBoard/internal/auth"
	"github.com/s/leadBoard/internal/cache"
)

type ctxKey int

const claimsKey ctxKey = iota

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims put there by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

// Authenticate requires a valid access token in the Authorization header.
// Websocket upgrades may pass it as ?token= since browsers cannot set headers there.
func Authenticate(tokens *auth.Manager, c *cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, "authorization token required", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(raw, auth.TypeAccess)
			if err != nil {
				writeError(w, err.Error(), http.StatusUnauthorized)
				return
			}
			if c.IsRevoked(r.Context(), claims.ID) {
				writeError(w, "token has been revoked", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequiredRole lets the request through only when the caller has one of roles.
func RequiredRole(roles ...uint) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, "authorization token required", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if claims.RoleID == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, "access denied: insufficient permissions", http.StatusForbidden)
		}
	}
}

// RemainingTTL is how long the token behind claims stays valid.
func RemainingTTL(claims *auth.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
