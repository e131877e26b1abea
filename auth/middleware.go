package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hazyhaar/noticepanel/kit"
)

type claimsKey struct{}

// Middleware extracts a token from the Authorization Bearer header or, when
// absent, the "token" cookie. Valid claims are stored in the request context
// along with the kit caller user and role. Invalid or missing tokens are
// ignored here; handlers decide what an anonymous caller may do.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				if c, err := r.Cookie("token"); err == nil {
					tokenStr = c.Value
				}
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(secret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	ctx = kit.WithUserID(ctx, claims.UserID)
	return kit.WithRole(ctx, claims.Role)
}

// GetClaims retrieves the claims from ctx, or nil if absent.
func GetClaims(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// RequireScope rejects with 401 requests whose claims, set by Middleware,
// carry none of scopes.
func RequireScope(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetClaims(r.Context()).HasScope(scopes...) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="noticepanel"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
