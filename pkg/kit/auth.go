package kit

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ctxKey string

const principalKey ctxKey = "principal"

type Principal struct {
	Subject string
	Role    string
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireRole admits requests carrying a valid bearer token whose role is
// one of roles.
func RequireRole(tm *TokenMaker, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(strings.TrimPrefix(authz, "Bearer "))
			if err != nil || claims.Subject == "" {
				WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			if !hasRole(claims.Role, roles) {
				WriteError(w, r, http.StatusForbidden, "forbidden", nil)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, Principal{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasRole(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// RequireStaticToken guards an endpoint with a fixed bearer token. An empty
// token locks the endpoint entirely.
func RequireStaticToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
