package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/slotline/scheduling/libs/auth"
	"github.com/slotline/scheduling/libs/httpx"
)

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// actorID returns the token subject, or empty for unauthenticated routes.
func actorID(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Sub
	}
	return ""
}

func (a *API) requireRole(roles ...string) httpx.Middleware {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := auth.ParseAndVerifyHS256(strings.TrimPrefix(header, "Bearer "), a.jwtSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if !allowed[claims.Role] {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
