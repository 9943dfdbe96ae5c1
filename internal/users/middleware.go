package users

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// RoleLookup is the subset of the repository the middleware needs.
type RoleLookup interface {
	ByUsername(ctx context.Context, username string) (User, error)
}

// Identity resolves the X-User header to an account and stores the actor in
// the request context. Requests without a resolvable identity get 401.
func Identity(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimSpace(r.Header.Get("X-User"))
			if username == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing X-User header")
				return
			}

			u, err := lookup.ByUsername(r.Context(), username)
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown user")
				return
			}
			if err != nil {
				httpx.RespondError(w, err)
				return
			}

			actor := shared.Actor{Username: u.Username, Name: u.Name, Role: u.Role}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireRole gates a subtree to the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
