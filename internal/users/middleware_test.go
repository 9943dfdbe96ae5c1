package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

type staticLookup struct {
	users map[string]User
}

func (l *staticLookup) ByUsername(ctx context.Context, username string) (User, error) {
	u, ok := l.users[username]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func okHandler(captured *shared.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := shared.ActorFromContext(r.Context()); ok && captured != nil {
			*captured = actor
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityResolvesHeader(t *testing.T) {
	lookup := &staticLookup{users: map[string]User{
		"budi": {Username: "budi", Name: "Budi", Role: shared.RoleMekanik},
	}}
	var got shared.Actor
	h := Identity(lookup)(okHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "budi")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "budi", got.Username)
	require.Equal(t, shared.RoleMekanik, got.Role)
}

func TestIdentityRejectsMissingAndUnknownUsers(t *testing.T) {
	lookup := &staticLookup{users: map[string]User{}}
	h := Identity(lookup)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "ghost")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(shared.RoleOwner)(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := shared.ContextWithActor(req.Context(), shared.Actor{Username: "boss", Role: shared.RoleOwner})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	ctx = shared.ContextWithActor(req.Context(), shared.Actor{Username: "budi", Role: shared.RoleMekanik})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// No identity at all.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
