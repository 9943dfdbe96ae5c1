package shared

import "context"

// Actor is the authenticated user attached to a request.
type Actor struct {
	Username string
	Name     string
	Role     string
}

// Roles recognised by the system.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleMekanik = "mekanik"
)

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The second return is
// false for unauthenticated requests.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
