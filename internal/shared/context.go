package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies the authenticated caller for the duration of a request.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, nil when unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
