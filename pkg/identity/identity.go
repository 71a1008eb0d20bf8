// Package identity supplies the acting user to the workflow engine.
//
// The engine trusts the Actor it is given. In-process callers attach one to
// the context; the CLI derives it from an HS256-signed bearer token.
package identity

import (
	"context"
	"errors"

	"github.com/unisdr/delta/pkg/approval"
)

// Actor is the authenticated user behind a request.
type Actor struct {
	UserID string        `json:"user_id"`
	Role   approval.Role `json:"role"`
}

// ErrNoActor is returned when no actor is attached to a context.
var ErrNoActor = errors.New("no actor in context")

type contextKey string

const actorKey contextKey = "actor"

// WithActor attaches an Actor to the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext retrieves the Actor from the context.
func FromContext(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok {
		return Actor{}, ErrNoActor
	}
	return a, nil
}
