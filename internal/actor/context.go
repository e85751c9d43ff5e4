// Package actor carries the authenticated caller identity through context.
package actor

import (
	"context"

	"github.com/google/uuid"
)

// Role identifies which side of an appointment the caller is on.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type ctxKey string

const actorKey ctxKey = "sahatak.actor"

// WithActor stores the actor in context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext extracts the actor if present.
func FromContext(ctx context.Context) (Actor, bool) {
	val := ctx.Value(actorKey)
	if val == nil {
		return Actor{}, false
	}
	a, ok := val.(Actor)
	return a, ok && a.ID != uuid.Nil
}
