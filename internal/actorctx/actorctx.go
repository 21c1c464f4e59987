// Package actorctx carries the authenticated caller through context.Context
// so code below the HTTP layer can attribute actions without depending on gin.
package actorctx

import (
	"context"

	"github.com/geocoder89/salesdesk/internal/domain/user"
)

type Actor struct {
	ID       int64
	Username string
	Role     user.Role
}

type key struct{}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, key{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(key{}).(Actor)
	return a, ok && a.ID != 0
}

// LogAttrs returns slog key/value pairs describing the actor, or nil.
func LogAttrs(ctx context.Context) []any {
	a, ok := From(ctx)
	if !ok {
		return nil
	}
	return []any{"actor_id", a.ID, "actor_role", string(a.Role)}
}
