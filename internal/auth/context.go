package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// SystemActor is recorded when a change carries no caller identity.
const SystemActor = "system"

type ctxKey struct{}

// WithUserID stores the acting user on ctx, taking precedence over metadata.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// GetUserID returns the caller identity from the context or the x-user-id metadata.
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(ctxKey{}).(string); ok && val != "" {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 && strings.TrimSpace(val[0]) != "" {
			return strings.TrimSpace(val[0])
		}
	}
	return ""
}

// Actor picks the explicit actor, then the caller identity, then SystemActor.
func Actor(ctx context.Context, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if id := GetUserID(ctx); id != "" {
		return id
	}
	return SystemActor
}
