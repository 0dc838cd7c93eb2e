package auth

import (
	"context"
	"errors"
)

type contextKey struct{}

// ErrNoUserInContext indicates the request never passed the session guard.
var ErrNoUserInContext = errors.New("no user in context")

// SetUserInContext attaches validated session claims to a request context.
func SetUserInContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// GetUserFromContext returns the session claims attached by the guard.
func GetUserFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	if !ok || claims == nil {
		return nil, ErrNoUserInContext
	}
	return claims, nil
}
