package tenant

import (
	"context"
	"errors"
	"strings"
)

var ErrMissingScope = errors.New("tenant scope missing from context")

// Scope identifies the tenant and the acting user for one operation.
type Scope struct {
	TenantID string
	ActorID  string
}

type scopeKey struct{}

func WithScope(ctx context.Context, s Scope) context.Context {
	s.TenantID = strings.TrimSpace(s.TenantID)
	s.ActorID = strings.TrimSpace(s.ActorID)
	return context.WithValue(ctx, scopeKey{}, s)
}

func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || s.TenantID == "" {
		return Scope{}, ErrMissingScope
	}
	return s, nil
}

// MustFromContext is for code paths where a handler or middleware has already
// verified the scope.
func MustFromContext(ctx context.Context) Scope {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}

func ID(ctx context.Context) (string, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	return s.TenantID, nil
}

func Actor(ctx context.Context) string {
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s.ActorID
}
