// Package auth carries the authenticated caller through the request context
// and provides role-gating middleware for the admin API.
package auth

import (
	"context"
	"log/slog"
)

// AuthUser is the authenticated caller of an admin operation. It is placed in
// the request context by the token middleware (or directly by callers that
// invoke the services in-process).
type AuthUser struct {
	UserId string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", u.UserId),
		slog.Any("roles", u.Roles),
	)
}

// HasRole reports whether the caller holds the given role.
func (u AuthUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds any of the given roles.
func (u AuthUser) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "simple-admin context value " + k.name
}

// AuthUserKey is the context key under which the AuthUser is stored.
var AuthUserKey = &contextKey{"AuthUser"}

// WithAuthUser returns a context carrying the given caller.
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// FromContext returns the AuthUser stored in the context, if any.
func FromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(AuthUserKey).(*AuthUser)
	return user, ok
}
