// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated actor of a request.
// It is the only identity type that reaches the domain layer.
type UserContext struct {
	UserID      string
	Name        string
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
	SessionID   string
}

// HasRole checks if the actor has a specific role.
func (u *UserContext) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// HasPermission checks if the actor carries a permission flag.
func (u *UserContext) HasPermission(perm string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Permissions, perm)
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if the user in ctx has a specific role.
func HasRole(ctx context.Context, role string) bool {
	return GetUser(ctx).HasRole(role)
}
