package auth

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var accessCtxKey = &contextKey{"access"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithAccessContext stores the resolved Access in the context
func WithAccessContext(r context.Context, access Access) context.Context {
	r = context.WithValue(r, accessCtxKey, access)
	if access.User != nil {
		r = WithContext(r, access.User)
	}
	return r
}

// AccessFromContext extracts the Access, Anonymous when missing.
func AccessFromContext(ctx context.Context) Access {
	if ctx == nil {
		return Anonymous()
	}
	raw, ok := ctx.Value(accessCtxKey).(Access)
	if !ok {
		return Anonymous()
	}
	return raw
}

// Can is a convenience function to check a permission from the standard context
func Can(ctx context.Context, permission Permission) bool {
	return AccessFromContext(ctx).HasPermission(permission)
}

// HasRoleInContext checks the roles of the user stored in ctx
func HasRoleInContext(ctx context.Context, roles ...Role) bool {
	return AccessFromContext(ctx).HasRole(roles...)
}
