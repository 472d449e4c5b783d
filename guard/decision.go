package guard

import (
	auth "github.com/tokenestate/go-estate-auth"
)

// Decision is the outcome of evaluating a Requirement against an Access.
type Decision string

const (
	Allow               Decision = "allow"
	DenyUnauthenticated Decision = "deny_unauthenticated"
	DenyRole            Decision = "deny_role"
	DenyPermission      Decision = "deny_permission"
)

// Allowed reports whether the decision lets the request through.
func (d Decision) Allowed() bool {
	return d == Allow
}

// Requirement describes what a route or fragment needs. An empty Roles list
// accepts any role; an empty Permission skips the permission check.
type Requirement struct {
	Roles      []auth.Role
	Permission auth.Permission
}

// Authenticated requires a user and nothing else.
func Authenticated() Requirement {
	return Requirement{}
}

// Roles requires any one of roles.
func Roles(roles ...auth.Role) Requirement {
	return Requirement{Roles: roles}
}

// Permission requires a single capability.
func Permission(p auth.Permission) Requirement {
	return Requirement{Permission: p}
}

// WithPermission returns a copy of r that also requires p.
func (r Requirement) WithPermission(p auth.Permission) Requirement {
	r.Roles = append([]auth.Role(nil), r.Roles...)
	r.Permission = p
	return r
}

// Evaluate checks authentication, then roles, then the permission.
func (r Requirement) Evaluate(access auth.Access) Decision {
	if !access.IsAuthenticated || access.User == nil {
		return DenyUnauthenticated
	}
	if len(r.Roles) > 0 && !access.HasRole(r.Roles...) {
		return DenyRole
	}
	if r.Permission != "" && !access.HasPermission(r.Permission) {
		return DenyPermission
	}
	return Allow
}
