package auth

// Permission names a capability in the PermissionSet.
type Permission string

const (
	PermAccessAdmin        Permission = "canAccessAdmin"
	PermAccessOwner        Permission = "canAccessOwner"
	PermManageProperties   Permission = "canManageProperties"
	PermManageUsers        Permission = "canManageUsers"
	PermValidateProperties Permission = "canValidateProperties"
	PermAccessDashboard    Permission = "canAccessDashboard"
)

// AllPermissions lists every permission key in a stable order
func AllPermissions() []Permission {
	return []Permission{
		PermAccessAdmin,
		PermAccessOwner,
		PermManageProperties,
		PermManageUsers,
		PermValidateProperties,
		PermAccessDashboard,
	}
}

// ParsePermission returns the permission named by key, if any.
func ParsePermission(key string) (Permission, bool) {
	for _, p := range AllPermissions() {
		if string(p) == key {
			return p, true
		}
	}
	return "", false
}

// PermissionSet is derived from a user and never persisted.
type PermissionSet struct {
	CanAccessAdmin        bool `json:"canAccessAdmin"`
	CanAccessOwner        bool `json:"canAccessOwner"`
	CanManageProperties   bool `json:"canManageProperties"`
	CanManageUsers        bool `json:"canManageUsers"`
	CanValidateProperties bool `json:"canValidateProperties"`
	CanAccessDashboard    bool `json:"canAccessDashboard"`
}

// Has looks up a single permission. Unknown keys are never granted.
func (p PermissionSet) Has(key Permission) bool {
	switch key {
	case PermAccessAdmin:
		return p.CanAccessAdmin
	case PermAccessOwner:
		return p.CanAccessOwner
	case PermManageProperties:
		return p.CanManageProperties
	case PermManageUsers:
		return p.CanManageUsers
	case PermValidateProperties:
		return p.CanValidateProperties
	case PermAccessDashboard:
		return p.CanAccessDashboard
	default:
		return false
	}
}

// Map exposes the set keyed by permission name, handy for views.
func (p PermissionSet) Map() map[string]bool {
	out := make(map[string]bool, 6)
	for _, key := range AllPermissions() {
		out[string(key)] = p.Has(key)
	}
	return out
}

// ResolvePermissions derives the permission set for a user. It is pure: the
// same input always yields the same output, and every permission is false
// when the caller is not authenticated, whatever the user record says.
func ResolvePermissions(user *User, isAuthenticated bool) PermissionSet {
	if !isAuthenticated || user == nil {
		return PermissionSet{}
	}

	role := user.Role
	return PermissionSet{
		CanAccessAdmin:        role == RoleAdmin,
		CanAccessOwner:        role.In(RoleManager, RoleAdmin),
		CanManageProperties:   role.In(RoleManager, RoleAdmin),
		CanManageUsers:        role == RoleAdmin,
		CanValidateProperties: role == RoleAdmin,
		CanAccessDashboard:    true,
	}
}

// Access is the resolver output consumed by guards: who is acting and what
// they may do.
type Access struct {
	User            *User
	IsAuthenticated bool
	Permissions     PermissionSet
}

// NewAccess resolves the access for the given user.
func NewAccess(user *User, isAuthenticated bool) Access {
	return Access{
		User:            user,
		IsAuthenticated: isAuthenticated && user != nil,
		Permissions:     ResolvePermissions(user, isAuthenticated),
	}
}

// Anonymous is the access of a logged out client
func Anonymous() Access {
	return Access{}
}

// Role returns the current role, or "" when unauthenticated.
func (a Access) Role() Role {
	if !a.IsAuthenticated || a.User == nil {
		return ""
	}
	return a.User.Role
}

// HasRole reports whether the current user holds any of the required roles.
// An empty requirement is never satisfied.
func (a Access) HasRole(required ...Role) bool {
	if !a.IsAuthenticated || a.User == nil || len(required) == 0 {
		return false
	}
	return a.User.Role.In(required...)
}

// HasPermission looks the key up in the permission set.
func (a Access) HasPermission(key Permission) bool {
	return a.Permissions.Has(key)
}

// AccessProvider exposes the access of whoever is currently signed in.
type AccessProvider interface {
	Access() Access
}

// AccessProviderFunc adapts a function to the AccessProvider interface.
type AccessProviderFunc func() Access

// Access implements AccessProvider.
func (f AccessProviderFunc) Access() Access {
	if f == nil {
		return Anonymous()
	}
	return f()
}

// StaticAccess always returns the same access
func StaticAccess(a Access) AccessProvider {
	return AccessProviderFunc(func() Access { return a })
}
