package auth

import "strings"

// Role is the backend-assigned capability tier of a user.
type Role string

const (
	// RoleUser is the default tier (dashboard only)
	RoleUser Role = "user"
	// RoleManager manages properties and sees the owner area
	RoleManager Role = "manager"
	// RoleAdmin has every capability, including user management
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// In reports whether r is a member of roles. Order and duplicates are
// irrelevant.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Rank orders roles by capability. Unknown roles rank below RoleUser.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// IsAtLeast reports whether r carries at least the capabilities of other.
func (r Role) IsAtLeast(other Role) bool {
	return r.IsValid() && r.Rank() >= other.Rank()
}

// GetAllRoles returns all predefined roles in ascending order of capability
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleManager,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// ParseRoles parses a list of role names, skipping unknown entries.
func ParseRoles(names ...string) []Role {
	out := make([]Role, 0, len(names))
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			if role, ok := ParseRole(part); ok {
				out = append(out, role)
			}
		}
	}
	return out
}
