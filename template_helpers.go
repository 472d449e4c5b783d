package auth

import (
	"maps"
)

var (
	TemplateUserKey        = "current_user"
	TemplateAccessKey      = "access"
	TemplatePermissionsKey = "permissions"
)

// TemplateHelpers returns helper functions for django views.
//
// In templates, you can then use:
//
//	{% if is_authenticated(access) %}
//	{% if has_role(access, "manager", "admin") %}
//	{% if has_permission(access, "canManageUsers") %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"has_permission":   hasPermission,
		"role_label":       roleLabel,

		"roles": map[string]string{
			"user":    string(RoleUser),
			"manager": string(RoleManager),
			"admin":   string(RoleAdmin),
		},
	}
}

// TemplateHelpersWithAccess returns the helpers plus the current access, user
// and permission map.
func TemplateHelpersWithAccess(access Access) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateAccessKey] = access
	helpers[TemplatePermissionsKey] = access.Permissions.Map()
	if access.IsAuthenticated {
		helpers[TemplateUserKey] = access.User
	} else {
		helpers[TemplateUserKey] = nil
	}
	return helpers
}

// MergeTemplateData copies data over the helpers for access.
func MergeTemplateData(access Access, data map[string]any) map[string]any {
	out := TemplateHelpersWithAccess(access)
	maps.Copy(out, data)
	return out
}

func toAccess(v any) (Access, bool) {
	switch a := v.(type) {
	case Access:
		return a, true
	case *Access:
		if a == nil {
			return Anonymous(), false
		}
		return *a, true
	default:
		return Anonymous(), false
	}
}

func isAuthenticated(v any) bool {
	a, ok := toAccess(v)
	return ok && a.IsAuthenticated
}

func hasRole(v any, roles ...string) bool {
	a, ok := toAccess(v)
	if !ok {
		return false
	}
	return a.HasRole(ParseRoles(roles...)...)
}

func hasPermission(v any, key string) bool {
	a, ok := toAccess(v)
	if !ok {
		return false
	}
	p, known := ParsePermission(key)
	return known && a.HasPermission(p)
}

func roleLabel(v any) string {
	a, ok := toAccess(v)
	if !ok || !a.IsAuthenticated {
		return ""
	}
	switch a.Role() {
	case RoleAdmin:
		return "Administrator"
	case RoleManager:
		return "Property Manager"
	case RoleUser:
		return "Investor"
	default:
		return string(a.Role())
	}
}
