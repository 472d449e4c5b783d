package guard

import (
	"github.com/gofiber/fiber/v2"

	auth "github.com/tokenestate/go-estate-auth"
)

// Fragment is the soft guard: a denied request is answered by fallback
// instead of the guarded handler. A nil fallback answers with an empty 200.
func (g *Guard) Fragment(name string, req Requirement, fallback fiber.Handler) fiber.Handler {
	if fallback == nil {
		fallback = EmptyFragment
	}
	return func(c *fiber.Ctx) error {
		if g.Check(c, name, req).Allowed() {
			return c.Next()
		}
		return fallback(c)
	}
}

// EmptyFragment renders nothing.
func EmptyFragment(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("")
}

// Allowed reports whether req passes for c, recording the decision.
func (g *Guard) Allowed(c *fiber.Ctx, name string, req Requirement) bool {
	return g.Check(c, name, req).Allowed()
}

// Inline returns content when access satisfies req and fallback otherwise.
func Inline[T any](access auth.Access, req Requirement, content, fallback T) T {
	if req.Evaluate(access).Allowed() {
		return content
	}
	return fallback
}

// ViewHelpers returns the template helpers used by guarded views. On top of
// the auth helpers it adds:
//
//	{% if allowed(access, "canManageUsers", "admin") %}
//
// where the permission may be empty and any number of roles may follow.
func (g *Guard) ViewHelpers() map[string]any {
	return ViewHelpers()
}

// ViewHelpers is the package level variant of Guard.ViewHelpers.
func ViewHelpers() map[string]any {
	helpers := auth.TemplateHelpers()
	helpers["allowed"] = allowedHelper
	return helpers
}

func allowedHelper(v any, permission string, roles ...string) bool {
	var access auth.Access
	switch a := v.(type) {
	case auth.Access:
		access = a
	case *auth.Access:
		if a == nil {
			return false
		}
		access = *a
	default:
		return false
	}

	req := Requirement{Roles: auth.ParseRoles(roles...)}
	if len(roles) > 0 && len(req.Roles) == 0 {
		return false
	}
	if permission != "" {
		p, ok := auth.ParsePermission(permission)
		if !ok {
			return false
		}
		req.Permission = p
	}
	return req.Evaluate(access).Allowed()
}
