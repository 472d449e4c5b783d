package portal

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/chain"
	"github.com/tokenestate/go-estate-auth/guard"
	"github.com/tokenestate/go-estate-auth/rolesync"
)

func (s *Server) home(c *fiber.Ctx) error {
	props, err := s.directory.PublicProperties(c.UserContext())
	notice := ""
	if err != nil {
		s.logger.Warn("public properties unavailable", "error", err)
		notice = "Listings are unavailable right now."
	}
	return s.render(c, "home", fiber.Map{
		"properties": props,
		"notice":     notice,
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	status, err := s.directory.Health(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(auth.HealthStatus{
			Status:  "unavailable",
			Message: err.Error(),
		})
	}
	return c.JSON(status)
}

func (s *Server) loginShow(c *fiber.Ctx) error {
	if s.session.Access().IsAuthenticated {
		return c.Redirect(s.guard.RedirectTarget(c, s.homePath), fiber.StatusSeeOther)
	}
	return s.render(c, "login", fiber.Map{
		"redirect": c.Query(guard.RedirectQueryKey),
		"errors":   nil,
		"record":   fiber.Map{},
	})
}

// LoginPayload is the login form.
type LoginPayload struct {
	Wallet   string `form:"wallet" json:"wallet"`
	Name     string `form:"name" json:"name"`
	Redirect string `form:"redirect" json:"redirect"`
}

func (s *Server) loginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		s.logger.Error("login parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).Render("login", s.loginData(c, payload, "Failed to parse form"), layout)
	}

	user, err := s.session.Login(c.UserContext(), payload.Wallet, payload.Name)
	if err != nil {
		s.logger.Info("login rejected", "kind", auth.ErrorKind(err), "error", err)
		return c.Status(statusFor(err)).Render("login", s.loginData(c, payload, loginMessage(err)), layout)
	}

	s.logger.Info("login", "user", user.ID, "role", user.Role)

	target := payload.Redirect
	if !guard.IsLocalPath(target) {
		target = s.guard.RedirectTarget(c, s.homePath)
	} else {
		s.guard.ClearRejectedRoute(c)
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (s *Server) loginData(c *fiber.Ctx, payload *LoginPayload, message string) fiber.Map {
	data := auth.MergeTemplateData(auth.Anonymous(), fiber.Map{
		"redirect":   payload.Redirect,
		"errors":     fiber.Map{"form": message},
		"record":     payload,
		"login_path": s.loginPath,
	})
	for k, v := range s.guard.ViewHelpers() {
		data[k] = v
	}
	return data
}

func loginMessage(err error) string {
	var perr *auth.ProvisionError
	switch {
	case asProvision(err, &perr):
		return "We could not create your account."
	case auth.IsValidation(err):
		return "That does not look like a wallet address."
	case auth.IsNetwork(err):
		return "The server could not be reached. Try again."
	default:
		return "Sign in failed."
	}
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.session.Logout(c.UserContext()); err != nil {
		s.logger.Warn("logout", "error", err)
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	props, err := s.directory.Properties(c.UserContext())
	notice := ""
	if err != nil {
		s.logger.Warn("properties unavailable", "error", err)
		notice = "Your properties could not be loaded."
	}
	return s.render(c, "dashboard", fiber.Map{
		"properties": props,
		"notice":     notice,
	})
}

func (s *Server) owner(c *fiber.Ctx) error {
	props, err := s.directory.Properties(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, "owner", fiber.Map{
		"properties": props,
	})
}

func (s *Server) adminHome(c *fiber.Ctx) error {
	data := fiber.Map{
		"roles_enabled": s.syncer != nil,
		"role_types":    chain.RoleTypes(),
	}
	if s.feed != nil {
		data["activity"] = s.feed.Recent(20)
	}
	return s.render(c, "admin", data)
}

func (s *Server) adminUsers(c *fiber.Ctx) error {
	users, err := s.directory.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return s.render(c, "users", fiber.Map{
		"users": users,
	})
}

// GrantRolePayload is the role grant form. Properties is a comma separated
// list of on-chain property ids.
type GrantRolePayload struct {
	UserID     string `form:"user_id" json:"user_id"`
	Grantee    string `form:"grantee" json:"grantee"`
	Role       string `form:"role" json:"role"`
	Properties string `form:"properties" json:"properties"`
}

// Request converts the form into a sync request.
func (p GrantRolePayload) Request() (rolesync.Request, error) {
	req := rolesync.Request{
		UserID:  strings.TrimSpace(p.UserID),
		Grantee: strings.TrimSpace(p.Grantee),
	}
	if role, ok := chain.ParseRoleType(p.Role); ok {
		req.Role = role
	} else {
		req.Role = chain.RoleType(strings.TrimSpace(p.Role))
	}

	for _, part := range strings.Split(p.Properties, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return req, auth.ValidationError(err, "property ids must be numbers")
		}
		req.Properties = append(req.Properties, rolesync.PropertyRef{ID: id})
	}
	return req, nil
}

func (s *Server) adminGrantRole(c *fiber.Ctx) error {
	if s.syncer == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "role grants are not configured")
	}

	payload := new(GrantRolePayload)
	if err := c.BodyParser(payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse form")
	}

	req, err := payload.Request()
	if err != nil {
		return err
	}
	req.Operator = auth.ActorFor(guard.FromLocals(c).User)

	report, err := s.syncer.Sync(c.UserContext(), req)
	if err != nil {
		return err
	}

	if w := report.Warning(); w != nil {
		s.logger.Warn("role sync finished with divergence", "run", report.RunID, "error", w)
	}

	if wantsJSON(c) {
		return c.JSON(report)
	}
	return s.render(c, "role_report", fiber.Map{
		"report":  report,
		"warning": report.Warning(),
	})
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}
