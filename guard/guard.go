package guard

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/tokenestate/go-estate-auth"
)

// Mode selects what a hard guard does with a denied request.
type Mode string

const (
	// ModeRedirect sends the client to the login path (unauthenticated) or
	// the denied path (role or permission).
	ModeRedirect Mode = "redirect"
	// ModeBlock renders the login-prompt (401) or access-denied (403) view.
	ModeBlock Mode = "block"
)

// LocalsAccessKey is where Provide stores the resolved access.
const LocalsAccessKey = "estate.access"

const (
	DefaultLoginView        = "errors/login_prompt"
	DefaultDeniedView       = "errors/access_denied"
	DefaultRejectedRouteKey = "rejected_route"
	RedirectQueryKey        = "redirect"
)

// Resolver extracts the access for a request.
type Resolver func(c *fiber.Ctx) auth.Access

// Observer receives one call per guard decision.
type Observer interface {
	ObserveGuard(guard, decision string)
}

// DenyHandler replaces the built-in redirect or render for denied requests.
type DenyHandler func(c *fiber.Ctx, decision Decision) error

// Guard builds hard and soft guards sharing the same resolver and settings.
type Guard struct {
	resolver         Resolver
	mode             Mode
	loginPath        string
	deniedPath       string
	rejectedRouteKey string
	loginView        string
	deniedView       string
	layout           string
	onDeny           DenyHandler
	observer         Observer
	logger           auth.Logger
}

// Option configures a Guard.
type Option func(*Guard)

func WithResolver(r Resolver) Option {
	return func(g *Guard) {
		if r != nil {
			g.resolver = r
		}
	}
}

func WithMode(m Mode) Option {
	return func(g *Guard) {
		if m == ModeBlock || m == ModeRedirect {
			g.mode = m
		}
	}
}

func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

func WithDeniedPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.deniedPath = path
		}
	}
}

func WithRejectedRouteKey(key string) Option {
	return func(g *Guard) {
		if key != "" {
			g.rejectedRouteKey = key
		}
	}
}

// WithViews overrides the login-prompt and access-denied view names.
func WithViews(login, denied string, layout ...string) Option {
	return func(g *Guard) {
		if login != "" {
			g.loginView = login
		}
		if denied != "" {
			g.deniedView = denied
		}
		if len(layout) > 0 {
			g.layout = layout[0]
		}
	}
}

func WithDenyHandler(h DenyHandler) Option {
	return func(g *Guard) {
		g.onDeny = h
	}
}

func WithObserver(o Observer) Option {
	return func(g *Guard) {
		g.observer = o
	}
}

func WithLogger(l auth.Logger) Option {
	return func(g *Guard) {
		_, g.logger = auth.ResolveLogger("guard", nil, l)
	}
}

func WithLoggerProvider(p auth.LoggerProvider) Option {
	return func(g *Guard) {
		_, g.logger = auth.ResolveLogger("guard", p, nil)
	}
}

// New returns a Guard. Without options it reads the access stored by Provide,
// redirects denied requests and logs through the default logger.
func New(opts ...Option) *Guard {
	_, logger := auth.ResolveLogger("guard", nil, nil)
	g := &Guard{
		resolver:         FromLocals,
		mode:             ModeRedirect,
		loginPath:        "/login",
		deniedPath:       "/",
		rejectedRouteKey: DefaultRejectedRouteKey,
		loginView:        DefaultLoginView,
		deniedView:       DefaultDeniedView,
		logger:           logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Mode returns the configured denial mode.
func (g *Guard) Mode() Mode {
	return g.mode
}

// Access resolves the access for c.
func (g *Guard) Access(c *fiber.Ctx) auth.Access {
	return g.resolver(c)
}

// Check evaluates req for c, recording the decision.
func (g *Guard) Check(c *fiber.Ctx, name string, req Requirement) Decision {
	decision := req.Evaluate(g.resolver(c))
	g.observe(name, decision, c.Path())
	return decision
}

// Require is the hard guard: denied requests never reach the next handler.
func (g *Guard) Require(name string, req Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := g.Check(c, name, req)
		if decision.Allowed() {
			return c.Next()
		}
		if g.onDeny != nil {
			return g.onDeny(c, decision)
		}
		if g.mode == ModeBlock {
			return g.render(c, decision)
		}
		return g.redirect(c, decision)
	}
}

func (g *Guard) redirect(c *fiber.Ctx, decision Decision) error {
	if decision != DenyUnauthenticated {
		return c.Redirect(g.deniedPath, fiber.StatusSeeOther)
	}

	original := c.OriginalURL()
	g.SetRejectedRoute(c, original)

	target := g.loginPath
	if u, err := url.Parse(g.loginPath); err == nil {
		q := u.Query()
		q.Set(RedirectQueryKey, original)
		u.RawQuery = q.Encode()
		target = u.String()
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (g *Guard) render(c *fiber.Ctx, decision Decision) error {
	access := g.resolver(c)
	data := auth.MergeTemplateData(access, fiber.Map{
		"path":       c.OriginalURL(),
		"decision":   string(decision),
		"login_path": g.loginPath,
	})
	for k, v := range g.ViewHelpers() {
		data[k] = v
	}

	status, view := fiber.StatusForbidden, g.deniedView
	if decision == DenyUnauthenticated {
		status, view = fiber.StatusUnauthorized, g.loginView
	}

	c.Status(status)
	if g.layout != "" {
		return c.Render(view, data, g.layout)
	}
	return c.Render(view, data)
}

// SetRejectedRoute remembers path so the login flow can return to it.
func (g *Guard) SetRejectedRoute(c *fiber.Ctx, path string) {
	g.logger.Debug("setting rejected route", "key", g.rejectedRouteKey, "path", path)
	c.Cookie(&fiber.Cookie{
		Name:     g.rejectedRouteKey,
		Value:    path,
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// RedirectTarget returns where to send the client after login: the redirect
// query parameter, then the rejected-route cookie, then def. Only local paths
// are honoured. The cookie is cleared.
func (g *Guard) RedirectTarget(c *fiber.Ctx, def string) string {
	target := ""
	if q := c.Query(RedirectQueryKey); IsLocalPath(q) {
		target = q
	} else if ck := c.Cookies(g.rejectedRouteKey); IsLocalPath(ck) {
		target = ck
	}
	g.ClearRejectedRoute(c)
	if target == "" {
		return def
	}
	return target
}

// ClearRejectedRoute drops the rejected-route cookie.
func (g *Guard) ClearRejectedRoute(c *fiber.Ctx) {
	c.ClearCookie(g.rejectedRouteKey)
}

// IsLocalPath reports whether p is a path on this host, rejecting absolute
// and protocol-relative URLs.
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	return len(p) < 2 || (p[1] != '/' && p[1] != '\\')
}

func (g *Guard) observe(name string, decision Decision, path string) {
	if g.observer != nil {
		g.observer.ObserveGuard(name, string(decision))
	}
	g.logger.Debug("guard decision", "guard", name, "decision", decision, "path", path)
}

// FromLocals reads the access stored by Provide, falling back to the user
// context and then to anonymous.
func FromLocals(c *fiber.Ctx) auth.Access {
	if a, ok := c.Locals(LocalsAccessKey).(auth.Access); ok {
		return a
	}
	return auth.AccessFromContext(c.UserContext())
}

// Provide resolves the access once per request from provider and stores it in
// the locals and the user context.
func Provide(provider auth.AccessProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		access := auth.Anonymous()
		if provider != nil {
			access = provider.Access()
		}
		c.Locals(LocalsAccessKey, access)
		c.SetUserContext(auth.WithAccessContext(c.UserContext(), access))
		return c.Next()
	}
}
