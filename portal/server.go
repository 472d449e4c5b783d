package portal

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/template/django/v3"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/activitymap"
	"github.com/tokenestate/go-estate-auth/client"
	"github.com/tokenestate/go-estate-auth/guard"
	"github.com/tokenestate/go-estate-auth/metrics"
	"github.com/tokenestate/go-estate-auth/rolesync"
)

//go:embed views
var viewsFS embed.FS

const layout = "layouts/main"

// Session is the client session the portal renders for.
type Session interface {
	Login(ctx context.Context, token string, displayName ...string) (*auth.User, error)
	Logout(ctx context.Context) error
	Snapshot() auth.Snapshot
	Access() auth.Access
}

// Directory reads users, properties and health from the backend.
type Directory interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	Properties(ctx context.Context) ([]client.Property, error)
	PublicProperties(ctx context.Context) ([]client.Property, error)
	Health(ctx context.Context) (auth.HealthStatus, error)
}

// RoleSyncer grants on-chain roles and mirrors them to the backend.
type RoleSyncer interface {
	Sync(ctx context.Context, req rolesync.Request) (rolesync.Report, error)
}

// Server is the fiber front-end over a single client session.
type Server struct {
	app       *fiber.App
	session   Session
	directory Directory
	syncer    RoleSyncer
	metrics   *metrics.Collectors
	feed      *activitymap.Feed
	guard     *guard.Guard
	guardOpts []guard.Option
	loginPath string
	homePath  string
	debug     bool
	logger    auth.Logger
	provider  auth.LoggerProvider
}

// Option configures the Server.
type Option func(*Server)

func WithRoleSyncer(s RoleSyncer) Option {
	return func(srv *Server) {
		srv.syncer = s
	}
}

func WithMetrics(c *metrics.Collectors) Option {
	return func(srv *Server) {
		srv.metrics = c
	}
}

func WithFeed(f *activitymap.Feed) Option {
	return func(srv *Server) {
		srv.feed = f
	}
}

// WithGuardOptions is applied after the portal's own guard settings.
func WithGuardOptions(opts ...guard.Option) Option {
	return func(srv *Server) {
		srv.guardOpts = append(srv.guardOpts, opts...)
	}
}

func WithLoginPath(path string) Option {
	return func(srv *Server) {
		if path != "" {
			srv.loginPath = path
		}
	}
}

// WithHomePath sets where logged in users land by default.
func WithHomePath(path string) Option {
	return func(srv *Server) {
		if path != "" {
			srv.homePath = path
		}
	}
}

func WithDebug(debug bool) Option {
	return func(srv *Server) {
		srv.debug = debug
	}
}

func WithLogger(l auth.Logger) Option {
	return func(srv *Server) {
		srv.provider, srv.logger = auth.ResolveLogger("portal", nil, l)
	}
}

func WithLoggerProvider(p auth.LoggerProvider) Option {
	return func(srv *Server) {
		srv.provider, srv.logger = auth.ResolveLogger("portal", p, nil)
	}
}

// New builds the portal and registers every route.
func New(session Session, directory Directory, opts ...Option) *Server {
	provider, logger := auth.ResolveLogger("portal", nil, nil)
	s := &Server{
		session:   session,
		directory: directory,
		loginPath: "/login",
		homePath:  "/dashboard",
		logger:    logger,
		provider:  provider,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	gopts := []guard.Option{
		guard.WithLoginPath(s.loginPath),
		guard.WithDeniedPath(s.homePath),
		guard.WithViews(guard.DefaultLoginView, guard.DefaultDeniedView, layout),
		guard.WithLoggerProvider(s.provider),
	}
	if s.metrics != nil {
		gopts = append(gopts, guard.WithObserver(s.metrics))
	}
	s.guard = guard.New(append(gopts, s.guardOpts...)...)

	engine := django.NewPathForwardingFileSystem(http.FS(viewsFS), "/views", ".html")
	engine.Reload(s.debug)

	s.app = fiber.New(fiber.Config{
		Views:                 engine,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.routes()
	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Guard returns the guard used by the portal routes.
func (s *Server) Guard() *guard.Guard {
	return s.guard
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("portal listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(s.observe)
	s.app.Use(guard.Provide(s.session))

	s.app.Get("/", s.home)
	s.app.Get("/health", s.health)
	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	s.app.Get(s.loginPath, s.loginShow)
	s.app.Post(s.loginPath, s.loginPost)
	s.app.Post("/logout", s.logout)

	s.app.Get("/dashboard", s.guard.Require("dashboard", guard.Permission(auth.PermAccessDashboard)), s.dashboard)
	s.app.Get("/owner", s.guard.Require("owner", guard.Permission(auth.PermAccessOwner)), s.owner)

	admin := s.app.Group("/admin", s.guard.Require("admin", guard.Roles(auth.RoleAdmin).WithPermission(auth.PermAccessAdmin)))
	admin.Get("/", s.adminHome)
	admin.Get("/users", s.guard.Require("admin.users", guard.Permission(auth.PermManageUsers)), s.adminUsers)
	admin.Post("/roles", s.guard.Require("admin.roles", guard.Permission(auth.PermManageUsers)), s.adminGrantRole)

	fragments := s.app.Group("/fragments")
	fragments.Get("/property-tools",
		s.guard.Fragment("fragment.property-tools", guard.Permission(auth.PermManageProperties), nil),
		s.fragment("fragments/property_tools"))
	fragments.Get("/admin-tools",
		s.guard.Fragment("fragment.admin-tools", guard.Roles(auth.RoleAdmin), nil),
		s.fragment("fragments/admin_tools"))
}

// observe logs each request and records it in the HTTP metrics.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	route := c.Route().Path
	if s.metrics != nil {
		s.metrics.ObserveHTTP(c.Method(), route, status, time.Since(start))
	}
	s.logger.Debug("request", "method", c.Method(), "path", c.Path(), "route", route, "status", status, "duration", time.Since(start))
	return err
}

// render merges the access helpers into data and renders view inside the layout.
func (s *Server) render(c *fiber.Ctx, view string, data fiber.Map) error {
	access := s.guard.Access(c)
	out := auth.MergeTemplateData(access, data)
	for k, v := range s.guard.ViewHelpers() {
		out[k] = v
	}
	out["login_path"] = s.loginPath
	return c.Render(view, out, layout)
}

func (s *Server) fragment(view string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		access := s.guard.Access(c)
		out := auth.MergeTemplateData(access, nil)
		for k, v := range s.guard.ViewHelpers() {
			out[k] = v
		}
		return c.Render(view, out)
	}
}
