// Package api exposes the HTTP surface: the Drive change webhook, document
// search, and the admin endpoints for users, allow-lists, and settings.
//
// The webhook and health check are unauthenticated; everything under /api/v1
// goes through the access gate. Admin-only routes additionally require the
// admin role on the authenticated identity.
package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"driveocr/internal/event"
	"driveocr/internal/gate"
	"driveocr/internal/registry"
	"driveocr/internal/warehouse"
)

// Registry is the user and allow-list surface the API writes to.
// *registry.Store satisfies it.
type Registry interface {
	CreateUser(ctx context.Context, in registry.UserCreate) (*registry.User, error)
	GetUser(ctx context.Context, userID string) (*registry.User, error)
	ListUsers(ctx context.Context, includeDeleted bool) ([]registry.User, error)
	UpdateUser(ctx context.Context, userID string, in registry.UserUpdate) (*registry.User, error)
	DeleteUser(ctx context.Context, userID string) (*registry.User, error)

	CreateDomain(ctx context.Context, in registry.AuthDomainCreate) (*registry.AuthDomain, error)
	GetDomain(ctx context.Context, domainID string) (*registry.AuthDomain, error)
	ListDomains(ctx context.Context, activeOnly bool) ([]registry.AuthDomain, error)
	UpdateDomain(ctx context.Context, domainID string, in registry.AuthDomainUpdate) (*registry.AuthDomain, error)
	DeleteDomain(ctx context.Context, domainID string) error

	CreateEmail(ctx context.Context, in registry.AllowedEmailCreate) (*registry.AllowedEmail, error)
	GetEmail(ctx context.Context, emailID string) (*registry.AllowedEmail, error)
	ListEmails(ctx context.Context, activeOnly bool) ([]registry.AllowedEmail, error)
	UpdateEmail(ctx context.Context, emailID string, in registry.AllowedEmailUpdate) (*registry.AllowedEmail, error)
	DeleteEmail(ctx context.Context, emailID string) error

	GetSettings(ctx context.Context) (*registry.AuthSettings, error)
	UpdateSettings(ctx context.Context, in registry.AuthSettingsUpdate) (*registry.AuthSettings, error)
	AppendAudit(ctx context.Context, entry registry.AuditEntry) error
}

// Warehouse is the BigQuery surface the API reads and mirrors users into.
// *warehouse.Store satisfies it.
type Warehouse interface {
	Search(ctx context.Context, q warehouse.SearchQuery) (*warehouse.SearchResult, error)
	SyncUser(ctx context.Context, u registry.User) error
}

// Server is the HTTP server for all public endpoints.
type Server struct {
	app       *fiber.App
	publisher event.Publisher
	reg       Registry
	wh        Warehouse
	log       zerolog.Logger
}

// New builds the server and registers all routes. authn is the gate
// middleware guarding /api/v1; tests inject a stub that plants an identity.
func New(publisher event.Publisher, reg Registry, wh Warehouse, authn fiber.Handler, log zerolog.Logger) *Server {
	s := &Server{
		publisher: publisher,
		reg:       reg,
		wh:        wh,
		log:       log,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.app = app

	app.Get("/healthz", s.handleHealth)
	app.Post("/webhook/drive", s.handleDriveWebhook)

	v1 := app.Group("/api/v1", authn)
	v1.Post("/search", s.handleSearch)

	users := v1.Group("/users")
	users.Get("/", s.requireAdmin, s.handleListUsers)
	users.Post("/", s.requireAdmin, s.handleCreateUser)
	users.Get("/:id", s.handleGetUser)
	users.Patch("/:id", s.handleUpdateUser)
	users.Delete("/:id", s.requireAdmin, s.handleDeleteUser)

	domains := v1.Group("/domains", s.requireAdmin)
	domains.Get("/", s.handleListDomains)
	domains.Post("/", s.handleCreateDomain)
	domains.Get("/:id", s.handleGetDomain)
	domains.Patch("/:id", s.handleUpdateDomain)
	domains.Delete("/:id", s.handleDeleteDomain)

	emails := v1.Group("/emails", s.requireAdmin)
	emails.Get("/", s.handleListEmails)
	emails.Post("/", s.handleCreateEmail)
	emails.Get("/:id", s.handleGetEmail)
	emails.Patch("/:id", s.handleUpdateEmail)
	emails.Delete("/:id", s.handleDeleteEmail)

	settings := v1.Group("/settings", s.requireAdmin)
	settings.Get("/", s.handleGetSettings)
	settings.Patch("/", s.handleUpdateSettings)

	return s
}

// App exposes the underlying fiber app (for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("Starting HTTP server")
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// requireAdmin rejects authenticated callers without the admin role.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	id, ok := gate.IdentityFrom(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}
	if err := gate.RequireAdmin(id); err != nil {
		return errorJSON(c, fiber.StatusForbidden, "admin role required")
	}
	return c.Next()
}

// identity returns the caller identity or writes a 401.
func (s *Server) identity(c *fiber.Ctx) (*gate.Identity, error) {
	id, ok := gate.IdentityFrom(c)
	if !ok {
		return nil, errorJSON(c, fiber.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// audit records an admin action. Failures are logged, never surfaced.
func (s *Server) audit(c *fiber.Ctx, id *gate.Identity, action, details string) {
	entry := registry.AuditEntry{
		UserID:    id.UserID,
		Action:    action,
		Details:   details,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	if err := s.reg.AppendAudit(c.UserContext(), entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("Failed to append audit entry")
	}
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// registryStatus maps registry errors onto HTTP statuses.
func registryStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, registry.ErrDuplicate):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func registryError(c *fiber.Ctx, err error) error {
	status := registryStatus(err)
	if status == fiber.StatusInternalServerError {
		return errorJSON(c, status, "internal error")
	}
	return errorJSON(c, status, err.Error())
}
