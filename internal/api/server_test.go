package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"driveocr/internal/event"
	"driveocr/internal/gate"
	"driveocr/internal/registry"
	"driveocr/internal/warehouse"
)

// fakePublisher records published events.
type fakePublisher struct {
	events []event.ChangeEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e event.ChangeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

// fakeRegistry is an in-memory Registry.
type fakeRegistry struct {
	users    map[string]*registry.User
	domains  map[string]*registry.AuthDomain
	emails   map[string]*registry.AllowedEmail
	settings registry.AuthSettings
	audits   []registry.AuditEntry
	nextID   int
	err      error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		users:    map[string]*registry.User{},
		domains:  map[string]*registry.AuthDomain{},
		emails:   map[string]*registry.AllowedEmail{},
		settings: registry.DefaultAuthSettings(),
	}
}

func (f *fakeRegistry) id() string {
	f.nextID++
	return fmt.Sprintf("id%d", f.nextID)
}

func (f *fakeRegistry) CreateUser(_ context.Context, in registry.UserCreate) (*registry.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := &registry.User{
		ID:             f.id(),
		Email:          in.Email,
		Name:           in.Name,
		AlternateNames: in.AlternateNames,
		Role:           in.Role,
		Organization:   in.Organization,
	}
	if u.Role == "" {
		u.Role = registry.RoleUser
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRegistry) GetUser(_ context.Context, userID string) (*registry.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return u, nil
}

func (f *fakeRegistry) ListUsers(_ context.Context, includeDeleted bool) ([]registry.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []registry.User
	for _, u := range f.users {
		if !includeDeleted && u.IsDeleted {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeRegistry) UpdateUser(_ context.Context, userID string, in registry.UserUpdate) (*registry.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.AlternateNames != nil {
		u.AlternateNames = *in.AlternateNames
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.Organization != nil {
		u.Organization = *in.Organization
	}
	return u, nil
}

func (f *fakeRegistry) DeleteUser(_ context.Context, userID string) (*registry.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	u.IsDeleted = true
	return u, nil
}

func (f *fakeRegistry) CreateDomain(_ context.Context, in registry.AuthDomainCreate) (*registry.AuthDomain, error) {
	for _, d := range f.domains {
		if d.Domain == in.Domain {
			return nil, registry.ErrDuplicate
		}
	}
	d := &registry.AuthDomain{ID: f.id(), Domain: in.Domain, Description: in.Description, IsActive: true}
	f.domains[d.ID] = d
	return d, nil
}

func (f *fakeRegistry) GetDomain(_ context.Context, domainID string) (*registry.AuthDomain, error) {
	d, ok := f.domains[domainID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return d, nil
}

func (f *fakeRegistry) ListDomains(_ context.Context, activeOnly bool) ([]registry.AuthDomain, error) {
	var out []registry.AuthDomain
	for _, d := range f.domains {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeRegistry) UpdateDomain(_ context.Context, domainID string, in registry.AuthDomainUpdate) (*registry.AuthDomain, error) {
	d, ok := f.domains[domainID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	return d, nil
}

func (f *fakeRegistry) DeleteDomain(_ context.Context, domainID string) error {
	if _, ok := f.domains[domainID]; !ok {
		return registry.ErrNotFound
	}
	delete(f.domains, domainID)
	return nil
}

func (f *fakeRegistry) CreateEmail(_ context.Context, in registry.AllowedEmailCreate) (*registry.AllowedEmail, error) {
	for _, e := range f.emails {
		if e.Email == in.Email {
			return nil, registry.ErrDuplicate
		}
	}
	e := &registry.AllowedEmail{ID: f.id(), Email: in.Email, Description: in.Description, IsActive: true}
	f.emails[e.ID] = e
	return e, nil
}

func (f *fakeRegistry) GetEmail(_ context.Context, emailID string) (*registry.AllowedEmail, error) {
	e, ok := f.emails[emailID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return e, nil
}

func (f *fakeRegistry) ListEmails(_ context.Context, activeOnly bool) ([]registry.AllowedEmail, error) {
	var out []registry.AllowedEmail
	for _, e := range f.emails {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeRegistry) UpdateEmail(_ context.Context, emailID string, in registry.AllowedEmailUpdate) (*registry.AllowedEmail, error) {
	e, ok := f.emails[emailID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	return e, nil
}

func (f *fakeRegistry) DeleteEmail(_ context.Context, emailID string) error {
	if _, ok := f.emails[emailID]; !ok {
		return registry.ErrNotFound
	}
	delete(f.emails, emailID)
	return nil
}

func (f *fakeRegistry) GetSettings(_ context.Context) (*registry.AuthSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeRegistry) UpdateSettings(_ context.Context, in registry.AuthSettingsUpdate) (*registry.AuthSettings, error) {
	if in.AllowOnlyListedDomains != nil {
		f.settings.AllowOnlyListedDomains = *in.AllowOnlyListedDomains
	}
	if in.AllowPersonalGmail != nil {
		f.settings.AllowPersonalGmail = *in.AllowPersonalGmail
	}
	if in.AllowListedEmailsOnly != nil {
		f.settings.AllowListedEmailsOnly = *in.AllowListedEmailsOnly
	}
	s := f.settings
	return &s, nil
}

func (f *fakeRegistry) AppendAudit(_ context.Context, entry registry.AuditEntry) error {
	f.audits = append(f.audits, entry)
	return nil
}

// fakeWarehouse records search queries and synced users.
type fakeWarehouse struct {
	lastQuery warehouse.SearchQuery
	result    *warehouse.SearchResult
	synced    []registry.User
	err       error
}

func (f *fakeWarehouse) Search(_ context.Context, q warehouse.SearchQuery) (*warehouse.SearchResult, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &warehouse.SearchResult{Items: []warehouse.FileRecord{}}, nil
}

func (f *fakeWarehouse) SyncUser(_ context.Context, u registry.User) error {
	f.synced = append(f.synced, u)
	return f.err
}

// stubAuth plants a fixed identity, standing in for the gate middleware.
func stubAuth(id *gate.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
		}
		gate.SetIdentity(c, id)
		return c.Next()
	}
}

type testEnv struct {
	server    *Server
	publisher *fakePublisher
	reg       *fakeRegistry
	wh        *fakeWarehouse
}

func newTestEnv(id *gate.Identity) *testEnv {
	pub := &fakePublisher{}
	reg := newFakeRegistry()
	wh := &fakeWarehouse{}
	return &testEnv{
		server:    New(pub, reg, wh, stubAuth(id), zerolog.Nop()),
		publisher: pub,
		reg:       reg,
		wh:        wh,
	}
}

func adminIdentity() *gate.Identity {
	return &gate.Identity{UserID: "admin1", Email: "admin@example.co.jp", Role: registry.RoleAdmin}
}

func userIdentity() *gate.Identity {
	return &gate.Identity{UserID: "u1", Email: "taro@example.co.jp", Role: registry.RoleUser}
}

// do runs one request against the app and returns the response.
func do(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test(%s %s) error = %v", method, target, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(nil)
	resp := do(t, env.server.App(), "GET", "/healthz", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
