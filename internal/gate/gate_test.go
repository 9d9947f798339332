package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"driveocr/internal/registry"
)

type fakeVerifier struct {
	claims *Claims
	err    error
}

func (f *fakeVerifier) VerifyToken(_ context.Context, _ string) (*Claims, error) {
	return f.claims, f.err
}

type fakeDirectory struct {
	users         map[string]*registry.User
	settings      registry.AuthSettings
	activeDomains map[string]bool
	activeEmails  map[string]bool
	err           error
}

func (f *fakeDirectory) GetUser(_ context.Context, userID string) (*registry.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) GetSettings(_ context.Context) (*registry.AuthSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.settings
	return &s, nil
}

func (f *fakeDirectory) IsDomainActive(_ context.Context, domain string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.activeDomains[domain], nil
}

func (f *fakeDirectory) IsEmailActive(_ context.Context, email string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.activeEmails[email], nil
}

func openSettings() registry.AuthSettings {
	return registry.AuthSettings{
		AllowOnlyListedDomains: false,
		AllowPersonalGmail:     false,
		AllowListedEmailsOnly:  false,
	}
}

func TestIsEmailAllowed_Policy(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		settings registry.AuthSettings
		domains  map[string]bool
		emails   map[string]bool
		want     bool
	}{
		{
			name:     "listed email always wins",
			email:    "guest@outside.com",
			settings: registry.AuthSettings{AllowListedEmailsOnly: true, AllowOnlyListedDomains: true},
			emails:   map[string]bool{"guest@outside.com": true},
			want:     true,
		},
		{
			name:     "listed-emails-only blocks unlisted",
			email:    "someone@example.co.jp",
			settings: registry.AuthSettings{AllowListedEmailsOnly: true},
			domains:  map[string]bool{"example.co.jp": true},
			want:     false,
		},
		{
			name:     "personal gmail admitted in open mode",
			email:    "person@gmail.com",
			settings: openSettings(),
			want:     true,
		},
		{
			name:     "personal gmail blocked under domain restriction",
			email:    "person@gmail.com",
			settings: registry.AuthSettings{AllowOnlyListedDomains: true},
			domains:  map[string]bool{"example.co.jp": true},
			want:     false,
		},
		{
			name:  "personal gmail toggle overrides domain restriction",
			email: "person@gmail.com",
			settings: registry.AuthSettings{
				AllowOnlyListedDomains: true,
				AllowPersonalGmail:     true,
			},
			want: true,
		},
		{
			name:     "listed domain passes",
			email:    "taro@example.co.jp",
			settings: registry.AuthSettings{AllowOnlyListedDomains: true},
			domains:  map[string]bool{"example.co.jp": true},
			want:     true,
		},
		{
			name:     "unlisted domain rejected",
			email:    "taro@other.co.jp",
			settings: registry.AuthSettings{AllowOnlyListedDomains: true},
			domains:  map[string]bool{"example.co.jp": true},
			want:     false,
		},
		{
			name:     "open mode admits any corporate domain",
			email:    "anyone@anywhere.io",
			settings: openSettings(),
			want:     true,
		},
		{
			name:     "address is normalized before checks",
			email:    "  Taro@Example.CO.JP ",
			settings: registry.AuthSettings{AllowOnlyListedDomains: true},
			domains:  map[string]bool{"example.co.jp": true},
			want:     true,
		},
		{
			name:     "malformed address rejected",
			email:    "not-an-email",
			settings: openSettings(),
			want:     false,
		},
		{
			name:     "empty local part rejected",
			email:    "@example.co.jp",
			settings: openSettings(),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &fakeDirectory{
				settings:      tt.settings,
				activeDomains: tt.domains,
				activeEmails:  tt.emails,
			}
			g := New(&fakeVerifier{}, dir, zerolog.Nop())

			got, err := g.IsEmailAllowed(context.Background(), tt.email)
			if err != nil {
				t.Fatalf("IsEmailAllowed() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsEmailAllowed(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestAuthenticate_InvalidTokenIsUnauthenticated(t *testing.T) {
	g := New(&fakeVerifier{err: errors.New("token expired")}, &fakeDirectory{}, zerolog.Nop())

	_, err := g.Authenticate(context.Background(), "bad")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Authenticate() error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticate_MissingEmailClaimIsUnauthenticated(t *testing.T) {
	g := New(&fakeVerifier{claims: &Claims{UID: "uid1"}}, &fakeDirectory{}, zerolog.Nop())

	_, err := g.Authenticate(context.Background(), "tok")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Authenticate() error = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticate_DisallowedEmailIsForbidden(t *testing.T) {
	dir := &fakeDirectory{settings: registry.AuthSettings{AllowListedEmailsOnly: true}}
	g := New(&fakeVerifier{claims: &Claims{UID: "uid1", Email: "x@outside.com"}}, dir, zerolog.Nop())

	_, err := g.Authenticate(context.Background(), "tok")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Authenticate() error = %v, want ErrForbidden", err)
	}
}

func TestAuthenticate_RegisteredAdminGetsAdminRole(t *testing.T) {
	dir := &fakeDirectory{
		settings: openSettings(),
		users: map[string]*registry.User{
			"uid1": {ID: "uid1", Email: "admin@example.co.jp", Role: registry.RoleAdmin},
		},
	}
	g := New(&fakeVerifier{claims: &Claims{UID: "uid1", Email: "admin@example.co.jp"}}, dir, zerolog.Nop())

	id, err := g.Authenticate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !id.IsAdmin() {
		t.Errorf("identity = %+v, want admin role", id)
	}
}

func TestAuthenticate_UnregisteredCallerDefaultsToUserRole(t *testing.T) {
	dir := &fakeDirectory{settings: openSettings()}
	g := New(&fakeVerifier{claims: &Claims{UID: "uid9", Email: "new@example.co.jp"}}, dir, zerolog.Nop())

	id, err := g.Authenticate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Role != registry.RoleUser {
		t.Errorf("Role = %q, want default %q", id.Role, registry.RoleUser)
	}
	if id.UserID != "uid9" || id.Email != "new@example.co.jp" {
		t.Errorf("identity = %+v, want claims carried through", id)
	}
}

func TestAuthenticate_DeactivatedUserIsForbidden(t *testing.T) {
	dir := &fakeDirectory{
		settings: openSettings(),
		users: map[string]*registry.User{
			"uid1": {ID: "uid1", Email: "gone@example.co.jp", Role: registry.RoleUser, IsDeleted: true},
		},
	}
	g := New(&fakeVerifier{claims: &Claims{UID: "uid1", Email: "gone@example.co.jp"}}, dir, zerolog.Nop())

	_, err := g.Authenticate(context.Background(), "tok")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Authenticate() error = %v, want ErrForbidden", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(&Identity{Role: registry.RoleAdmin}); err != nil {
		t.Errorf("RequireAdmin(admin) error = %v", err)
	}
	if err := RequireAdmin(&Identity{Role: registry.RoleUser}); !errors.Is(err, ErrForbidden) {
		t.Errorf("RequireAdmin(user) error = %v, want ErrForbidden", err)
	}
	if err := RequireAdmin(nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("RequireAdmin(nil) error = %v, want ErrUnauthenticated", err)
	}
}
