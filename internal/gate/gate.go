// Package gate authenticates API callers and enforces the allow-list policy.
//
// A bearer token is verified against Firebase Auth, the resulting email is
// checked against the domain and email allow-lists in the registry, and the
// caller's role is resolved from their registry user record. Admin-only
// surfaces call RequireAdmin on the resulting identity.
package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"driveocr/internal/registry"
)

// personalGmailDomain is special-cased by the AllowPersonalGmail setting.
const personalGmailDomain = "gmail.com"

// Claims are the fields the gate needs from a verified ID token.
type Claims struct {
	UID   string
	Email string
}

// TokenVerifier validates a raw bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, idToken string) (*Claims, error)
}

// Directory is the registry surface the gate reads. *registry.Store
// satisfies it.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*registry.User, error)
	GetSettings(ctx context.Context) (*registry.AuthSettings, error)
	IsDomainActive(ctx context.Context, domain string) (bool, error)
	IsEmailActive(ctx context.Context, email string) (bool, error)
}

// Identity is an authenticated, authorized caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == registry.RoleAdmin
}

// Gate combines token verification with the registry allow-lists.
type Gate struct {
	verifier TokenVerifier
	dir      Directory
	log      zerolog.Logger
}

// New wires a gate from its dependencies.
func New(verifier TokenVerifier, dir Directory, log zerolog.Logger) *Gate {
	return &Gate{verifier: verifier, dir: dir, log: log}
}

// Authenticate resolves a bearer token into an Identity.
//
// The token must verify, the email must pass the allow-list policy, and a
// soft-deleted registry user is rejected. Callers without a registry record
// get the default user role.
func (g *Gate) Authenticate(ctx context.Context, idToken string) (*Identity, error) {
	const op = "Authenticate"

	claims, err := g.verifier.VerifyToken(ctx, idToken)
	if err != nil {
		return nil, wrapAuthError(op, ErrUnauthenticated, err.Error())
	}
	if claims.Email == "" {
		return nil, wrapAuthError(op, ErrUnauthenticated, "token carries no email claim")
	}

	allowed, err := g.IsEmailAllowed(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		g.log.Warn().Str("email", claims.Email).Msg("Rejected sign-in outside allow-lists")
		return nil, wrapAuthError(op, ErrForbidden, "email not allowed: "+claims.Email)
	}

	identity := &Identity{UserID: claims.UID, Email: claims.Email, Role: registry.RoleUser}

	user, err := g.dir.GetUser(ctx, claims.UID)
	switch {
	case err == nil:
		if user.IsDeleted {
			return nil, wrapAuthError(op, ErrForbidden, "user is deactivated")
		}
		identity.Role = user.Role
	case errors.Is(err, registry.ErrNotFound):
		// First sign-in before an admin registered the user.
	default:
		return nil, wrapAuthError(op, err, "registry lookup failed")
	}

	return identity, nil
}

// IsEmailAllowed applies the allow-list policy to one email address.
//
// An active entry on the email allow-list always grants access. Otherwise,
// when only listed emails are allowed the caller is rejected. When only
// listed domains are allowed, personal Gmail addresses are governed by their
// own toggle and any other domain must be on the active domain list. With
// neither restriction enabled, every well-formed email is admitted.
func (g *Gate) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	const op = "IsEmailAllowed"

	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false, nil
	}
	domain := email[at+1:]

	listed, err := g.dir.IsEmailActive(ctx, email)
	if err != nil {
		return false, wrapAuthError(op, err, "email allow-list lookup failed")
	}
	if listed {
		return true, nil
	}

	settings, err := g.dir.GetSettings(ctx)
	if err != nil {
		return false, wrapAuthError(op, err, "settings lookup failed")
	}

	if settings.AllowListedEmailsOnly {
		return false, nil
	}
	if settings.AllowOnlyListedDomains {
		if domain == personalGmailDomain {
			return settings.AllowPersonalGmail, nil
		}
		active, err := g.dir.IsDomainActive(ctx, domain)
		if err != nil {
			return false, wrapAuthError(op, err, "domain allow-list lookup failed")
		}
		return active, nil
	}
	return true, nil
}

// RequireAdmin rejects non-admin identities.
func RequireAdmin(id *Identity) error {
	if id == nil {
		return wrapAuthError("RequireAdmin", ErrUnauthenticated, "no identity")
	}
	if !id.IsAdmin() {
		return wrapAuthError("RequireAdmin", ErrForbidden, "admin role required")
	}
	return nil
}
