package gate

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// identityKey is the request-local slot holding the authenticated Identity.
const identityKey = "gate.identity"

// bearerPrefix is the accepted Authorization scheme.
const bearerPrefix = "Bearer "

// Middleware authenticates every request through g and stores the resulting
// Identity in request locals. Requests without a valid bearer token get 401;
// valid tokens outside the allow-lists get 403.
func Middleware(g *Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		identity, err := g.Authenticate(c.UserContext(), strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			status := fiber.StatusUnauthorized
			if errors.Is(err, ErrForbidden) {
				status = fiber.StatusForbidden
			}
			return c.Status(status).JSON(fiber.Map{"error": "access denied"})
		}

		SetIdentity(c, identity)
		return c.Next()
	}
}

// SetIdentity stores id in request locals for IdentityFrom to find. Handler
// tests use it to stand in for Middleware.
func SetIdentity(c *fiber.Ctx, id *Identity) {
	c.Locals(identityKey, id)
}

// IdentityFrom returns the Identity stored by Middleware, if any.
func IdentityFrom(c *fiber.Ctx) (*Identity, bool) {
	identity, ok := c.Locals(identityKey).(*Identity)
	return identity, ok
}
