package gate

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"driveocr/internal/registry"
)

func middlewareApp(verifier TokenVerifier, dir Directory) *fiber.App {
	g := New(verifier, dir, zerolog.Nop())
	app := fiber.New()
	app.Use(Middleware(g))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(id)
	})
	return app
}

func TestMiddleware_MissingTokenIs401(t *testing.T) {
	app := middlewareApp(&fakeVerifier{}, &fakeDirectory{})

	req := httptest.NewRequest("GET", "/whoami", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMiddleware_WrongSchemeIs401(t *testing.T) {
	app := middlewareApp(&fakeVerifier{}, &fakeDirectory{})

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMiddleware_AllowedCallerPassesThrough(t *testing.T) {
	dir := &fakeDirectory{settings: openSettings()}
	app := middlewareApp(&fakeVerifier{claims: &Claims{UID: "uid1", Email: "taro@example.co.jp"}}, dir)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMiddleware_BlockedEmailIs403(t *testing.T) {
	dir := &fakeDirectory{settings: registry.AuthSettings{AllowListedEmailsOnly: true}}
	app := middlewareApp(&fakeVerifier{claims: &Claims{UID: "uid1", Email: "x@outside.com"}}, dir)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
