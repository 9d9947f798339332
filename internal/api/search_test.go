package api

import (
	"testing"

	"github.com/gofiber/fiber/v2"

	"driveocr/internal/warehouse"
)

func TestSearch_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(nil)
	resp := do(t, env.server.App(), "POST", "/api/v1/search", `{}`)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSearch_NonAdminIsConfinedToOwnDocuments(t *testing.T) {
	env := newTestEnv(userIdentity())
	resp := do(t, env.server.App(), "POST", "/api/v1/search",
		`{"query_text":"請求書","user_id":"someone-else","include_deleted":true}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if env.wh.lastQuery.UserID != "u1" {
		t.Errorf("UserID = %q, non-admin must be pinned to own ID", env.wh.lastQuery.UserID)
	}
	if env.wh.lastQuery.IncludeDeleted {
		t.Errorf("IncludeDeleted = true, non-admin must not see deleted rows")
	}
	if env.wh.lastQuery.QueryText != "請求書" {
		t.Errorf("QueryText = %q, want filter preserved", env.wh.lastQuery.QueryText)
	}
}

func TestSearch_AdminQueryPassesThrough(t *testing.T) {
	env := newTestEnv(adminIdentity())
	env.wh.result = &warehouse.SearchResult{
		TotalCount: 1,
		Items:      []warehouse.FileRecord{{FileID: "f1", FileName: "receipt.jpg"}},
	}

	resp := do(t, env.server.App(), "POST", "/api/v1/search",
		`{"user_id":"u7","include_deleted":true}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if env.wh.lastQuery.UserID != "u7" {
		t.Errorf("UserID = %q, admin filter must pass through", env.wh.lastQuery.UserID)
	}
	if !env.wh.lastQuery.IncludeDeleted {
		t.Errorf("IncludeDeleted = false, admin flag must pass through")
	}

	var result warehouse.SearchResult
	decodeJSON(t, resp, &result)
	if result.TotalCount != 1 || len(result.Items) != 1 || result.Items[0].FileID != "f1" {
		t.Errorf("result = %+v, want the warehouse page", result)
	}
}

func TestSearch_BadBodyIs400(t *testing.T) {
	env := newTestEnv(userIdentity())
	resp := do(t, env.server.App(), "POST", "/api/v1/search", `{broken`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
