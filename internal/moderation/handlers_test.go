package moderation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/hllmltyl/geri-donusum/internal/auth"
	"github.com/hllmltyl/geri-donusum/internal/cache"
	"github.com/hllmltyl/geri-donusum/internal/point"
	"github.com/hllmltyl/geri-donusum/internal/visibility"
)

func moderationApp(store point.Store, c *cache.Cache, viewer visibility.ViewerContext) *fiber.App {
	app := fiber.New()
	injectViewer := func(ctx *fiber.Ctx) error {
		ctx.Locals(auth.ViewerLocal, viewer)
		return ctx.Next()
	}
	RegisterRoutes(app, NewController(store, c), injectViewer)
	return app
}

func TestApproveEndpoint(t *testing.T) {
	store := &fakeStore{}
	admin := visibility.ViewerContext{Identity: "mod", Role: visibility.RoleAdmin}
	app := moderationApp(store, cache.New(), admin)

	req := httptest.NewRequest(http.MethodPost, "/points/p1/approve", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("approve: status %d", resp.StatusCode)
	}
}

func TestApproveEndpointForbiddenForUser(t *testing.T) {
	user := visibility.ViewerContext{Identity: "u1", Role: visibility.RoleUser}
	app := moderationApp(&fakeStore{}, cache.New(), user)

	req := httptest.NewRequest(http.MethodPost, "/points/p1/approve", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want 403", resp.StatusCode)
	}
}

func TestEditEndpoint(t *testing.T) {
	admin := visibility.ViewerContext{Identity: "mod", Role: visibility.RoleAdmin}
	app := moderationApp(&fakeStore{}, cache.New(), admin)

	body := []byte(`{"title":"Cam Kumbarası","category":"glass"}`)
	req := httptest.NewRequest(http.MethodPut, "/points/p1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("edit: status %d", resp.StatusCode)
	}
}

func TestEditEndpointRejectsInvalidMetadata(t *testing.T) {
	admin := visibility.ViewerContext{Identity: "mod", Role: visibility.RoleAdmin}
	app := moderationApp(&fakeStore{}, cache.New(), admin)

	body := []byte(`{"title":"","category":"glass"}`)
	req := httptest.NewRequest(http.MethodPut, "/points/p1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestDeleteEndpoint(t *testing.T) {
	admin := visibility.ViewerContext{Identity: "mod", Role: visibility.RoleAdmin}
	app := moderationApp(&fakeStore{}, cache.New(), admin)

	req := httptest.NewRequest(http.MethodDelete, "/points/p1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
}

func TestPendingEndpoint(t *testing.T) {
	c := cache.New()
	c.Apply([]point.Change{{Kind: point.ChangeAdded, Point: point.RecyclingPoint{
		ID: "p1", Title: "Pil Kutusu", Category: point.CategoryBattery, CreatedBy: "u1",
	}}})
	admin := visibility.ViewerContext{Identity: "mod", Role: visibility.RoleAdmin}
	app := moderationApp(&fakeStore{}, c, admin)

	req := httptest.NewRequest(http.MethodGet, "/moderation/pending", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending: status %d", resp.StatusCode)
	}
}
