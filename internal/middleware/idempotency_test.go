package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/logging"
)

func setupIdempotentApp(t *testing.T) (*fiber.App, *atomic.Int64, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()

	var calls atomic.Int64
	app.Post("/signup", Idempotency(cache, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"n": calls.Load()})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, &calls, cleanup
}

func TestIdempotencyHeaderIsOptional(t *testing.T) {
	app, calls, cleanup := setupIdempotentApp(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/signup", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, resp.StatusCode)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected handler to run twice without a key, ran %d times", calls.Load())
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls, cleanup := setupIdempotentApp(t)
	defer cleanup()

	first := httptest.NewRequest(fiber.MethodPost, "/signup", strings.NewReader("{}"))
	first.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	first.Header.Set(idempotencyKeyHeader, "abc123")

	resp, err := app.Test(first)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	firstBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	second := httptest.NewRequest(fiber.MethodPost, "/signup", strings.NewReader("{}"))
	second.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	second.Header.Set(idempotencyKeyHeader, "abc123")

	resp2, err := app.Test(second)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", resp2.StatusCode)
	}
	secondBody, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatalf("read replayed body: %v", err)
	}
	resp2.Body.Close()

	if string(secondBody) != string(firstBody) {
		t.Fatalf("replayed body %s differs from original %s", secondBody, firstBody)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
}
