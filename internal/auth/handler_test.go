package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/user"
)

// fakeProvider is an IdentityProvider stub asserting a fixed external identity.
type fakeProvider struct {
	identity ExternalIdentity
}

func (p fakeProvider) Name() string { return "fake" }

func (p fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (p fakeProvider) VerifyAssertion(_ context.Context, code string) (ExternalIdentity, error) {
	if code != "good-code" {
		return ExternalIdentity{}, errors.New("assertion rejected")
	}
	return p.identity, nil
}

func setupAuthApp(t *testing.T, policy LinkPolicy) (*fiber.App, user.Store, *StateStore, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := user.NewMemoryStore()
	authenticator := NewAuthenticator(store, policy)
	authenticator.RegisterProvider(fakeProvider{identity: ExternalIdentity{
		Provider: "fake",
		Subject:  "ext-1",
		Email:    "ext@x.com",
		Name:     "External",
	}})

	sessions := NewSessionComposer(SessionConfig{
		Secret:   []byte(testSecret),
		TokenTTL: time.Hour,
	}, store)
	states := NewStateStore(cache, time.Minute)
	h := NewHandler(authenticator, sessions, states, nil, logging.Discard())

	app := fiber.New()
	app.Post("/auth/signin", h.SignIn)
	app.Get("/auth/oauth/:provider", h.OAuthStart)
	app.Get("/auth/oauth/:provider/callback", h.OAuthCallback)

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, store, states, cleanup
}

func TestSignInStatusMapping(t *testing.T) {
	app, store, _, cleanup := setupAuthApp(t, LinkPolicy{})
	defer cleanup()
	seedUser(t, store, "a@x.com", "secret1")

	cases := []struct {
		body   string
		status int
	}{
		{`{"email":"","password":""}`, fiber.StatusBadRequest},
		{`{"email":"a@x.com","password":"wrong"}`, fiber.StatusUnauthorized},
		{`{"email":"a@x.com","password":"secret1"}`, fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/signin", strings.NewReader(tc.body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("body %s: expected %d, got %d", tc.body, tc.status, resp.StatusCode)
		}
	}
}

func TestOAuthStartRedirectsWithState(t *testing.T) {
	app, _, _, cleanup := setupAuthApp(t, LinkPolicy{})
	defer cleanup()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/oauth/fake", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", resp.StatusCode)
	}
	location := resp.Header.Get(fiber.HeaderLocation)
	if !strings.Contains(location, "state=") {
		t.Fatalf("redirect location missing state: %s", location)
	}
}

func TestOAuthCallbackProvisionsAndIssuesSession(t *testing.T) {
	app, store, states, cleanup := setupAuthApp(t, LinkPolicy{})
	defer cleanup()

	state, err := states.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}

	target := fmt.Sprintf("/auth/oauth/fake/callback?state=%s&code=good-code", state)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("missing session token in %v", body)
	}
	if body["email"] != "ext@x.com" {
		t.Fatalf("expected provisioned email ext@x.com, got %v", body["email"])
	}

	if _, err := store.FindByProvider(context.Background(), "fake", "ext-1"); err != nil {
		t.Fatalf("provider link not recorded: %v", err)
	}
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	app, _, states, cleanup := setupAuthApp(t, LinkPolicy{})
	defer cleanup()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/oauth/fake/callback?state=forged&code=good-code", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("forged state: expected 401, got %d", resp.StatusCode)
	}

	// A legitimate state is single-use.
	state, err := states.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}
	target := fmt.Sprintf("/auth/oauth/fake/callback?state=%s&code=good-code", state)
	if resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, target, nil)); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first use: expected 200, got %d", resp.StatusCode)
	}
	if resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, target, nil)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("replay: expected 401, got %d", resp.StatusCode)
	}
}

func TestOAuthCallbackUnlinkedEmailConflict(t *testing.T) {
	app, store, states, cleanup := setupAuthApp(t, LinkPolicy{})
	defer cleanup()
	seedUser(t, store, "ext@x.com", "secret1")

	state, err := states.Issue(context.Background())
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}
	target := fmt.Sprintf("/auth/oauth/fake/callback?state=%s&code=good-code", state)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for unlinked email, got %d", resp.StatusCode)
	}
}
