package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/middleware"
	"github.com/gatehouse/gatehouse/internal/notification"
	"github.com/gatehouse/gatehouse/internal/user"
)

// Deps aggregates shared dependencies required to wire routes. A nil DB falls
// back to the in-memory store, which keeps route-level tests hermetic.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// ErrorHandler renders handler errors as JSON so rejection messages reach
// clients in the same shape as success responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store user.Store
	if d.DB != nil {
		store = user.NewPostgresStore(d.DB)
	} else {
		store = user.NewMemoryStore()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	userSvc := user.NewService(store, notifier)
	userHandler := user.NewHandler(userSvc)

	authenticator := auth.NewAuthenticator(store, auth.LinkPolicy{AllowEmailLinking: d.Cfg.AllowEmailLinking})
	if d.Cfg.GoogleConfigured() {
		authenticator.RegisterProvider(auth.NewOAuthProvider(auth.GoogleProviderConfig(
			d.Cfg.GoogleClientID, d.Cfg.GoogleClientSecret, d.Cfg.GoogleRedirectURL,
		)))
	}

	sessions := auth.NewSessionComposer(auth.SessionConfig{
		Secret:   []byte(d.Cfg.AuthSecret),
		TokenTTL: d.Cfg.TokenTTL,
		Issuer:   d.Cfg.TokenIssuer,
	}, store)

	var states *auth.StateStore
	if d.Cache != nil {
		states = auth.NewStateStore(d.Cache, d.Cfg.OAuthStateTTL)
	}
	authHandler := auth.NewHandler(authenticator, sessions, states, notifier, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public surface
	RegisterUserRoutes(api, userHandler, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	rateLimiter := middleware.SigninRateLimit(d.Cache, d.Cfg.SigninRateLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter, d.Cache != nil && d.Cfg.GoogleConfigured())

	// Protected surface: nothing below runs without a materialized session.
	gate := middleware.SessionAuth(sessions)
	protected := api.Group("", gate)
	RegisterProfileRoutes(protected, userHandler)
	protected.Post("/auth/signout", authHandler.SignOut)

	return nil
}
