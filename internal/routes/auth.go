package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// RegisterAuthRoutes wires the public sign-in endpoints. OAuth routes are
// registered only when a provider and a state store are available.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler, oauthEnabled bool) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/signin", rateLimiter, h.SignIn)
	} else {
		group.Post("/signin", h.SignIn)
	}
	if oauthEnabled {
		group.Get("/oauth/:provider", h.OAuthStart)
		group.Get("/oauth/:provider/callback", h.OAuthCallback)
	}
}
