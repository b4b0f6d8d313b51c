package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gatehouse/gatehouse/internal/user"
)

// RegisterUserRoutes wires public registration. The idempotency middleware
// lets clients retry signup safely with an Idempotency-Key header.
func RegisterUserRoutes(r fiber.Router, h *user.Handler, idempotency fiber.Handler) {
	if idempotency != nil {
		r.Post("/users", idempotency, h.Create)
	} else {
		r.Post("/users", h.Create)
	}
}

// RegisterProfileRoutes wires the protected, self-scoped profile endpoints.
// The target user is always the session's own id.
func RegisterProfileRoutes(r fiber.Router, h *user.Handler) {
	r.Get("/me", h.Me)
	r.Patch("/me", h.UpdateProfile)
}
