package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionAuth gates protected operations: the handler body never runs unless
// the presented token materializes into a live session. There is no
// null-identity fallthrough.
func SessionAuth(sessions *auth.SessionComposer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		sess, err := sessions.Materialize(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, auth.ErrSessionInvalid.Error())
		}

		c.Locals(auth.SessionContextKey, sess)
		c.Locals("user_id", sess.UserID)
		return c.Next()
	}
}
