package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gatehouse/gatehouse/internal/notification"
)

// Handler exposes sign-in, OAuth handshake, and sign-out endpoints.
type Handler struct {
	auth     *Authenticator
	sessions *SessionComposer
	states   *StateStore
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(auth *Authenticator, sessions *SessionComposer, states *StateStore, notifier notification.Notifier, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, sessions: sessions, states: states, notifier: notifier, logger: logger}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Image     string    `json:"image,omitempty"`
}

// SignIn verifies credentials and issues a session token.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	identity, err := h.auth.Credentials(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return mapSignInError(err)
	}
	return h.respondWithSession(c, identity)
}

// OAuthStart redirects to the provider consent page with a stored state nonce.
func (h *Handler) OAuthStart(c *fiber.Ctx) error {
	provider, err := h.auth.Provider(c.Params("provider"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	state, err := h.states.Issue(c.UserContext())
	if err != nil {
		h.logger.Error("issue oauth state", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "unable to start sign-in")
	}
	return c.Redirect(provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback consumes the state nonce, verifies the provider assertion,
// and issues a session token.
func (h *Handler) OAuthCallback(c *fiber.Ctx) error {
	provider, err := h.auth.Provider(c.Params("provider"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err := h.states.Consume(c.UserContext(), c.Query("state")); err != nil {
		if errors.Is(err, ErrStateInvalid) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		h.logger.Error("consume oauth state", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "unable to complete sign-in")
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(http.StatusBadRequest, "missing authorization code")
	}
	assertion, err := provider.VerifyAssertion(c.UserContext(), code)
	if err != nil {
		h.logger.Warn("provider assertion rejected", "provider", provider.Name(), "error", err)
		return fiber.NewError(http.StatusUnauthorized, "identity assertion rejected")
	}
	identity, err := h.auth.External(c.UserContext(), assertion)
	if err != nil {
		return mapSignInError(err)
	}
	return h.respondWithSession(c, identity)
}

// SignOut ends the caller's session. Tokens are stateless, so sign-out is a
// client-side discard; the endpoint records the event.
func (h *Handler) SignOut(c *fiber.Ctx) error {
	if sess, ok := c.Locals(SessionContextKey).(Session); ok {
		h.logger.Info("session ended", "user_id", sess.UserID)
		if h.notifier != nil {
			_ = h.notifier.Send(c.UserContext(), notification.Message{
				Kind:        notification.KindSignOut,
				Destination: sess.Email,
			})
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "signed_out"})
}

func (h *Handler) respondWithSession(c *fiber.Ctx, identity Identity) error {
	token, err := h.sessions.Compose(identity)
	if err != nil {
		h.logger.Error("compose session", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "unable to issue session")
	}
	sess, err := h.sessions.Materialize(c.UserContext(), token)
	if err != nil {
		h.logger.Error("materialize fresh session", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "unable to issue session")
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    sess.UserID,
		Email:     sess.Email,
		Name:      sess.Name,
		Role:      sess.Role,
		Phone:     sess.Phone,
		Image:     sess.Image,
	})
}

// mapSignInError translates expected sign-in rejections to HTTP statuses
// without leaking which check failed.
func mapSignInError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, ErrValidation.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrAccountNotLinked):
		return fiber.NewError(http.StatusConflict, ErrAccountNotLinked.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "sign-in failed")
	}
}
