package user

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// callerIDKey is the request-local set by the session gate. Handlers act only
// on the caller's own id; no request field can name another user.
const callerIDKey = "user_id"

// Handler exposes user registration and self-scoped profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a user HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Image *string `json:"image"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
	Image string `json:"image,omitempty"`
}

// Create handles public registration.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	u, err := h.service.Create(c.UserContext(), CreateInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return mapUserError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(u))
}

// Me returns the caller's own record, identified by the session.
func (h *Handler) Me(c *fiber.Ctx) error {
	callerID, ok := c.Locals(callerIDKey).(string)
	if !ok || callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "session required")
	}
	u, err := h.service.Get(c.UserContext(), callerID)
	if err != nil {
		return mapUserError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(u))
}

// UpdateProfile applies a partial update to the caller's own record. The
// target id always comes from the session, never from the request body.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	callerID, ok := c.Locals(callerIDKey).(string)
	if !ok || callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "session required")
	}
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	u, err := h.service.UpdateProfile(c.UserContext(), callerID, ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		Image: req.Image,
	})
	if err != nil {
		return mapUserError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(u))
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		Phone: u.Phone,
		Image: u.Image,
	}
}

// mapUserError translates expected outcomes to HTTP statuses. Store
// connectivity failures fall through as generic 500s.
func mapUserError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return fiber.NewError(http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "request failed")
	}
}
