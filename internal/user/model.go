package user

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a create collides with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrValidation is returned for malformed or missing input, before any store access.
	ErrValidation = errors.New("invalid input")
)

// User is a stored identity record. PasswordHash is nil for accounts created
// through an external provider; such accounts cannot sign in with credentials.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Role         string
	Phone        string
	Image        string
	CreatedAt    time.Time
}

// ProviderLink ties a user to an account at an external identity provider.
type ProviderLink struct {
	UserID    string
	Provider  string
	Subject   string
	CreatedAt time.Time
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name  *string
	Phone *string
	Image *string
}
