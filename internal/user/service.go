package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/notification"
)

const defaultRole = "user"

// Service manages user lifecycle and profile mutation.
type Service struct {
	store    Store
	notifier notification.Notifier
}

// NewService creates a new user service.
func NewService(store Store, notifier notification.Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// CreateInput carries the public registration fields.
type CreateInput struct {
	Name     string
	Email    string
	Password string
}

// Create registers a new credential user with a hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if input.Password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         defaultRole,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Create(ctx, user); err != nil {
		return User{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindWelcome,
			Destination: user.Email,
			Body:        fmt.Sprintf("welcome, %s", user.Name),
		})
	}

	return user, nil
}

// Get fetches a user by id. The id always comes from the caller's own session.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.store.FindByID(ctx, id)
}

// UpdateProfile applies a partial update to the caller's own record.
func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	if update.Name == nil && update.Phone == nil && update.Image == nil {
		return User{}, fmt.Errorf("%w: no fields to update", ErrValidation)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return User{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	return s.store.Update(ctx, id, update)
}
