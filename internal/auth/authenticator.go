package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse/gatehouse/internal/user"
)

var (
	// ErrValidation is returned for missing sign-in input, before any store lookup.
	ErrValidation = errors.New("email and password are required")
	// ErrInvalidCredentials covers unknown email, wrong password, and accounts
	// without password login. One message for all three so a caller cannot
	// probe which emails are registered.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountNotLinked is returned when an external assertion matches an
	// existing account by email but email linking is disabled.
	ErrAccountNotLinked = errors.New("account exists but is not linked to this provider")
	// ErrUnknownProvider is returned for a provider name with no registration.
	ErrUnknownProvider = errors.New("unknown identity provider")
)

// Identity is the normalized result of a successful sign-in, regardless of
// which variant produced it.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  string
	Phone string
	Image string
}

// LinkPolicy controls how external assertions attach to existing accounts.
// Linking by email match trusts the provider to have verified the address, so
// it stays off unless explicitly enabled.
type LinkPolicy struct {
	AllowEmailLinking bool
}

// Authenticator orchestrates credential and external sign-in attempts against
// the user store.
type Authenticator struct {
	store     user.Store
	policy    LinkPolicy
	providers map[string]IdentityProvider
}

// NewAuthenticator creates an authenticator with the given linking policy.
func NewAuthenticator(store user.Store, policy LinkPolicy) *Authenticator {
	return &Authenticator{
		store:     store,
		policy:    policy,
		providers: make(map[string]IdentityProvider),
	}
}

// RegisterProvider makes an external identity provider available by name.
func (a *Authenticator) RegisterProvider(p IdentityProvider) {
	a.providers[p.Name()] = p
}

// Provider returns a registered provider by name.
func (a *Authenticator) Provider(name string) (IdentityProvider, error) {
	p, ok := a.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Credentials verifies an email/password pair. Rejections are expected
// outcomes; only store failures surface as other errors.
func (a *Authenticator) Credentials(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Identity{}, ErrValidation
	}

	u, err := a.store.FindByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	// An account created through an external provider has no stored hash and
	// therefore no credential login. Rejecting here keeps the response
	// indistinguishable from a wrong password.
	if len(u.PasswordHash) == 0 {
		return Identity{}, ErrInvalidCredentials
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}

	return identityFrom(u), nil
}

// External resolves a verified provider assertion to a local identity,
// creating or linking an account as the policy allows.
func (a *Authenticator) External(ctx context.Context, ext ExternalIdentity) (Identity, error) {
	if ext.Provider == "" || ext.Subject == "" {
		return Identity{}, fmt.Errorf("%w: assertion missing provider identity", ErrValidation)
	}

	linked, err := a.store.FindByProvider(ctx, ext.Provider, ext.Subject)
	if err == nil {
		return identityFrom(linked), nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return Identity{}, fmt.Errorf("lookup provider link: %w", err)
	}

	existing, err := a.store.FindByEmail(ctx, ext.Email)
	switch {
	case err == nil:
		if !a.policy.AllowEmailLinking {
			return Identity{}, ErrAccountNotLinked
		}
		if err := a.link(ctx, existing.ID, ext); err != nil {
			return Identity{}, err
		}
		return identityFrom(existing), nil
	case errors.Is(err, user.ErrNotFound):
		created, err := a.provision(ctx, ext)
		if err != nil {
			return Identity{}, err
		}
		return identityFrom(created), nil
	default:
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}
}

// provision creates a passwordless account for a first-time external sign-in.
func (a *Authenticator) provision(ctx context.Context, ext ExternalIdentity) (user.User, error) {
	u := user.User{
		ID:        uuid.New().String(),
		Email:     ext.Email,
		Name:      ext.Name,
		Role:      "user",
		Image:     ext.Image,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.Create(ctx, u); err != nil {
		return user.User{}, fmt.Errorf("provision user: %w", err)
	}
	if err := a.link(ctx, u.ID, ext); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (a *Authenticator) link(ctx context.Context, userID string, ext ExternalIdentity) error {
	err := a.store.LinkProvider(ctx, user.ProviderLink{
		UserID:    userID,
		Provider:  ext.Provider,
		Subject:   ext.Subject,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("link provider: %w", err)
	}
	return nil
}

func identityFrom(u user.User) Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		Phone: u.Phone,
		Image: u.Image,
	}
}
