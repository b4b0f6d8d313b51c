package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatehouse/gatehouse/internal/user"
)

// ErrSessionInvalid covers missing, expired, tampered, and orphaned session
// tokens. The gate maps it to a single authorization-denied response.
var ErrSessionInvalid = errors.New("session token is invalid or expired")

// SessionContextKey is the request-local key under which the gate stores the
// materialized Session for protected handlers.
const SessionContextKey = "session"

// SessionConfig defines how session tokens are signed and how long they live.
// Passed explicitly at construction; there is no ambient session state.
type SessionConfig struct {
	Secret   []byte
	TokenTTL time.Duration
	Issuer   string
	// Now allows tests to control token timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Session is the per-request view of an authenticated caller. Every field
// except UserID is re-read from the store when the token is materialized, so
// profile edits show up without re-authentication.
type Session struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	Phone     string
	Image     string
	ExpiresAt time.Time
}

// sessionClaims is the token payload: registered claims plus the role tier.
// The token deliberately carries nothing else; the rest of the profile is
// live data.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// SessionComposer mints session tokens for authenticated identities and
// materializes sessions from presented tokens.
type SessionComposer struct {
	cfg   SessionConfig
	store user.Store
}

// NewSessionComposer builds a composer from an explicit config and the user store.
func NewSessionComposer(cfg SessionConfig, store user.Store) *SessionComposer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionComposer{cfg: cfg, store: store}
}

// Compose signs a session token for an authenticated identity.
func (c *SessionComposer) Compose(identity Identity) (string, error) {
	now := c.cfg.Now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.TokenTTL)),
		},
		Role: identity.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Materialize verifies a token and rebuilds the session from the current
// store record. A valid signature over a deleted user still fails.
func (c *SessionComposer) Materialize(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionInvalid
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.cfg.Now),
	)
	if err != nil {
		return Session{}, ErrSessionInvalid
	}
	if claims.Subject == "" {
		return Session{}, ErrSessionInvalid
	}

	u, err := c.store.FindByID(ctx, claims.Subject)
	if errors.Is(err, user.ErrNotFound) {
		return Session{}, ErrSessionInvalid
	}
	if err != nil {
		return Session{}, fmt.Errorf("rehydrate session: %w", err)
	}

	return Session{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Phone:     u.Phone,
		Image:     u.Image,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
