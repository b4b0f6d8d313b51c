package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateInvalid is returned when an OAuth callback presents a state nonce
// that was never issued or was already consumed.
var ErrStateInvalid = errors.New("oauth state is invalid or expired")

const statePrefix = "oauthstate:v1:"

// StateStore issues and consumes single-use OAuth state nonces backed by Redis,
// so the callback can reject forged or replayed redirects.
type StateStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewStateStore builds a state store with the given nonce lifetime.
func NewStateStore(cache *redis.Client, ttl time.Duration) *StateStore {
	return &StateStore{cache: cache, ttl: ttl}
}

// Issue creates and stores a fresh state nonce.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := hex.EncodeToString(buf)
	if err := s.cache.Set(ctx, statePrefix+state, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume validates a nonce and removes it so it cannot be replayed.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrStateInvalid
	}
	err := s.cache.GetDel(ctx, statePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return ErrStateInvalid
	}
	if err != nil {
		return fmt.Errorf("consume state: %w", err)
	}
	return nil
}
