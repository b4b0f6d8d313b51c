package user

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	users map[string]User      // keyed by email
	links map[[2]string]string // (provider, subject) -> user id
}

// NewMemoryStore builds an in-memory user store for testing.
func NewMemoryStore() Store {
	return &memoryStore{
		users: make(map[string]User),
		links: make(map[[2]string]string),
	}
}

func (s *memoryStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return ErrEmailTaken
	}
	s.users[user.Email] = user
	return nil
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memoryStore) Update(_ context.Context, id string, update ProfileUpdate) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, user := range s.users {
		if user.ID != id {
			continue
		}
		if update.Name != nil {
			user.Name = *update.Name
		}
		if update.Phone != nil {
			user.Phone = *update.Phone
		}
		if update.Image != nil {
			user.Image = *update.Image
		}
		s.users[email] = user
		return user, nil
	}
	return User{}, ErrNotFound
}

func (s *memoryStore) LinkProvider(_ context.Context, link ProviderLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[[2]string{link.Provider, link.Subject}] = link.UserID
	return nil
}

func (s *memoryStore) FindByProvider(ctx context.Context, provider, subject string) (User, error) {
	s.mu.RLock()
	id, ok := s.links[[2]string{provider, subject}]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	return s.FindByID(ctx, id)
}
