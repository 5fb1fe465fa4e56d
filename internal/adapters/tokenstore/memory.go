package tokenstore

import (
	"context"
	"errors"
	"sync"

	"github.com/sprintdeck/sprintdeck-go/internal/ports"
)

// MemoryStore keeps the token in process memory. It backs ephemeral runs and
// the memory config backend; nothing survives process exit.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

var _ ports.TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ports.ErrTokenNotFound
	}
	return s.token, nil
}

func (s *MemoryStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}
