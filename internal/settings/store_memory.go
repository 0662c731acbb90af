package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"haven/pkg/platform/sentinel"
)

// InMemoryStore is the default store when Redis is not configured. It is
// also what the unit tests drive, including its failure injection hooks.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string

	// failNextSets, when positive, makes that many Set calls fail. Tests
	// use it to exercise the retry-once-then-background persistence policy.
	failNextSets int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("settings key %q: %w", key, sentinel.ErrNotFound)
	}
	return v, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextSets > 0 {
		s.failNextSets--
		return fmt.Errorf("settings key %q: %w", key, sentinel.ErrUnavailable)
	}
	s.values[key] = value
	return nil
}

// FailNextSets arms failure injection for the next n Set calls.
func (s *InMemoryStore) FailNextSets(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextSets = n
}

// IsNotFound reports whether err marks a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
