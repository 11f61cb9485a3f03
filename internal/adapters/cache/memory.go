package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweetcrumb/backoffice-auth/internal/ports"
)

// MemoryOAuthStateStore is a process-local OAuthStateStore for single-node
// deployments and tests.
type MemoryOAuthStateStore struct {
	mu     sync.Mutex
	states map[string]memoryState
}

type memoryState struct {
	value     ports.OAuthState
	expiresAt time.Time
}

func NewMemoryOAuthStateStore() *MemoryOAuthStateStore {
	return &MemoryOAuthStateStore{states: make(map[string]memoryState)}
}

func (s *MemoryOAuthStateStore) Put(_ context.Context, state string, value ports.OAuthState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = memoryState{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryOAuthStateStore) Consume(_ context.Context, state string) (*ports.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	delete(s.states, state)
	if time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	value := entry.value
	return &value, nil
}

// MemoryRateLimitStore throttles per key with token buckets. Limiters for
// idle keys are evicted opportunistically on each Allow call.
type MemoryRateLimitStore struct {
	mu       sync.Mutex
	limiters map[string]*memoryLimiter
}

type memoryLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{limiters: make(map[string]*memoryLimiter)}
}

func (s *MemoryRateLimitStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, l := range s.limiters {
		if now.Sub(l.lastSeen) > window*2 {
			delete(s.limiters, k)
		}
	}

	entry, ok := s.limiters[key]
	if !ok {
		entry = &memoryLimiter{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		}
		s.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow(), nil
}
