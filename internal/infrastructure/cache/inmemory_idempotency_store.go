package cache

import (
	"context"
	"sync"
	"time"

	"github.com/campus/backend/internal/domain/shared"
)

type claim struct {
	receipt   string
	expiresAt time.Time
}

// InMemoryIdempotencyStore keeps submission keys in a map. Keys are not
// shared between processes, so it only suits single-instance deployments
// and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	claims    map[string]claim
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore starts the store and its expiry sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		claims:   make(map[string]claim),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.sweepLoop(5 * time.Minute)

	return store
}

// Claim reserves key for ttl. An expired claim is taken over.
func (s *InMemoryIdempotencyStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, ok := s.live(key, now); ok {
		return false, nil
	}
	s.claims[key] = claim{expiresAt: now.Add(ttl)}
	return true, nil
}

// Complete records the receipt on a live claim and ignores anything else
func (s *InMemoryIdempotencyStore) Complete(_ context.Context, key, receiptNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.live(key, s.now()); ok {
		c.receipt = receiptNumber
		s.claims[key] = c
	}
	return nil
}

func (s *InMemoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.live(key, s.now())
	return c.receipt, ok, nil
}

// live must be called with mu held.
func (s *InMemoryIdempotencyStore) live(key string, now time.Time) (claim, bool) {
	c, ok := s.claims[key]
	if !ok || !now.Before(c.expiresAt) {
		return claim{}, false
	}
	return c, true
}

// Release drops the claim on key
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.claims, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, c := range s.claims {
		if !now.Before(c.expiresAt) {
			delete(s.claims, key)
		}
	}
}

// Size returns the number of claims held, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
