package memory

import (
	"context"
	"sync"
	"time"
)

// Store is the default in-process fingerprint store. Entries expire after
// the TTL; expiry is enforced lazily on every Seen call so long sessions
// stay bounded without a background sweeper.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// WithClock replaces the store's time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Seen(_ context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	_, ok := s.entries[fingerprint]
	return ok, nil
}

func (s *Store) Remember(_ context.Context, fingerprint string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprint] = s.now()
	return nil
}

// Len reports the live entry count after a sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries)
}

func (s *Store) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for fp, at := range s.entries {
		if at.Before(cutoff) {
			delete(s.entries, fp)
		}
	}
}
