// Package random provides a seeded rand.Rand that is safe to share across
// concurrent request handlers.
package random

import (
	"math/rand"
	"sync"
)

// NewLocked returns a *rand.Rand whose source is guarded by a mutex.
// math/rand.Rand is not safe for concurrent use; one locked instance can be
// injected everywhere a sampling decision needs a reproducible seed.
func NewLocked(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}
