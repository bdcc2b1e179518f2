package memory

import (
	"context"
	"sync"
	"time"
)

// Sequencer hands out per-day order-number sequence values from process
// memory. Suitable for a single instance; multi-instance deployments use
// the redis-backed sequencer instead.
type Sequencer struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{counts: make(map[string]int64)}
}

func (s *Sequencer) Next(ctx context.Context, day time.Time) (int64, error) {
	_ = ctx

	key := day.UTC().Format("20060102")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	return s.counts[key], nil
}
