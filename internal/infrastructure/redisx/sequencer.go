package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Per-day order-number sequence: orders:seq:{yyyymmdd} -> counter.
	keySequence = "orders:seq:%s"

	// Counters outlive the day they belong to only long enough to ride out
	// clock skew between instances.
	sequenceTTL = 48 * time.Hour
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Sequencer hands out monotonically increasing per-day sequence values
// shared across instances via INCR.
type Sequencer struct {
	rdb *redis.Client
}

func NewSequencer(rdb *redis.Client) *Sequencer {
	return &Sequencer{rdb: rdb}
}

func (s *Sequencer) Next(ctx context.Context, day time.Time) (int64, error) {
	key := fmt.Sprintf(keySequence, day.UTC().Format("20060102"))

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis sequencer: %w", err)
	}
	return incr.Val(), nil
}
