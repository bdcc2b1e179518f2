package checkout

import (
	"context"
	"time"
)

type IDGenerator interface {
	NewID() string
}

// Sequencer hands out per-day sequence values for order numbers. Values are
// advisory; the order repository is the authority on uniqueness and the
// service retries on conflict.
type Sequencer interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}
