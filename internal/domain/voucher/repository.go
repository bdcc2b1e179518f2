package voucher

import "context"

// Repository owns usage counters. Consume re-checks the usage limit at the
// moment of the increment; an earlier Validate read is advisory only, two
// concurrent orders can both pass it for the last remaining use.
type Repository interface {
	Get(ctx context.Context, code string) (*Voucher, error)

	Save(ctx context.Context, v *Voucher) error

	// Consume atomically increments the usage counter, failing with
	// ErrUsageExhausted if the limit is already reached.
	Consume(ctx context.Context, code string) error

	// Release atomically decrements the usage counter, floored at zero.
	Release(ctx context.Context, code string) error
}
