package order

import (
	"context"
	"time"
)

type Filter struct {
	CustomerID string
	Status     Status
	From       time.Time
	To         time.Time
}

// Repository owns order records and their lifecycle. Transition, MarkPaid
// and MarkPaymentFailed re-check the current state atomically before
// applying a change; there is no blind overwrite.
type Repository interface {
	// Insert persists a new order. ErrConflict when the ID or the
	// human-readable Number is already taken.
	Insert(ctx context.Context, o *Order) error

	Get(ctx context.Context, id string) (*Order, error)

	GetByNumber(ctx context.Context, number string) (*Order, error)

	List(ctx context.Context, f Filter) ([]*Order, error)

	// Transition applies an order-status and/or payment-status change,
	// validating both state machines against the current record.
	Transition(ctx context.Context, id string, status *Status, payment *PaymentStatus) (*Order, error)

	// MarkPaid is the idempotence guard of payment reconciliation: it sets
	// payment status to paid only if currently pending, records the
	// provider transaction id and advances a pending order to processing.
	// ErrAlreadyPaid when the order was paid before this call.
	MarkPaid(ctx context.Context, id, transactionID string) (*Order, error)

	// MarkPaymentFailed sets payment status to failed only if currently
	// pending; the order status is left untouched. A repeat delivery of
	// the same failure is a no-op.
	MarkPaymentFailed(ctx context.Context, id, transactionID string) (*Order, error)
}
