package catalog

import "context"

// Repository exposes the stock ledger. Reserve and Release must be atomic
// with respect to concurrent calls on the same variant: two reserves may
// never both succeed when stock covers only one of them.
type Repository interface {
	Get(ctx context.Context, variantID string) (*Variant, error)

	Save(ctx context.Context, v *Variant) error

	// Reserve atomically checks is_active and stock >= quantity, then
	// decrements. The returned snapshot carries the unit price at
	// reservation time.
	Reserve(ctx context.Context, variantID string, quantity int) (*Variant, error)

	// Release atomically increments stock. Calling it twice for the same
	// reservation is the caller's bug, not the ledger's.
	Release(ctx context.Context, variantID string, quantity int) error

	// AddSold adjusts the cumulative sold counter of a product.
	// Best-effort bookkeeping; failures do not affect stock correctness.
	AddSold(ctx context.Context, productID string, delta int) error
}
