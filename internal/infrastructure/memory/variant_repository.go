package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hoangvu/gearcart/internal/domain/catalog"
)

// VariantRepository keeps variants in process memory. The mutex makes the
// check-and-decrement of Reserve indivisible, matching the conditional
// update a SQL backend expresses in a single statement.
type VariantRepository struct {
	mu       sync.RWMutex
	variants map[string]*catalog.Variant
	sold     map[string]int
}

func NewVariantRepository() *VariantRepository {
	return &VariantRepository{
		variants: make(map[string]*catalog.Variant),
		sold:     make(map[string]int),
	}
}

func (r *VariantRepository) Get(ctx context.Context, variantID string) (*catalog.Variant, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[variantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, variantID)
	}
	return v.Clone(), nil
}

func (r *VariantRepository) Save(ctx context.Context, v *catalog.Variant) error {
	_ = ctx
	if v == nil || v.ID == "" {
		return fmt.Errorf("variant repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.variants[v.ID] = v.Clone()
	return nil
}

func (r *VariantRepository) Reserve(ctx context.Context, variantID string, quantity int) (*catalog.Variant, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[variantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, variantID)
	}
	if err := v.Reservable(quantity); err != nil {
		return nil, fmt.Errorf("%w: %s (want %d, have %d)", err, v.SKU, quantity, v.Stock)
	}
	v.Deduct(quantity)
	return v.Clone(), nil
}

func (r *VariantRepository) Release(ctx context.Context, variantID string, quantity int) error {
	_ = ctx
	if quantity <= 0 {
		return catalog.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.variants[variantID]
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, variantID)
	}
	v.Restore(quantity)
	return nil
}

func (r *VariantRepository) AddSold(ctx context.Context, productID string, delta int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.sold[productID] + delta
	if n < 0 {
		n = 0
	}
	r.sold[productID] = n
	return nil
}

// Sold reports the cumulative sold counter of a product.
func (r *VariantRepository) Sold(productID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sold[productID]
}
