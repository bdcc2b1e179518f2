package catalog

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("catalog: variant not found")
	ErrInactive          = errors.New("catalog: variant is inactive")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
)

// Variant is a purchasable SKU. The engine only ever mutates Stock and the
// per-product sold counter; everything else is owned by the catalog.
type Variant struct {
	ID        string
	ProductID string
	SKU       string
	Name      string
	Price     int64
	Stock     int
	IsActive  bool
	UpdatedAt time.Time
}

// Reservable reports whether a reservation of quantity units may proceed.
// Callers that hold no lock must not act on a nil result without an atomic
// conditional decrement; this exists for validation under a repository lock.
func (v *Variant) Reservable(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !v.IsActive {
		return ErrInactive
	}
	if v.Stock < quantity {
		return ErrInsufficientStock
	}
	return nil
}

func (v *Variant) Clone() *Variant {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

func (v *Variant) touch() {
	v.UpdatedAt = time.Now().UTC()
}

// Deduct lowers stock without re-checking; the caller validated via
// Reservable under the same lock.
func (v *Variant) Deduct(quantity int) {
	v.Stock -= quantity
	v.touch()
}

func (v *Variant) Restore(quantity int) {
	v.Stock += quantity
	v.touch()
}
