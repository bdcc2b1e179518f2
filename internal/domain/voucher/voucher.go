package voucher

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("voucher: not found")
	ErrInactive       = errors.New("voucher: inactive")
	ErrNotStarted     = errors.New("voucher: not started yet")
	ErrExpired        = errors.New("voucher: expired")
	ErrUsageExhausted = errors.New("voucher: usage limit reached")
	ErrBelowMinimum   = errors.New("voucher: order value below minimum")
)

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Voucher is a discount code with a validity window and an optional usage
// limit. Zero values of MaxDiscount, MinOrderValue and UsageLimit mean
// "no cap", "no minimum" and "unlimited".
type Voucher struct {
	Code          string
	Kind          Kind
	Value         int64
	MaxDiscount   int64
	MinOrderValue int64
	UsageLimit    int
	UsedCount     int
	StartsAt      time.Time
	ExpiresAt     time.Time
	IsActive      bool
}

// Validate checks applicability against an order value at a point in time.
// The check order is fixed: active flag, window start, window end, usage
// limit, minimum order value.
func (v *Voucher) Validate(at time.Time, orderValue int64) error {
	if !v.IsActive {
		return ErrInactive
	}
	if at.Before(v.StartsAt) {
		return ErrNotStarted
	}
	if at.After(v.ExpiresAt) {
		return ErrExpired
	}
	if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
		return ErrUsageExhausted
	}
	if orderValue < v.MinOrderValue {
		return ErrBelowMinimum
	}
	return nil
}

// Discount computes the discount amount for an order value. Percentage
// discounts are capped at MaxDiscount when set; fixed discounts are
// returned as-is, the caller clamps the final total.
func (v *Voucher) Discount(orderValue int64) int64 {
	switch v.Kind {
	case KindPercentage:
		amount := orderValue * v.Value / 100
		if v.MaxDiscount > 0 && amount > v.MaxDiscount {
			amount = v.MaxDiscount
		}
		return amount
	case KindFixed:
		return v.Value
	default:
		return 0
	}
}

func (v *Voucher) Clone() *Voucher {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}
