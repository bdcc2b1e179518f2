package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hoangvu/gearcart/internal/domain/voucher"
)

// VoucherRepository keeps vouchers in process memory. Consume re-checks the
// usage limit under the lock, closing the gap between an earlier Validate
// read and the increment.
type VoucherRepository struct {
	mu       sync.RWMutex
	vouchers map[string]*voucher.Voucher
}

func NewVoucherRepository() *VoucherRepository {
	return &VoucherRepository{
		vouchers: make(map[string]*voucher.Voucher),
	}
}

func (r *VoucherRepository) Get(ctx context.Context, code string) (*voucher.Voucher, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vouchers[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", voucher.ErrNotFound, code)
	}
	return v.Clone(), nil
}

func (r *VoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	_ = ctx
	if v == nil || v.Code == "" {
		return fmt.Errorf("voucher repository: code is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.vouchers[v.Code] = v.Clone()
	return nil
}

func (r *VoucherRepository) Consume(ctx context.Context, code string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[code]
	if !ok {
		return fmt.Errorf("%w: %s", voucher.ErrNotFound, code)
	}
	if v.UsageLimit > 0 && v.UsedCount >= v.UsageLimit {
		return fmt.Errorf("%w: %s", voucher.ErrUsageExhausted, code)
	}
	v.UsedCount++
	return nil
}

func (r *VoucherRepository) Release(ctx context.Context, code string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vouchers[code]
	if !ok {
		return fmt.Errorf("%w: %s", voucher.ErrNotFound, code)
	}
	if v.UsedCount > 0 {
		v.UsedCount--
	}
	return nil
}
