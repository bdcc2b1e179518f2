package checkout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/gearcart/internal/application/checkout"
	"github.com/hoangvu/gearcart/internal/domain/catalog"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/domain/voucher"
	"github.com/hoangvu/gearcart/internal/infrastructure/id"
	"github.com/hoangvu/gearcart/internal/infrastructure/memory"
)

type fixture struct {
	svc      *checkout.Service
	orders   *memory.OrderRepository
	variants *memory.VariantRepository
	vouchers *memory.VoucherRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orders:   memory.NewOrderRepository(),
		variants: memory.NewVariantRepository(),
		vouchers: memory.NewVoucherRepository(),
	}
	f.svc = checkout.NewService(
		f.orders, f.variants, f.vouchers,
		memory.NewSequencer(), id.NewUUIDGenerator(), nil,
	)
	return f
}

func (f *fixture) seedVariant(t *testing.T, variantID string, price int64, stock int) {
	t.Helper()
	require.NoError(t, f.variants.Save(context.Background(), &catalog.Variant{
		ID:        variantID,
		ProductID: "prod-" + variantID,
		SKU:       "SKU-" + variantID,
		Name:      "variant " + variantID,
		Price:     price,
		Stock:     stock,
		IsActive:  true,
	}))
}

func (f *fixture) seedVoucher(t *testing.T, v *voucher.Voucher) {
	t.Helper()
	now := time.Now().UTC()
	if v.StartsAt.IsZero() {
		v.StartsAt = now.Add(-time.Hour)
	}
	if v.ExpiresAt.IsZero() {
		v.ExpiresAt = now.Add(time.Hour)
	}
	require.NoError(t, f.vouchers.Save(context.Background(), v))
}

func (f *fixture) stock(t *testing.T, variantID string) int {
	t.Helper()
	v, err := f.variants.Get(context.Background(), variantID)
	require.NoError(t, err)
	return v.Stock
}

func (f *fixture) usedCount(t *testing.T, code string) int {
	t.Helper()
	v, err := f.vouchers.Get(context.Background(), code)
	require.NoError(t, err)
	return v.UsedCount
}

func validAddress() order.Address {
	return order.Address{
		FullName: "Nguyen Van A",
		Phone:    "0900000000",
		Street:   "12 Ly Thuong Kiet",
		Ward:     "Ward 7",
		District: "District 3",
		City:     "Ho Chi Minh City",
	}
}

func createInput(items ...checkout.CartItem) checkout.CreateOrderInput {
	return checkout.CreateOrderInput{
		CustomerID:      "cust-1",
		Items:           items,
		ShippingAddress: validAddress(),
		PaymentMethod:   order.PaymentMethodCOD,
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
	in.ShippingFee = 50000

	o, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(200000), o.Subtotal)
	assert.Equal(t, int64(0), o.Discount)
	assert.Equal(t, int64(250000), o.Total)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Regexp(t, `^ORD-\d{8}-\d{6}$`, o.Number)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(100000), o.Items[0].UnitPrice)

	assert.Equal(t, 1, f.stock(t, "v1"))
	assert.Equal(t, 2, f.variants.Sold("prod-v1"))

	persisted, err := f.orders.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, persisted.Number)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 1)

	in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
	in.ShippingFee = 50000

	_, err := f.svc.CreateOrder(context.Background(), in)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "SKU-v1")

	assert.Equal(t, 1, f.stock(t, "v1"), "no partial mutation")
	list, err := f.orders.List(context.Background(), order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateOrderCompensatesEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 5)
	f.seedVariant(t, "v2", 80000, 1)

	_, err := f.svc.CreateOrder(context.Background(), createInput(
		checkout.CartItem{VariantID: "v1", Quantity: 2},
		checkout.CartItem{VariantID: "v2", Quantity: 3},
	))
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	assert.Equal(t, 5, f.stock(t, "v1"), "first reservation rolled back")
	assert.Equal(t, 1, f.stock(t, "v2"))
	assert.Equal(t, 0, f.variants.Sold("prod-v1"))
}

func TestCreateOrderUnknownVariantCompensates(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 5)

	_, err := f.svc.CreateOrder(context.Background(), createInput(
		checkout.CartItem{VariantID: "v1", Quantity: 1},
		checkout.CartItem{VariantID: "ghost", Quantity: 1},
	))
	require.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, 5, f.stock(t, "v1"))
}

func TestCreateOrderVoucherDiscountCapped(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)
	f.seedVoucher(t, &voucher.Voucher{
		Code:          "SAVE10",
		Kind:          voucher.KindPercentage,
		Value:         10,
		MaxDiscount:   15000,
		MinOrderValue: 50000,
		IsActive:      true,
	})

	in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
	in.VoucherCode = "SAVE10"
	in.ShippingFee = 50000

	o, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, int64(200000), o.Subtotal)
	assert.Equal(t, int64(15000), o.Discount, "capped, not 20000")
	assert.Equal(t, int64(235000), o.Total)
	assert.Equal(t, 1, f.usedCount(t, "SAVE10"))
}

func TestCreateOrderVoucherRejectionCompensatesStock(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		voucher *voucher.Voucher
		wantErr error
	}{
		{
			name: "expired",
			voucher: &voucher.Voucher{
				Code: "OLD", Kind: voucher.KindFixed, Value: 10000,
				StartsAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour),
				IsActive: true,
			},
			wantErr: voucher.ErrExpired,
		},
		{
			name: "below minimum",
			voucher: &voucher.Voucher{
				Code: "BIGONLY", Kind: voucher.KindFixed, Value: 10000,
				MinOrderValue: 500000, IsActive: true,
			},
			wantErr: voucher.ErrBelowMinimum,
		},
		{
			name: "inactive",
			voucher: &voucher.Voucher{
				Code: "OFF", Kind: voucher.KindFixed, Value: 10000,
			},
			wantErr: voucher.ErrInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedVariant(t, "v1", 100000, 3)
			f.seedVoucher(t, tt.voucher)

			in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
			in.VoucherCode = tt.voucher.Code

			_, err := f.svc.CreateOrder(context.Background(), in)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 3, f.stock(t, "v1"), "reservations rolled back")
			assert.Equal(t, 0, f.usedCount(t, tt.voucher.Code))
		})
	}
}

func TestCreateOrderNegativeTotalRejected(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)
	f.seedVoucher(t, &voucher.Voucher{
		Code: "HUGE", Kind: voucher.KindFixed, Value: 300000, IsActive: true,
	})

	in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
	in.VoucherCode = "HUGE"
	in.ShippingFee = 50000

	_, err := f.svc.CreateOrder(context.Background(), in)
	require.ErrorIs(t, err, checkout.ErrNegativeTotal)

	assert.Equal(t, 3, f.stock(t, "v1"))
	assert.Equal(t, 0, f.usedCount(t, "HUGE"), "consumed use released")
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	t.Run("empty cart", func(t *testing.T) {
		in := createInput()
		_, err := f.svc.CreateOrder(context.Background(), in)
		require.ErrorIs(t, err, order.ErrEmptyCart)
	})

	t.Run("zero quantity", func(t *testing.T) {
		in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 0})
		_, err := f.svc.CreateOrder(context.Background(), in)
		require.ErrorIs(t, err, order.ErrInvalidQuantity)
	})

	t.Run("incomplete address", func(t *testing.T) {
		in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 1})
		in.ShippingAddress.City = ""
		_, err := f.svc.CreateOrder(context.Background(), in)
		require.ErrorIs(t, err, order.ErrInvalidAddress)
	})

	t.Run("unknown payment method", func(t *testing.T) {
		in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 1})
		in.PaymentMethod = "carrier-pigeon"
		_, err := f.svc.CreateOrder(context.Background(), in)
		require.ErrorIs(t, err, checkout.ErrUnknownPayMethod)
	})

	assert.Equal(t, 3, f.stock(t, "v1"))
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)
	f.seedVoucher(t, &voucher.Voucher{
		Code: "SAVE", Kind: voucher.KindFixed, Value: 10000, IsActive: true,
	})

	in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 2})
	in.VoucherCode = "SAVE"
	o, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 1, f.stock(t, "v1"))
	require.Equal(t, 1, f.usedCount(t, "SAVE"))

	cancelled, err := f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{
		OrderID:    o.ID,
		CustomerID: "cust-1",
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, 3, f.stock(t, "v1"), "stock restored to pre-order value")
	assert.Equal(t, 0, f.usedCount(t, "SAVE"))
	assert.Equal(t, 0, f.variants.Sold("prod-v1"))
}

func TestCancelOrderNotOwner(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	o, err := f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{
		OrderID:    o.ID,
		CustomerID: "someone-else",
	})
	require.ErrorIs(t, err, checkout.ErrNotOwner)
	assert.Equal(t, 2, f.stock(t, "v1"), "nothing released")

	// Elevated callers may cancel on behalf of the owner.
	_, err = f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{
		OrderID:  o.ID,
		Elevated: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, "v1"))
}

func TestCancelOrderNonPendingRejected(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	o, err := f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)

	processing := order.StatusProcessing
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, &processing, nil)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{
		OrderID:    o.ID,
		CustomerID: "cust-1",
	})
	require.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.Equal(t, 1, f.stock(t, "v1"), "no release on rejected cancel")
}

func TestCancelOrderTwiceReleasesOnce(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	o, err := f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 2}))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{OrderID: o.ID, CustomerID: "cust-1"})
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(context.Background(), checkout.CancelOrderInput{OrderID: o.ID, CustomerID: "cust-1"})
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	assert.Equal(t, 3, f.stock(t, "v1"), "second cancel must not restore again")
}

func TestUpdateStatusTerminalRejected(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 3)

	o, err := f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 1}))
	require.NoError(t, err)

	for _, s := range []order.Status{order.StatusProcessing, order.StatusShipping, order.StatusDelivered} {
		next := s
		_, err = f.svc.UpdateStatus(context.Background(), o.ID, &next, nil)
		require.NoError(t, err)
	}

	shipping := order.StatusShipping
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, &shipping, nil)
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	cancelled := order.StatusCancelled
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, &cancelled, nil)
	require.ErrorIs(t, err, order.ErrInvalidTransition, "delivered order can never be cancelled")
}

func TestConcurrentCreateOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 5)

	const attempts = 20

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 1}))
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, catalog.ErrInsufficientStock)
			insufficient++
		}
	}

	assert.Equal(t, 5, ok)
	assert.Equal(t, attempts-5, insufficient)
	assert.Equal(t, 0, f.stock(t, "v1"))
}

func TestConcurrentVoucherConsumptionHonoursLimit(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 100)
	f.seedVoucher(t, &voucher.Voucher{
		Code: "LIMIT3", Kind: voucher.KindFixed, Value: 10000,
		UsageLimit: 3, IsActive: true,
	})

	const attempts = 10

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := createInput(checkout.CartItem{VariantID: "v1", Quantity: 1})
			in.VoucherCode = "LIMIT3"
			_, errs[i] = f.svc.CreateOrder(context.Background(), in)
		}(i)
	}
	wg.Wait()

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, voucher.ErrUsageExhausted)
			exhausted++
		}
	}

	assert.Equal(t, 3, ok, "usage limit must hold under concurrency")
	assert.Equal(t, attempts-3, exhausted)
	assert.Equal(t, 3, f.usedCount(t, "LIMIT3"))

	// Rejected attempts rolled their reservations back.
	assert.Equal(t, 100-3, f.stock(t, "v1"))
}

func TestOrderNumbersUnique(t *testing.T) {
	f := newFixture(t)
	f.seedVariant(t, "v1", 100000, 100)

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		o, err := f.svc.CreateOrder(context.Background(), createInput(checkout.CartItem{VariantID: "v1", Quantity: 1}))
		require.NoError(t, err)
		require.False(t, seen[o.Number], "duplicate order number %s", o.Number)
		seen[o.Number] = true
	}
}
