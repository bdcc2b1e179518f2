package order_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hoangvu/gearcart/internal/domain/order"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to order.Status }{
		{order.StatusPending, order.StatusProcessing},
		{order.StatusPending, order.StatusCancelled},
		{order.StatusProcessing, order.StatusShipping},
		{order.StatusShipping, order.StatusDelivered},
	}
	for _, tt := range allowed {
		assert.True(t, order.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to order.Status }{
		{order.StatusPending, order.StatusShipping},
		{order.StatusPending, order.StatusDelivered},
		{order.StatusProcessing, order.StatusPending},
		{order.StatusProcessing, order.StatusCancelled},
		{order.StatusShipping, order.StatusCancelled},
		{order.StatusDelivered, order.StatusShipping},
		{order.StatusDelivered, order.StatusCancelled},
		{order.StatusCancelled, order.StatusPending},
		{order.StatusCancelled, order.StatusProcessing},
	}
	for _, tt := range denied {
		assert.False(t, order.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCanTransitionPayment(t *testing.T) {
	assert.True(t, order.CanTransitionPayment(order.PaymentPending, order.PaymentPaid))
	assert.True(t, order.CanTransitionPayment(order.PaymentPending, order.PaymentFailed))

	assert.False(t, order.CanTransitionPayment(order.PaymentPaid, order.PaymentPending))
	assert.False(t, order.CanTransitionPayment(order.PaymentPaid, order.PaymentFailed))
	assert.False(t, order.CanTransitionPayment(order.PaymentFailed, order.PaymentPaid))
}

func TestTerminal(t *testing.T) {
	assert.True(t, order.StatusDelivered.Terminal())
	assert.True(t, order.StatusCancelled.Terminal())
	assert.False(t, order.StatusPending.Terminal())
	assert.False(t, order.StatusProcessing.Terminal())
	assert.False(t, order.StatusShipping.Terminal())
}

func TestFormatNumber(t *testing.T) {
	day := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "ORD-20260831-000042", order.FormatNumber(day, 42))
	assert.Equal(t, "ORD-20260831-000001", order.FormatNumber(day, 1000001))
}

func TestAddressValidate(t *testing.T) {
	full := order.Address{
		FullName: "Nguyen Van A",
		Phone:    "0900000000",
		Street:   "12 Ly Thuong Kiet",
		Ward:     "Ward 7",
		District: "District 3",
		City:     "Ho Chi Minh City",
	}
	assert.NoError(t, full.Validate())

	missing := full
	missing.Ward = ""
	assert.ErrorIs(t, missing.Validate(), order.ErrInvalidAddress)
}
