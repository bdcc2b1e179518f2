package order

import "time"

// OrderCreatedEvent is emitted after an order and all its reservations have
// been committed.
type OrderCreatedEvent struct {
	OrderID    string
	Number     string
	CustomerID string
	Total      int64
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func (e OrderCreatedEvent) EventKey() string { return e.OrderID }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted after a pending order has been cancelled
// and its reservations released.
type OrderCancelledEvent struct {
	OrderID    string
	Number     string
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func (e OrderCancelledEvent) EventKey() string { return e.OrderID }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted when a payment notification transitions the
// order to paid. Emitted at most once per order.
type OrderPaidEvent struct {
	OrderID       string
	Number        string
	TransactionID string
	Amount        int64
	OccurredAt    time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func (e OrderPaidEvent) EventKey() string { return e.OrderID }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:       o.ID,
		Number:        o.Number,
		TransactionID: o.TransactionID,
		Amount:        o.Total,
		OccurredAt:    time.Now().UTC(),
	}
}
