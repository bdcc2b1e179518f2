package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/domain/event"
	"github.com/hoangvu/gearcart/internal/domain/order"
)

// Register attaches the audit trail to the event stream: every order
// lifecycle event is written as one structured log line. The trail is the
// in-process consumer of the bus; deployments publishing to kafka get the
// same record from the topic instead.
func Register(sub event.Subscriber, logger *zap.Logger) {
	log := logger.With(zap.String("component", "order_audit"))

	sub.Subscribe(order.OrderCreatedEvent{}.EventName(), func(ctx context.Context, e event.Event) error {
		ev, ok := e.(order.OrderCreatedEvent)
		if !ok {
			return nil
		}
		log.Info("audit_order_created",
			zap.String("order_id", ev.OrderID),
			zap.String("order_number", ev.Number),
			zap.String("customer_id", ev.CustomerID),
			zap.Int64("total", ev.Total),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	})

	sub.Subscribe(order.OrderCancelledEvent{}.EventName(), func(ctx context.Context, e event.Event) error {
		ev, ok := e.(order.OrderCancelledEvent)
		if !ok {
			return nil
		}
		log.Info("audit_order_cancelled",
			zap.String("order_id", ev.OrderID),
			zap.String("order_number", ev.Number),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	})

	sub.Subscribe(order.OrderPaidEvent{}.EventName(), func(ctx context.Context, e event.Event) error {
		ev, ok := e.(order.OrderPaidEvent)
		if !ok {
			return nil
		}
		log.Info("audit_order_paid",
			zap.String("order_id", ev.OrderID),
			zap.String("order_number", ev.Number),
			zap.String("transaction_id", ev.TransactionID),
			zap.Int64("amount", ev.Amount),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	})
}
