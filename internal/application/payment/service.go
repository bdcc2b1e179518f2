package payment

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/domain/event"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/pkg/logging"
)

// Acknowledgement codes the provider expects on the notification path.
const (
	CodeSuccess          = "00"
	CodeOrderNotFound    = "01"
	CodeAlreadyConfirmed = "02"
	CodeInvalidAmount    = "04"
	CodeInvalidSignature = "97"
	CodeInternalError    = "99"
)

// Ack is the structured acknowledgement the asynchronous notification path
// returns to the provider.
type Ack struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// ReturnResult is what the synchronous browser-return path yields; the
// HTTP layer turns it into a redirect.
type ReturnResult struct {
	OrderNumber string
	Paid        bool
	Message     string
}

var tracer = otel.Tracer("gearcart/payment")

const (
	componentReconciler = "payment_reconciler"
	publishTimeout      = 300 * time.Millisecond
)

// Service reconciles provider callbacks against local orders. Both delivery
// paths funnel through the same verify -> resolve -> idempotence-guard ->
// apply sequence; they differ only in what is returned to the caller.
type Service struct {
	orders    order.Repository
	verifier  CallbackVerifier
	publisher event.Publisher
}

func NewService(orders order.Repository, verifier CallbackVerifier, publisher event.Publisher) *Service {
	return &Service{
		orders:    orders,
		verifier:  verifier,
		publisher: publisher,
	}
}

// HandleNotify consumes the asynchronous server-to-server notification and
// always produces an acknowledgement; it never returns an error to the
// transport.
func (s *Service) HandleNotify(ctx context.Context, query url.Values) Ack {
	outcome := s.process(ctx, query)
	return outcome.ack
}

// HandleReturn consumes the synchronous browser return. Signature failures
// surface as errors; everything else is summarised for the redirect target.
func (s *Service) HandleReturn(ctx context.Context, query url.Values) (*ReturnResult, error) {
	outcome := s.process(ctx, query)
	if outcome.ack.RspCode == CodeInvalidSignature {
		return nil, ErrInvalidSignature
	}
	if outcome.ack.RspCode == CodeOrderNotFound {
		return nil, order.ErrNotFound
	}

	res := &ReturnResult{Message: outcome.ack.Message}
	if outcome.order != nil {
		res.OrderNumber = outcome.order.Number
		res.Paid = outcome.order.PaymentStatus == order.PaymentPaid
	}
	return res, nil
}

type outcome struct {
	ack   Ack
	order *order.Order
}

func (s *Service) process(ctx context.Context, query url.Values) (out outcome) {
	logger := logging.FromContext(ctx).With(zap.String("component", componentReconciler))

	ctx, span := tracer.Start(ctx, "Payment.Reconcile")
	defer func() {
		span.SetAttributes(attribute.String("callback.rsp_code", out.ack.RspCode))
		span.End()
	}()

	// Step 1: authenticity. A tampered callback mutates nothing.
	cb, err := s.verifier.Decode(query)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			logger.Warn("callback_signature_invalid")
			return outcome{ack: Ack{RspCode: CodeInvalidSignature, Message: "invalid signature"}}
		}
		logger.Error("callback_decode_failed", zap.Error(err))
		return outcome{ack: Ack{RspCode: CodeInternalError, Message: "unprocessable callback"}}
	}

	span.SetAttributes(
		attribute.String("order.number", cb.OrderNumber),
		attribute.String("callback.response_code", cb.ResponseCode),
	)
	logger = logger.With(zap.String("order_number", cb.OrderNumber))

	// Step 2: resolve the target order by the echoed reference.
	o, err := s.orders.GetByNumber(ctx, cb.OrderNumber)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			logger.Warn("callback_order_not_found")
			return outcome{ack: Ack{RspCode: CodeOrderNotFound, Message: "order not found"}}
		}
		logger.Error("callback_order_lookup_failed", zap.Error(err))
		return outcome{ack: Ack{RspCode: CodeInternalError, Message: "order lookup failed"}}
	}

	// Step 3: idempotence guard. A replayed success notification must not
	// reapply side effects.
	if o.PaymentStatus == order.PaymentPaid {
		logger.Info("callback_already_confirmed")
		return outcome{ack: Ack{RspCode: CodeAlreadyConfirmed, Message: "order already confirmed"}, order: o}
	}

	if cb.Amount != o.Total {
		logger.Warn("callback_amount_mismatch",
			zap.Int64("callback_amount", cb.Amount),
			zap.Int64("order_total", o.Total),
		)
		return outcome{ack: Ack{RspCode: CodeInvalidAmount, Message: "invalid amount"}, order: o}
	}

	// Step 4: apply, via compare-and-set on the payment status so that
	// concurrent duplicate deliveries collapse into one transition.
	if cb.Success() {
		updated, err := s.orders.MarkPaid(ctx, o.ID, cb.TransactionID)
		if err != nil {
			if errors.Is(err, order.ErrAlreadyPaid) {
				logger.Info("callback_already_confirmed")
				return outcome{ack: Ack{RspCode: CodeAlreadyConfirmed, Message: "order already confirmed"}, order: o}
			}
			logger.Error("mark_paid_failed", zap.Error(err))
			return outcome{ack: Ack{RspCode: CodeInternalError, Message: "state update failed"}, order: o}
		}

		s.publish(ctx, logger, order.NewOrderPaidEvent(updated))
		logger.Info("payment_confirmed",
			zap.String("order_id", updated.ID),
			zap.String("transaction_id", cb.TransactionID),
			zap.String("bank_code", cb.BankCode),
		)
		return outcome{ack: Ack{RspCode: CodeSuccess, Message: "success"}, order: updated}
	}

	updated, err := s.orders.MarkPaymentFailed(ctx, o.ID, cb.TransactionID)
	if err != nil {
		if errors.Is(err, order.ErrAlreadyPaid) {
			logger.Info("callback_already_confirmed")
			return outcome{ack: Ack{RspCode: CodeAlreadyConfirmed, Message: "order already confirmed"}, order: o}
		}
		logger.Error("mark_payment_failed_failed", zap.Error(err))
		return outcome{ack: Ack{RspCode: CodeInternalError, Message: "state update failed"}, order: o}
	}

	logger.Info("payment_declined",
		zap.String("order_id", updated.ID),
		zap.String("response_code", cb.ResponseCode),
	)
	// The notification is acknowledged as received; the decline is recorded
	// and the order stays cancellable by the user.
	return outcome{ack: Ack{RspCode: CodeSuccess, Message: "success"}, order: updated}
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, e event.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logger.Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}
