package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/domain/catalog"
	"github.com/hoangvu/gearcart/internal/domain/event"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/domain/voucher"
	"github.com/hoangvu/gearcart/internal/pkg/logging"
)

var (
	ErrNegativeTotal    = errors.New("checkout: order total would be negative")
	ErrNotOwner         = errors.New("checkout: order does not belong to requester")
	ErrUnknownPayMethod = errors.New("checkout: unknown payment method")
)

var tracer = otel.Tracer("gearcart/checkout")

const (
	publishTimeout    = 300 * time.Millisecond
	numberInsertTries = 3
	componentCheckout = "checkout_service"
)

// Service coordinates order creation and cancellation as an all-or-nothing
// sequence over the stock ledger, the voucher ledger and the order store.
// There is no cross-entity transaction underneath; each forward step is
// individually atomic and carries a compensating action that is executed in
// reverse order when a later step fails.
type Service struct {
	orders    order.Repository
	variants  catalog.Repository
	vouchers  voucher.Repository
	seq       Sequencer
	ids       IDGenerator
	publisher event.Publisher
}

func NewService(
	orders order.Repository,
	variants catalog.Repository,
	vouchers voucher.Repository,
	seq Sequencer,
	ids IDGenerator,
	publisher event.Publisher,
) *Service {
	return &Service{
		orders:    orders,
		variants:  variants,
		vouchers:  vouchers,
		seq:       seq,
		ids:       ids,
		publisher: publisher,
	}
}

type CartItem struct {
	VariantID string
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID      string
	Items           []CartItem
	ShippingAddress order.Address
	VoucherCode     string
	ShippingFee     int64
	PaymentMethod   order.PaymentMethod
	Notes           string
}

func (in CreateOrderInput) validate() error {
	if in.CustomerID == "" {
		return errors.New("checkout: customer id is required")
	}
	if len(in.Items) == 0 {
		return order.ErrEmptyCart
	}
	for _, it := range in.Items {
		if it.VariantID == "" {
			return errors.New("checkout: variant id is required")
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: variant %s", order.ErrInvalidQuantity, it.VariantID)
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return err
	}
	if in.ShippingFee < 0 {
		return errors.New("checkout: shipping fee must be zero or greater")
	}
	switch in.PaymentMethod {
	case order.PaymentMethodCOD, order.PaymentMethodGateway:
	default:
		return ErrUnknownPayMethod
	}
	return nil
}

// CreateOrder runs the forward saga: reserve every cart line in submitted
// order, validate and consume the voucher against the subtotal, then
// persist the order. The first failure unwinds every prior step in reverse
// order of acquisition and surfaces the originating error.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *order.Order, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", componentCheckout))

	ctx, span := tracer.Start(ctx, "Checkout.CreateOrder",
		trace.WithAttributes(
			attribute.String("order.customer_id", in.CustomerID),
			attribute.Int("cart.lines", len(in.Items)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create_order_failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if err := in.validate(); err != nil {
		return nil, err
	}

	// Compensations run LIFO against a context detached from the request,
	// so that a client disconnect cannot strand a half-undone saga.
	var undo []func(ctx context.Context)
	compensate := func() {
		cctx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i](cctx)
		}
	}

	var (
		items    []order.Item
		subtotal int64
	)
	for _, line := range in.Items {
		v, rerr := s.variants.Reserve(ctx, line.VariantID, line.Quantity)
		if rerr != nil {
			logger.Warn("reserve_failed",
				zap.String("variant_id", line.VariantID),
				zap.Int("quantity", line.Quantity),
				zap.Error(rerr),
			)
			compensate()
			return nil, rerr
		}

		variantID, quantity := line.VariantID, line.Quantity
		undo = append(undo, func(ctx context.Context) {
			if relErr := s.variants.Release(ctx, variantID, quantity); relErr != nil {
				logger.Error("compensate_release_failed",
					zap.String("variant_id", variantID),
					zap.Int("quantity", quantity),
					zap.Error(relErr),
				)
			}
		})

		items = append(items, order.Item{
			VariantID: v.ID,
			ProductID: v.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: v.Price,
		})
		subtotal += v.Price * int64(line.Quantity)
	}

	var discount int64
	if in.VoucherCode != "" {
		vo, verr := s.vouchers.Get(ctx, in.VoucherCode)
		if verr != nil {
			compensate()
			return nil, verr
		}
		if verr := vo.Validate(time.Now().UTC(), subtotal); verr != nil {
			compensate()
			return nil, fmt.Errorf("%w: %s", verr, in.VoucherCode)
		}
		discount = vo.Discount(subtotal)

		if cerr := s.vouchers.Consume(ctx, in.VoucherCode); cerr != nil {
			compensate()
			return nil, cerr
		}
		code := in.VoucherCode
		undo = append(undo, func(ctx context.Context) {
			if relErr := s.vouchers.Release(ctx, code); relErr != nil {
				logger.Error("compensate_voucher_release_failed",
					zap.String("code", code),
					zap.Error(relErr),
				)
			}
		})
	}

	total := subtotal - discount + in.ShippingFee
	if total < 0 {
		// Should not happen while discounts are bounded by the subtotal;
		// kept as a guard so a bad voucher record cannot commit a
		// negative-total order.
		compensate()
		return nil, ErrNegativeTotal
	}

	entity, perr := s.persistOrder(ctx, in, items, subtotal, discount, total)
	if perr != nil {
		logger.Error("order_persist_failed", zap.Error(perr))
		compensate()
		return nil, perr
	}

	for _, it := range entity.Items {
		if serr := s.variants.AddSold(ctx, it.ProductID, it.Quantity); serr != nil {
			logger.Warn("sold_count_update_failed",
				zap.String("product_id", it.ProductID),
				zap.Error(serr),
			)
		}
	}

	s.publish(ctx, logger, order.NewOrderCreatedEvent(entity))

	span.SetAttributes(attribute.String("order.number", entity.Number))
	logger.Info("order_created",
		zap.String("order_id", entity.ID),
		zap.String("order_number", entity.Number),
		zap.Int64("total", entity.Total),
	)
	return entity, nil
}

// persistOrder assigns a collision-checked order number and inserts the
// record. A number conflict is retried with a fresh sequence value.
func (s *Service) persistOrder(ctx context.Context, in CreateOrderInput, items []order.Item, subtotal, discount, total int64) (*order.Order, error) {
	now := time.Now().UTC()

	var lastErr error
	for try := 0; try < numberInsertTries; try++ {
		seq, err := s.seq.Next(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("checkout: order number sequence: %w", err)
		}

		entity := &order.Order{
			ID:              s.ids.NewID(),
			Number:          order.FormatNumber(now, seq),
			CustomerID:      in.CustomerID,
			Items:           items,
			ShippingAddress: in.ShippingAddress,
			Subtotal:        subtotal,
			Discount:        discount,
			VoucherCode:     in.VoucherCode,
			ShippingFee:     in.ShippingFee,
			Total:           total,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   order.PaymentPending,
			Status:          order.StatusPending,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = s.orders.Insert(ctx, entity)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, order.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("checkout: order number collision persisted after %d tries: %w", numberInsertTries, lastErr)
}

type CancelOrderInput struct {
	OrderID    string
	CustomerID string
	// Elevated callers (admin) may cancel orders they do not own.
	Elevated bool
}

// CancelOrder releases everything a pending order reserved and marks it
// cancelled. The status transition runs first as the atomic gate: only the
// caller that wins pending -> cancelled performs the releases, so a
// concurrent duplicate cancel cannot restore stock twice. The releases
// themselves are best-effort per line; the order stays cancelled even if a
// variant has since disappeared.
func (s *Service) CancelOrder(ctx context.Context, in CancelOrderInput) (_ *order.Order, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", componentCheckout))

	ctx, span := tracer.Start(ctx, "Checkout.CancelOrder",
		trace.WithAttributes(attribute.String("order.id", in.OrderID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancel_order_failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	o, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !in.Elevated && o.CustomerID != in.CustomerID {
		return nil, ErrNotOwner
	}

	cancelled := order.StatusCancelled
	updated, err := s.orders.Transition(ctx, o.ID, &cancelled, nil)
	if err != nil {
		return nil, err
	}

	// Past this point the order is cancelled; undo of reservations must
	// not block that outcome.
	cctx := context.WithoutCancel(ctx)
	for _, it := range updated.Items {
		if relErr := s.variants.Release(cctx, it.VariantID, it.Quantity); relErr != nil {
			logger.Error("cancel_release_failed",
				zap.String("order_id", updated.ID),
				zap.String("variant_id", it.VariantID),
				zap.Error(relErr),
			)
		}
		if serr := s.variants.AddSold(cctx, it.ProductID, -it.Quantity); serr != nil {
			logger.Warn("cancel_sold_count_update_failed",
				zap.String("product_id", it.ProductID),
				zap.Error(serr),
			)
		}
	}
	if updated.VoucherCode != "" {
		if relErr := s.vouchers.Release(cctx, updated.VoucherCode); relErr != nil {
			logger.Error("cancel_voucher_release_failed",
				zap.String("order_id", updated.ID),
				zap.String("code", updated.VoucherCode),
				zap.Error(relErr),
			)
		}
	}

	s.publish(ctx, logger, order.NewOrderCancelledEvent(updated))

	logger.Info("order_cancelled",
		zap.String("order_id", updated.ID),
		zap.String("order_number", updated.Number),
	)
	return updated, nil
}

// UpdateStatus is the privileged transition passthrough for fulfilment and
// back-office flows. The repository re-checks both state machines.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status *order.Status, payment *order.PaymentStatus) (*order.Order, error) {
	if status == nil && payment == nil {
		return nil, errors.New("checkout: nothing to update")
	}
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", order.ErrInvalidTransition, *status)
	}
	if payment != nil && !payment.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", order.ErrInvalidTransition, *payment)
	}
	return s.orders.Transition(ctx, orderID, status, payment)
}

func (s *Service) Get(ctx context.Context, orderID string) (*order.Order, error) {
	if orderID == "" {
		return nil, order.ErrNotFound
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	return s.orders.List(ctx, f)
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
