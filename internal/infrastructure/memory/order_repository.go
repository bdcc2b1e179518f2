package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hoangvu/gearcart/internal/domain/order"
)

// OrderRepository keeps orders in process memory, indexed by id and by the
// human-readable number. State transitions re-check the current record
// under the lock so concurrent updates cannot blindly overwrite each other.
type OrderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*order.Order
	byNumber map[string]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:   make(map[string]*order.Order),
		byNumber: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if o.Number == "" {
		return fmt.Errorf("order repository: number is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return order.ErrConflict
	}
	if _, exists := r.byNumber[o.Number]; exists {
		return order.ErrConflict
	}

	r.orders[o.ID] = o.Clone()
	r.byNumber[o.Number] = o.ID
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return nil, order.ErrNotFound
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*order.Order
	for _, o := range r.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, o.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) Transition(ctx context.Context, id string, status *order.Status, payment *order.PaymentStatus) (*order.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}

	if status != nil && !order.CanTransition(o.Status, *status) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, *status)
	}
	if payment != nil && !order.CanTransitionPayment(o.PaymentStatus, *payment) {
		return nil, fmt.Errorf("%w: payment %s -> %s", order.ErrInvalidTransition, o.PaymentStatus, *payment)
	}

	if status != nil {
		o.Status = *status
	}
	if payment != nil {
		o.PaymentStatus = *payment
	}
	o.Touch()
	return o.Clone(), nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, id, transactionID string) (*order.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.PaymentStatus == order.PaymentPaid {
		return nil, order.ErrAlreadyPaid
	}
	if o.PaymentStatus != order.PaymentPending {
		return nil, fmt.Errorf("%w: payment %s -> %s", order.ErrInvalidTransition, o.PaymentStatus, order.PaymentPaid)
	}

	o.PaymentStatus = order.PaymentPaid
	o.TransactionID = transactionID
	if o.Status == order.StatusPending {
		o.Status = order.StatusProcessing
	}
	o.Touch()
	return o.Clone(), nil
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id, transactionID string) (*order.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	switch o.PaymentStatus {
	case order.PaymentPaid:
		return nil, order.ErrAlreadyPaid
	case order.PaymentFailed:
		// Repeat delivery of the same failure notification.
		return o.Clone(), nil
	}

	o.PaymentStatus = order.PaymentFailed
	if transactionID != "" {
		o.TransactionID = transactionID
	}
	o.Touch()
	return o.Clone(), nil
}
