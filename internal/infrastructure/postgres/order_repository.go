package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangvu/gearcart/internal/domain/order"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, number, customer_id, full_name, phone, street, ward, district, city,
	subtotal, discount, voucher_code, shipping_fee, total,
	payment_method, payment_status, status, transaction_id, notes, created_at, updated_at`

const uniqueViolation = "23505"

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.Number, o.CustomerID,
		o.ShippingAddress.FullName, o.ShippingAddress.Phone, o.ShippingAddress.Street,
		o.ShippingAddress.Ward, o.ShippingAddress.District, o.ShippingAddress.City,
		o.Subtotal, o.Discount, o.VoucherCode, o.ShippingFee, o.Total,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.TransactionID, o.Notes,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrConflict
		}
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, variant_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.VariantID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getWhere(ctx, "id", id)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getWhere(ctx, "number", number)
}

func (r *OrderRepository) getWhere(ctx context.Context, column, value string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+column+`=$1`, value)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.CustomerID != "" {
		add("customer_id=", f.CustomerID)
	}
	if f.Status != "" {
		add("status=", string(f.Status))
	}
	if !f.From.IsZero() {
		add("created_at>=", f.From)
	}
	if !f.To.IsZero() {
		add("created_at<=", f.To)
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range out {
		if err := r.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Transition locks the row, validates both state machines against the
// current record, then applies the change. No blind overwrite.
func (r *OrderRepository) Transition(ctx context.Context, id string, status *order.Status, payment *order.PaymentStatus) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur order.Status
	var curPay order.PaymentStatus
	err = tx.QueryRow(ctx, `SELECT status, payment_status FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&cur, &curPay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if status != nil && !order.CanTransition(cur, *status) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, cur, *status)
	}
	if payment != nil && !order.CanTransitionPayment(curPay, *payment) {
		return nil, fmt.Errorf("%w: payment %s -> %s", order.ErrInvalidTransition, curPay, *payment)
	}

	next, nextPay := cur, curPay
	if status != nil {
		next = *status
	}
	if payment != nil {
		nextPay = *payment
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, updated_at=now() WHERE id=$1`,
		id, next, nextPay); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// MarkPaid is a compare-and-set: the pending guard lives in the WHERE
// clause, so concurrent duplicate notifications collapse into one winner.
func (r *OrderRepository) MarkPaid(ctx context.Context, id, transactionID string) (*order.Order, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'paid',
		    status         = CASE WHEN status = 'pending' THEN 'processing' ELSE status END,
		    transaction_id = $2,
		    updated_at     = now()
		WHERE id = $1 AND payment_status = 'pending'`,
		id, transactionID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 1 {
		return r.Get(ctx, id)
	}

	existing, gerr := r.Get(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if existing.PaymentStatus == order.PaymentPaid {
		return nil, order.ErrAlreadyPaid
	}
	return nil, fmt.Errorf("%w: payment %s -> %s", order.ErrInvalidTransition, existing.PaymentStatus, order.PaymentPaid)
}

func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, id, transactionID string) (*order.Order, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'failed',
		    transaction_id = CASE WHEN $2 <> '' THEN $2 ELSE transaction_id END,
		    updated_at     = now()
		WHERE id = $1 AND payment_status = 'pending'`,
		id, transactionID)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 1 {
		return r.Get(ctx, id)
	}

	existing, gerr := r.Get(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	switch existing.PaymentStatus {
	case order.PaymentPaid:
		return nil, order.ErrAlreadyPaid
	case order.PaymentFailed:
		return existing, nil
	default:
		return nil, fmt.Errorf("%w: payment %s -> %s", order.ErrInvalidTransition, existing.PaymentStatus, order.PaymentFailed)
	}
}

func (r *OrderRepository) loadItems(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT variant_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.VariantID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Phone, &o.ShippingAddress.Street,
		&o.ShippingAddress.Ward, &o.ShippingAddress.District, &o.ShippingAddress.City,
		&o.Subtotal, &o.Discount, &o.VoucherCode, &o.ShippingFee, &o.Total,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.TransactionID, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
