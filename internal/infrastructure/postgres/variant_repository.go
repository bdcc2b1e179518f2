package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangvu/gearcart/internal/domain/catalog"
)

type VariantRepository struct {
	pool *pgxpool.Pool
}

func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

const variantColumns = `id, product_id, sku, name, price, stock, is_active, updated_at`

func (r *VariantRepository) Get(ctx context.Context, variantID string) (*catalog.Variant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM variants WHERE id=$1`, variantID)
	v, err := scanVariant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, variantID)
	}
	return v, err
}

func (r *VariantRepository) Save(ctx context.Context, v *catalog.Variant) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO variants (id, product_id, sku, name, price, stock, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			sku        = EXCLUDED.sku,
			name       = EXCLUDED.name,
			price      = EXCLUDED.price,
			stock      = EXCLUDED.stock,
			is_active  = EXCLUDED.is_active,
			updated_at = now()`,
		v.ID, v.ProductID, v.SKU, v.Name, v.Price, v.Stock, v.IsActive)
	return err
}

// Reserve is a single conditional update: the active check, the stock guard
// and the decrement happen in one statement, so concurrent reserves on the
// same variant cannot both succeed on insufficient stock.
func (r *VariantRepository) Reserve(ctx context.Context, variantID string, quantity int) (*catalog.Variant, error) {
	if quantity <= 0 {
		return nil, catalog.ErrInvalidQuantity
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE variants
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND is_active AND stock >= $2
		RETURNING `+variantColumns,
		variantID, quantity)

	v, err := scanVariant(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Nothing matched; fetch the row once to report the precise reason.
	existing, gerr := r.Get(ctx, variantID)
	if gerr != nil {
		return nil, gerr
	}
	if !existing.IsActive {
		return nil, fmt.Errorf("%w: %s", catalog.ErrInactive, existing.SKU)
	}
	return nil, fmt.Errorf("%w: %s (want %d, have %d)",
		catalog.ErrInsufficientStock, existing.SKU, quantity, existing.Stock)
}

func (r *VariantRepository) Release(ctx context.Context, variantID string, quantity int) error {
	if quantity <= 0 {
		return catalog.ErrInvalidQuantity
	}

	ct, err := r.pool.Exec(ctx, `
		UPDATE variants SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		variantID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, variantID)
	}
	return nil
}

func (r *VariantRepository) AddSold(ctx context.Context, productID string, delta int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products SET sold = GREATEST(sold + $2, 0) WHERE id = $1`,
		productID, delta)
	return err
}

func scanVariant(row pgx.Row) (*catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.Price, &v.Stock, &v.IsActive, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
