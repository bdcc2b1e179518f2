package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoangvu/gearcart/internal/domain/voucher"
)

type VoucherRepository struct {
	pool *pgxpool.Pool
}

func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

const voucherColumns = `code, kind, value, max_discount, min_order_value, usage_limit, used_count, starts_at, expires_at, is_active`

func (r *VoucherRepository) Get(ctx context.Context, code string) (*voucher.Voucher, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code=$1`, code)
	v, err := scanVoucher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", voucher.ErrNotFound, code)
	}
	return v, err
}

func (r *VoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vouchers (code, kind, value, max_discount, min_order_value, usage_limit, used_count, starts_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			kind            = EXCLUDED.kind,
			value           = EXCLUDED.value,
			max_discount    = EXCLUDED.max_discount,
			min_order_value = EXCLUDED.min_order_value,
			usage_limit     = EXCLUDED.usage_limit,
			used_count      = EXCLUDED.used_count,
			starts_at       = EXCLUDED.starts_at,
			expires_at      = EXCLUDED.expires_at,
			is_active       = EXCLUDED.is_active`,
		v.Code, v.Kind, v.Value, v.MaxDiscount, v.MinOrderValue, v.UsageLimit, v.UsedCount, v.StartsAt, v.ExpiresAt, v.IsActive)
	return err
}

// Consume re-checks the usage limit inside the increment statement itself,
// so two orders racing for the last remaining use cannot both pass.
func (r *VoucherRepository) Consume(ctx context.Context, code string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE vouchers
		SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit = 0 OR used_count < usage_limit)`,
		code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	if _, gerr := r.Get(ctx, code); gerr != nil {
		return gerr
	}
	return fmt.Errorf("%w: %s", voucher.ErrUsageExhausted, code)
}

func (r *VoucherRepository) Release(ctx context.Context, code string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE vouchers SET used_count = GREATEST(used_count - 1, 0) WHERE code = $1`,
		code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", voucher.ErrNotFound, code)
	}
	return nil
}

func scanVoucher(row pgx.Row) (*voucher.Voucher, error) {
	var v voucher.Voucher
	err := row.Scan(&v.Code, &v.Kind, &v.Value, &v.MaxDiscount, &v.MinOrderValue,
		&v.UsageLimit, &v.UsedCount, &v.StartsAt, &v.ExpiresAt, &v.IsActive)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
