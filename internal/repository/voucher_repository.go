package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (r *Repository) GetVoucherByCode(ctx context.Context, q Querier, code string) (*domain.Voucher, error) {
	query := `SELECT id, code, type, value_type, value, max_discount, min_purchase,
	                 starts_at, ends_at, usage_count, usage_limit, is_active
	          FROM vouchers WHERE code = $1`

	var v domain.Voucher
	err := q.QueryRowContext(ctx, query, code).Scan(
		&v.ID, &v.Code, &v.Type, &v.ValueType, &v.Value,
		&v.MaxDiscount, &v.MinPurchase,
		&v.StartsAt, &v.EndsAt, &v.UsageCount, &v.UsageLimit, &v.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVoucherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query voucher by code: %w", err)
	}

	productQuery := `SELECT product_id FROM voucher_products WHERE voucher_id = $1 ORDER BY product_id`
	rows, err := q.QueryContext(ctx, productQuery, v.ID)
	if err != nil {
		return nil, fmt.Errorf("query voucher products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("scan voucher product: %w", err)
		}
		v.ProductIDs = append(v.ProductIDs, productID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &v, nil
}

// IncrementVoucherUsage bumps the usage counter, refusing to pass the cap.
// Zero rows affected means the voucher was exhausted by a concurrent
// application.
func (r *Repository) IncrementVoucherUsage(ctx context.Context, q Querier, voucherID int64) error {
	query := `UPDATE vouchers SET usage_count = usage_count + 1
	          WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`

	res, err := q.ExecContext(ctx, query, voucherID)
	if err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("voucher usage rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVoucherNotEligible
	}
	return nil
}

// InsertAppliedVoucher records a redemption. The (order_id, voucher_id)
// unique constraint turns a duplicate application into ErrVoucherApplied.
func (r *Repository) InsertAppliedVoucher(ctx context.Context, q Querier, orderID uuid.UUID, voucherID int64, discount float64) error {
	query := `INSERT INTO applied_vouchers (order_id, voucher_id, discount, applied_at)
	          VALUES ($1, $2, $3, NOW())`

	_, err := q.ExecContext(ctx, query, orderID, voucherID, discount)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.ErrVoucherApplied
		}
		return fmt.Errorf("insert applied voucher: %w", err)
	}
	return nil
}
