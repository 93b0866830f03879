package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/lib/pq"
)

// GetQuantity reads the current stock counter for one (product, store) pair.
// A missing row reads as zero, not as an error.
func (r *Repository) GetQuantity(ctx context.Context, q Querier, productID, storeID int64) (int, error) {
	query := `SELECT quantity FROM inventories WHERE product_id = $1 AND store_id = $2`

	var quantity int
	err := q.QueryRowContext(ctx, query, productID, storeID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query inventory quantity: %w", err)
	}
	return quantity, nil
}

// GetQuantities batch-reads stock counters for many products at one store.
// Products without a row are absent from the result map.
func (r *Repository) GetQuantities(ctx context.Context, q Querier, storeID int64, productIDs []int64) (map[int64]int, error) {
	query := `SELECT product_id, quantity FROM inventories
	          WHERE store_id = $1 AND product_id = ANY($2)`

	rows, err := q.QueryContext(ctx, query, storeID, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query inventory quantities: %w", err)
	}
	defer rows.Close()

	quantities := make(map[int64]int, len(productIDs))
	for rows.Next() {
		var productID int64
		var quantity int
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("scan inventory quantity: %w", err)
		}
		quantities[productID] = quantity
	}
	return quantities, rows.Err()
}

// AdjustQuantity applies a signed delta to one stock counter. The WHERE
// clause refuses any decrement that would drive the counter negative, and
// the implied row lock serializes concurrent decrements: of two orders
// competing for the last units, at most one commits.
func (r *Repository) AdjustQuantity(ctx context.Context, q Querier, productID, storeID int64, delta int) error {
	query := `UPDATE inventories
	          SET quantity = quantity + $1, updated_at = NOW()
	          WHERE product_id = $2 AND store_id = $3 AND quantity + $1 >= 0`

	res, err := q.ExecContext(ctx, query, delta, productID, storeID)
	if err != nil {
		return fmt.Errorf("adjust inventory quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust rows affected: %w", err)
	}
	if affected == 0 {
		if delta >= 0 {
			// A credit can only miss if the row was never provisioned;
			// every debited pair has one.
			return fmt.Errorf("no inventory row for product %d at store %d", productID, storeID)
		}
		current, e2 := r.GetQuantity(ctx, q, productID, storeID)
		if e2 != nil {
			return e2
		}
		return &domain.InsufficientStockError{
			StoreID: storeID,
			Missing: []domain.MissingItem{{
				ProductID: productID,
				Requested: -delta,
				Available: current,
			}},
		}
	}
	return nil
}

// AppendJournal writes one immutable audit row. Always called in the same
// transaction as the AdjustQuantity it records.
func (r *Repository) AppendJournal(ctx context.Context, q Querier, entry *domain.JournalEntry) error {
	query := `INSERT INTO stock_journal
	              (product_id, store_id, delta, reason, note, order_id, actor, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          RETURNING id, created_at`

	err := q.QueryRowContext(ctx, query,
		entry.ProductID, entry.StoreID, entry.Delta, entry.Reason,
		entry.Note, entry.OrderID, entry.Actor,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stock journal entry: %w", err)
	}
	return nil
}

// ListJournal returns the audit trail for one (product, store) pair, newest
// first.
func (r *Repository) ListJournal(ctx context.Context, q Querier, productID, storeID int64, limit int) ([]domain.JournalEntry, error) {
	query := `SELECT id, product_id, store_id, delta, reason, note, order_id, actor, created_at
	          FROM stock_journal
	          WHERE product_id = $1 AND store_id = $2
	          ORDER BY created_at DESC, id DESC LIMIT $3`

	rows, err := q.QueryContext(ctx, query, productID, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query stock journal: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.StoreID, &e.Delta, &e.Reason,
			&e.Note, &e.OrderID, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
