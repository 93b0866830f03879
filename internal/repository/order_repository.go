package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// StatusTransition is one compare-and-set step of the order state machine.
// Optional fields are written only when the transition carries them.
type StatusTransition struct {
	OrderID        uuid.UUID
	From           domain.OrderStatus
	To             domain.OrderStatus
	Actor          string
	TrackingNumber *string
	CancelReason   *string
	PaymentStatus  *domain.PaymentStatus
}

func (r *Repository) CreateOrder(ctx context.Context, q Querier, order *domain.Order) error {
	query := `INSERT INTO orders (
	              id, order_number, user_id, store_id,
	              recipient, phone, address, city, province, postal_code,
	              shipping_method, shipping_cost, subtotal, discount_total, total,
	              payment_method, payment_status, status,
	              expires_at, notes, last_status_change, last_changed_by,
	              created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	                  $14, $15, $16, $17, $18, $19, $20, $21, $22, NOW(), NOW())`

	_, err := q.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		order.StoreID,
		order.Address.Recipient,
		order.Address.Phone,
		order.Address.Address,
		order.Address.City,
		order.Address.Province,
		order.Address.PostalCode,
		order.ShippingMethod,
		order.ShippingCost,
		order.Subtotal,
		order.DiscountTotal,
		order.Total,
		order.PaymentMethod,
		order.PaymentStatus,
		order.Status,
		order.ExpiresAt,
		order.Notes,
		order.LastStatusChange,
		order.LastChangedBy,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate order number %s: %w", order.OrderNumber, err)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		itemQuery := `INSERT INTO order_items
		                  (order_id, product_id, product_name, quantity, unit_price, discount, subtotal)
		              VALUES ($1, $2, $3, $4, $5, $6, $7)
		              RETURNING id`
		if e2 := q.QueryRowContext(ctx, itemQuery,
			order.ID, item.ProductID, item.ProductName,
			item.Quantity, item.UnitPrice, item.Discount, item.Subtotal,
		).Scan(&item.ID); e2 != nil {
			return fmt.Errorf("insert order item: %w", e2)
		}
	}

	if err := r.AppendStatusHistory(ctx, q, order.ID, order.Status, order.LastChangedBy, order.LastStatusChange); err != nil {
		return err
	}

	return nil
}

// TransitionStatus moves an order between states with a compare-and-set on
// the current status. Zero rows affected means another writer got there
// first (or the caller's view of the order is stale), which surfaces as
// ErrInvalidOrderState and makes every transition race-safe.
func (r *Repository) TransitionStatus(ctx context.Context, q Querier, t StatusTransition) error {
	now := time.Now()

	query := `UPDATE orders
	          SET status = $1,
	              last_status_change = $2,
	              last_changed_by = $3,
	              tracking_number = COALESCE($4, tracking_number),
	              cancel_reason = COALESCE($5, cancel_reason),
	              payment_status = COALESCE($6, payment_status),
	              updated_at = NOW()
	          WHERE id = $7 AND status = $8`

	var payment *string
	if t.PaymentStatus != nil {
		s := string(*t.PaymentStatus)
		payment = &s
	}

	res, err := q.ExecContext(ctx, query,
		t.To, now, t.Actor, t.TrackingNumber, t.CancelReason, payment, t.OrderID, t.From)
	if err != nil {
		return fmt.Errorf("transition order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrInvalidOrderState
	}

	return r.AppendStatusHistory(ctx, q, t.OrderID, t.To, t.Actor, now)
}

// SettlePayment marks a PROCESSING order's payment as PAID. The
// payment_status clause makes duplicate gateway deliveries race-safe: only
// the first settles, every later one matches zero rows and surfaces as
// ErrInvalidOrderState. The order's status does not change, so no history
// row is written.
func (r *Repository) SettlePayment(ctx context.Context, q Querier, orderID uuid.UUID) error {
	query := `UPDATE orders
	          SET payment_status = $1, updated_at = NOW()
	          WHERE id = $2 AND status = $3 AND payment_status = $4`

	res, err := q.ExecContext(ctx, query,
		domain.PaymentPaid, orderID, domain.StatusProcessing, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrInvalidOrderState
	}
	return nil
}

// AppendStatusHistory records one append-only history row. History is never
// merged or rewritten.
func (r *Repository) AppendStatusHistory(ctx context.Context, q Querier, orderID uuid.UUID, status domain.OrderStatus, actor string, at time.Time) error {
	query := `INSERT INTO order_status_history (order_id, status, changed_by, changed_at)
	          VALUES ($1, $2, $3, $4)`
	if _, err := q.ExecContext(ctx, query, orderID, status, actor, at); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByNumber(ctx context.Context, q Querier, orderNumber string) (*domain.Order, error) {
	return r.getOrder(ctx, q, "order_number = $1", orderNumber)
}

func (r *Repository) GetOrderByID(ctx context.Context, q Querier, id uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, q, "id = $1", id)
}

func (r *Repository) getOrder(ctx context.Context, q Querier, where string, arg any) (*domain.Order, error) {
	query := `SELECT id, order_number, user_id, store_id,
	                 recipient, phone, address, city, province, postal_code,
	                 shipping_method, shipping_cost, subtotal, discount_total, total,
	                 payment_method, payment_status, status,
	                 expires_at, tracking_number, cancel_reason, notes,
	                 last_status_change, last_changed_by, created_at, updated_at
	          FROM orders WHERE ` + where

	var order domain.Order
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.StoreID,
		&order.Address.Recipient,
		&order.Address.Phone,
		&order.Address.Address,
		&order.Address.City,
		&order.Address.Province,
		&order.Address.PostalCode,
		&order.ShippingMethod,
		&order.ShippingCost,
		&order.Subtotal,
		&order.DiscountTotal,
		&order.Total,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.Status,
		&order.ExpiresAt,
		&order.TrackingNumber,
		&order.CancelReason,
		&order.Notes,
		&order.LastStatusChange,
		&order.LastChangedBy,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	if order.Items, err = r.getOrderItems(ctx, q, order.ID); err != nil {
		return nil, err
	}
	if order.AppliedVouchers, err = r.getAppliedVouchers(ctx, q, order.ID); err != nil {
		return nil, err
	}
	if order.StatusHistory, err = r.getStatusHistory(ctx, q, order.ID); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *Repository) getOrderItems(ctx context.Context, q Querier, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, unit_price, discount, subtotal
	          FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) getAppliedVouchers(ctx context.Context, q Querier, orderID uuid.UUID) ([]domain.AppliedVoucher, error) {
	query := `SELECT av.order_id, av.voucher_id, v.code, av.discount, av.applied_at
	          FROM applied_vouchers av
	          JOIN vouchers v ON v.id = av.voucher_id
	          WHERE av.order_id = $1 ORDER BY av.applied_at`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query applied vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []domain.AppliedVoucher
	for rows.Next() {
		var av domain.AppliedVoucher
		if err := rows.Scan(&av.OrderID, &av.VoucherID, &av.Code, &av.Discount, &av.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan applied voucher: %w", err)
		}
		vouchers = append(vouchers, av)
	}
	return vouchers, rows.Err()
}

func (r *Repository) getStatusHistory(ctx context.Context, q Querier, orderID uuid.UUID) ([]domain.StatusChange, error) {
	query := `SELECT status, changed_at, changed_by
	          FROM order_status_history WHERE order_id = $1 ORDER BY changed_at, id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var sc domain.StatusChange
		if err := rows.Scan(&sc.Status, &sc.ChangedAt, &sc.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		history = append(history, sc)
	}
	return history, rows.Err()
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, q Querier, userID string) ([]*domain.Order, error) {
	query := `SELECT id FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	orders := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := r.GetOrderByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateOrderDiscount rewrites the discount and grand total after a voucher
// application. Runs in the same transaction as the voucher bookkeeping. The
// status clause is the compare-and-set: if the order left WAITING_PAYMENT
// since the caller read it, zero rows match, ErrInvalidOrderState comes back
// and the surrounding transaction rolls the voucher rows with it.
func (r *Repository) UpdateOrderDiscount(ctx context.Context, q Querier, orderID uuid.UUID, discountTotal, total float64) error {
	query := `UPDATE orders SET discount_total = $1, total = $2, updated_at = NOW()
	          WHERE id = $3 AND status = $4`
	res, err := q.ExecContext(ctx, query, discountTotal, total, orderID, domain.StatusWaitingPayment)
	if err != nil {
		return fmt.Errorf("update order discount: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update discount rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrInvalidOrderState
	}
	return nil
}

// ListExpiredOrderIDs returns WAITING_PAYMENT orders whose payment deadline
// has passed, for the expiry sweep.
func (r *Repository) ListExpiredOrderIDs(ctx context.Context, q Querier, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM orders
	          WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2
	          ORDER BY expires_at LIMIT $3`
	return r.listOrderIDs(ctx, q, query, domain.StatusWaitingPayment, now, limit)
}

// ListShippedIdleOrderIDs returns SHIPPED orders with no status change since
// the cutoff, for the auto-confirm sweep.
func (r *Repository) ListShippedIdleOrderIDs(ctx context.Context, q Querier, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	query := `SELECT id FROM orders
	          WHERE status = $1 AND last_status_change < $2
	          ORDER BY last_status_change LIMIT $3`
	return r.listOrderIDs(ctx, q, query, domain.StatusShipped, cutoff, limit)
}

func (r *Repository) listOrderIDs(ctx context.Context, q Querier, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) CreatePaymentProof(ctx context.Context, q Querier, proof *domain.PaymentProof) error {
	query := `INSERT INTO payment_proofs (order_id, file_path, status, note, created_at)
	          VALUES ($1, $2, $3, $4, NOW())
	          RETURNING id, created_at`
	err := q.QueryRowContext(ctx, query, proof.OrderID, proof.FilePath, proof.Status, proof.Note).
		Scan(&proof.ID, &proof.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment proof: %w", err)
	}
	return nil
}

// SupersedePendingProofs rejects any still-pending proofs for the order so a
// new upload is the only one under review.
func (r *Repository) SupersedePendingProofs(ctx context.Context, q Querier, orderID uuid.UUID, note string) error {
	query := `UPDATE payment_proofs SET status = $1, note = $2
	          WHERE order_id = $3 AND status = $4`
	if _, err := q.ExecContext(ctx, query, domain.ProofRejected, note, orderID, domain.ProofPending); err != nil {
		return fmt.Errorf("supersede pending proofs: %w", err)
	}
	return nil
}

// ResolvePendingProof marks the order's pending proof verified or rejected.
func (r *Repository) ResolvePendingProof(ctx context.Context, q Querier, orderID uuid.UUID, status domain.ProofStatus, verifier string) error {
	query := `UPDATE payment_proofs SET status = $1, verified_by = $2, verified_at = NOW()
	          WHERE order_id = $3 AND status = $4`
	res, err := q.ExecContext(ctx, query, status, verifier, orderID, domain.ProofPending)
	if err != nil {
		return fmt.Errorf("resolve payment proof: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve proof rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProofNotFound
	}
	return nil
}
