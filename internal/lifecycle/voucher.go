package lifecycle

import (
	"context"
	"database/sql"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/pricing"
)

// ApplyVoucher redeems a voucher against an existing order. Only legal while
// the order still waits for payment: the status read below is a fast path,
// the status-guarded UpdateOrderDiscount inside the transaction is the real
// gate against a concurrent cancellation or expiry. The redemption row, the
// usage counter and the new totals commit together; a duplicate application
// of the same voucher fails on the redemption row's primary key, a lost
// status race fails on the guarded update, and either rolls back everything.
func (s *Service) ApplyVoucher(ctx context.Context, userID, orderNumber, code string) (*domain.Order, error) {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if order.Status != domain.StatusWaitingPayment {
		return nil, domain.ErrInvalidOrderState
	}

	voucher, err := s.repo.GetVoucherByCode(ctx, s.repo.DB(), code)
	if err != nil {
		return nil, err
	}

	discount, err := pricing.EvaluateVoucher(*voucher, order.Subtotal, s.now())
	if err != nil {
		return nil, err
	}

	discountTotal := order.DiscountTotal + discount
	total := pricing.GrandTotal(order.Subtotal, order.ShippingCost, discountTotal)

	err = s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.InsertAppliedVoucher(ctx, tx, order.ID, voucher.ID, discount); err != nil {
			return err
		}
		if err := s.repo.IncrementVoucherUsage(ctx, tx, voucher.ID); err != nil {
			return err
		}
		return s.repo.UpdateOrderDiscount(ctx, tx, order.ID, discountTotal, total)
	})
	if err != nil {
		return nil, err
	}

	order.DiscountTotal = discountTotal
	order.Total = total
	order.AppliedVouchers = append(order.AppliedVouchers, domain.AppliedVoucher{
		OrderID:   order.ID,
		VoucherID: voucher.ID,
		Code:      voucher.Code,
		Discount:  discount,
		AppliedAt: s.now(),
	})
	return order, nil
}
