package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/geo"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/pricing"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/google/uuid"
)

// CheckoutRequest turns the caller's cart into an order.
type CheckoutRequest struct {
	UserID           string
	AddressID        string
	ShippingMethodID int64
	PaymentMethod    domain.PaymentMethod
	VoucherCodes     []string
	Notes            string
}

// Checkout resolves the fulfilling store, prices the cart and creates the
// order atomically with its items, vouchers and history. Gateway orders
// debit stock immediately and land in PROCESSING; manual-transfer orders
// wait in WAITING_PAYMENT with a payment deadline.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, &domain.ValidationError{Field: "payment_method", Message: "unknown payment method"}
	}

	cart, err := s.cart.GetCart(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	addr, err := s.address.GetAddress(ctx, req.UserID, req.AddressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if addr.Latitude == nil || addr.Longitude == nil {
		return nil, domain.ErrMissingCoordinates
	}
	dest := geo.Point{Latitude: *addr.Latitude, Longitude: *addr.Longitude}

	candidate, err := s.resolver.Resolve(ctx, s.repo.DB(), cart.Items, dest)
	if err != nil {
		return nil, err
	}
	if !candidate.FullMatch() {
		return nil, &domain.InsufficientStockError{
			StoreID: candidate.Store.ID,
			Missing: candidate.Missing,
		}
	}

	method, err := s.shipping.GetActiveMethod(ctx, req.ShippingMethodID)
	if err != nil {
		return nil, fmt.Errorf("get shipping method: %w", err)
	}

	now := s.now()
	subtotal := pricing.Subtotal(cart.Items)
	shippingCost := s.cfg.Pricing.ShippingFee(method.BaseCost, candidate.Distance)

	// Evaluate vouchers up front; ineligible codes reject the checkout
	// rather than silently dropping the discount.
	type voucherDiscount struct {
		voucher  *domain.Voucher
		discount float64
	}
	var discounts []voucherDiscount
	var discountTotal float64
	for _, code := range req.VoucherCodes {
		voucher, err := s.repo.GetVoucherByCode(ctx, s.repo.DB(), code)
		if err != nil {
			return nil, err
		}
		discount, err := pricing.EvaluateVoucher(*voucher, subtotal, now)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, voucherDiscount{voucher, discount})
		discountTotal += discount
	}

	order := &domain.Order{
		ID:               uuid.New(),
		OrderNumber:      domain.NewOrderNumber(now),
		UserID:           req.UserID,
		StoreID:          candidate.Store.ID,
		Address:          addr.Snapshot(),
		ShippingMethod:   method.Name,
		ShippingCost:     shippingCost,
		Subtotal:         subtotal,
		DiscountTotal:    discountTotal,
		Total:            pricing.GrandTotal(subtotal, shippingCost, discountTotal),
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    domain.PaymentPending,
		Status:           domain.StatusWaitingPayment,
		Notes:            req.Notes,
		LastStatusChange: now,
		LastChangedBy:    req.UserID,
	}
	if !req.PaymentMethod.Instant() {
		expires := now.Add(s.cfg.PaymentWindow)
		order.ExpiresAt = &expires
	}
	for _, line := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.UnitPrice * float64(line.Quantity),
		})
	}

	err = s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, d := range discounts {
			if err := s.repo.InsertAppliedVoucher(ctx, tx, order.ID, d.voucher.ID, d.discount); err != nil {
				return err
			}
			if err := s.repo.IncrementVoucherUsage(ctx, tx, d.voucher.ID); err != nil {
				return err
			}
		}

		if req.PaymentMethod.Instant() {
			// Gateway orders consume stock at creation; the store
			// resolver's availability check is re-validated here by the
			// ledger's underflow guard.
			if err := s.debitItems(ctx, tx, order, req.UserID); err != nil {
				return err
			}
			if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
				OrderID: order.ID,
				From:    domain.StatusWaitingPayment,
				To:      domain.StatusProcessing,
				Actor:   req.UserID,
			}); err != nil {
				return err
			}
			order.Status = domain.StatusProcessing
		}

		return s.emitEvent(ctx, tx, order, "order.created", "")
	})
	if err != nil {
		return nil, err
	}

	if clearErr := s.cart.ClearCart(ctx, cart.ID); clearErr != nil {
		logClearCartFailure(cart.ID, clearErr)
	}

	if req.PaymentMethod.Instant() {
		// Outside the transaction: never hold row locks across gateway I/O.
		if chargeErr := s.gateway.InitializeCharge(ctx, order); chargeErr != nil {
			log.Printf("failed to initialize gateway charge for order %s: %v", order.OrderNumber, chargeErr)
		}
	}

	return order, nil
}
