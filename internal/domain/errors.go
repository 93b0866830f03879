package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrOrderNotFound       = errors.New("order not found")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrStoreNotFound       = errors.New("store not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrMissingCoordinates  = errors.New("address has no coordinates")
	ErrNoStoresAvailable   = errors.New("no active store can serve this address")
	ErrInvalidOrderState   = errors.New("illegal transition of order status")
	ErrOrderExpired        = errors.New("order payment window has expired")
	ErrVoucherApplied      = errors.New("voucher already applied to this order")
	ErrVoucherNotEligible  = errors.New("voucher not applicable to this order")
	ErrForbidden           = errors.New("actor is not allowed to act on this order")
	ErrTrackingRequired    = errors.New("tracking number is required to ship")
	ErrReasonRequired      = errors.New("cancellation reason is required")
	ErrProofNotFound       = errors.New("payment proof not found")
	ErrShippingUnavailable = errors.New("shipping method is not active")
)

// InsufficientStockError rejects a checkout or payment approval with the
// specific lines the fulfilling store cannot cover.
type InsufficientStockError struct {
	StoreID int64
	Missing []MissingItem
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("store %d has insufficient stock for %d item(s)", e.StoreID, len(e.Missing))
}

// ValidationError flags malformed caller input. Surfaced as-is, never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
