package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// SystemActor identifies transitions driven by reconciliation sweeps rather
// than a user or admin.
const SystemActor = "SYSTEM"

// Order is one purchase transaction. Items, vouchers, proofs and the status
// history are owned rows created and mutated in the same transaction as the
// order itself.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      string
	StoreID     int64

	// Delivery address snapshot, copied at creation time.
	Address AddressSnapshot

	ShippingMethod string
	ShippingCost   float64
	Subtotal       float64
	DiscountTotal  float64
	Total          float64

	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        OrderStatus

	ExpiresAt      *time.Time
	TrackingNumber *string
	CancelReason   *string
	Notes          string

	LastStatusChange time.Time
	LastChangedBy    string

	Items           []OrderItem
	AppliedVouchers []AppliedVoucher
	StatusHistory   []StatusChange

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is one cart line frozen at order time. UnitPrice is a snapshot;
// later product price changes never touch it.
type OrderItem struct {
	ID          int64
	OrderID     uuid.UUID
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
	Discount    float64
	Subtotal    float64
}

// StatusChange is one append-only status history entry.
type StatusChange struct {
	Status    OrderStatus
	ChangedAt time.Time
	ChangedBy string
}

// AppliedVoucher records a voucher redeemed against an order and the discount
// it produced. A voucher applies to a given order at most once.
type AppliedVoucher struct {
	OrderID   uuid.UUID
	VoucherID int64
	Code      string
	Discount  float64
	AppliedAt time.Time
}

// PaymentProof is evidence of a manual bank transfer uploaded by the buyer.
type PaymentProof struct {
	ID         int64
	OrderID    uuid.UUID
	FilePath   string
	Status     ProofStatus
	Note       string
	VerifiedBy *string
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

// AddressSnapshot is the delivery address copied onto the order at creation.
type AddressSnapshot struct {
	Recipient  string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// NewOrderNumber builds a human-readable order number like
// "ORD-20260901123456-4821".
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102150405"), rand.Intn(10000))
}

// Expired reports whether the payment deadline has passed.
func (o *Order) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}
