package domain

import "time"

// VoucherType categorizes what a voucher is for.
type VoucherType string

const (
	VoucherReferral        VoucherType = "REFERRAL"
	VoucherShipping        VoucherType = "SHIPPING"
	VoucherProductSpecific VoucherType = "PRODUCT_SPECIFIC"
	VoucherGeneric         VoucherType = "GENERIC"
)

// VoucherValueType discriminates how the discount is computed.
type VoucherValueType string

const (
	VoucherPercentage  VoucherValueType = "PERCENTAGE"
	VoucherFixedAmount VoucherValueType = "FIXED_AMOUNT"
)

// Voucher is a discount instrument. UsageCount increments atomically with
// each successful application and never exceeds UsageLimit.
type Voucher struct {
	ID          int64
	Code        string
	Type        VoucherType
	ValueType   VoucherValueType
	Value       float64
	MaxDiscount *float64
	MinPurchase *float64
	StartsAt    time.Time
	EndsAt      time.Time
	UsageCount  int
	UsageLimit  *int
	IsActive    bool

	// ProductIDs restricts PRODUCT_SPECIFIC vouchers; empty means any.
	ProductIDs []int64
}

// WithinWindow reports whether now falls inside the validity window.
func (v Voucher) WithinWindow(now time.Time) bool {
	return !now.Before(v.StartsAt) && !now.After(v.EndsAt)
}

// Exhausted reports whether the usage cap has been reached.
func (v Voucher) Exhausted() bool {
	return v.UsageLimit != nil && v.UsageCount >= *v.UsageLimit
}
