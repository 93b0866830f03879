// Package pricing computes cart subtotals, distance-based shipping fees and
// voucher discounts.
package pricing

import (
	"fmt"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

// Config holds the shipping fee policy. The defaults encode the business
// rule: the first 5 km ride on the carrier's base cost, every kilometer
// beyond adds 0.5 currency units.
type Config struct {
	FreeDistanceKM float64
	PerKMSurcharge float64
}

func DefaultConfig() Config {
	return Config{
		FreeDistanceKM: 5,
		PerKMSurcharge: 0.5,
	}
}

// Subtotal sums quantity times the snapshotted unit price over the cart.
func Subtotal(lines []domain.CartLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.UnitPrice * float64(line.Quantity)
	}
	return total
}

// ShippingFee returns the carrier base cost plus the linear surcharge for
// distance beyond the included range.
func (c Config) ShippingFee(baseCost, distanceKM float64) float64 {
	if distanceKM <= c.FreeDistanceKM {
		return baseCost
	}
	return baseCost + (distanceKM-c.FreeDistanceKM)*c.PerKMSurcharge
}

// EvaluateVoucher computes the discount a voucher yields against a subtotal,
// or an error wrapping ErrVoucherNotEligible naming why it does not apply.
// PERCENTAGE discounts are clamped to the voucher's cap; FIXED_AMOUNT is
// taken as-is.
func EvaluateVoucher(v domain.Voucher, subtotal float64, now time.Time) (float64, error) {
	if !v.IsActive {
		return 0, fmt.Errorf("voucher %s is inactive: %w", v.Code, domain.ErrVoucherNotEligible)
	}
	if !v.WithinWindow(now) {
		return 0, fmt.Errorf("voucher %s is outside its validity window: %w", v.Code, domain.ErrVoucherNotEligible)
	}
	if v.Exhausted() {
		return 0, fmt.Errorf("voucher %s usage limit reached: %w", v.Code, domain.ErrVoucherNotEligible)
	}
	if v.MinPurchase != nil && subtotal < *v.MinPurchase {
		return 0, fmt.Errorf("voucher %s needs a minimum purchase of %.2f: %w",
			v.Code, *v.MinPurchase, domain.ErrVoucherNotEligible)
	}

	switch v.ValueType {
	case domain.VoucherPercentage:
		discount := subtotal * v.Value / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
		return discount, nil
	case domain.VoucherFixedAmount:
		return v.Value, nil
	default:
		return 0, fmt.Errorf("voucher %s has unknown value type %q: %w",
			v.Code, v.ValueType, domain.ErrVoucherNotEligible)
	}
}

// GrandTotal is subtotal plus shipping minus discount, clamped at zero so a
// stack of large fixed-amount vouchers can never produce a negative total.
func GrandTotal(subtotal, shippingCost, discount float64) float64 {
	total := subtotal + shippingCost - discount
	if total < 0 {
		return 0
	}
	return total
}
