package httpapi

import (
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

type CheckoutRequestDTO struct {
	AddressID        string   `json:"address_id" validate:"required"`
	ShippingMethodID int64    `json:"shipping_method_id" validate:"required,gt=0"`
	PaymentMethod    string   `json:"payment_method" validate:"required,oneof=GATEWAY MANUAL_TRANSFER"`
	VoucherCodes     []string `json:"voucher_codes" validate:"omitempty,max=10,dive,required"`
	Notes            string   `json:"notes" validate:"omitempty,max=500"`
}

type ApplyVoucherRequestDTO struct {
	Code string `json:"code" validate:"required"`
}

type CancelRequestDTO struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type AdminCancelRequestDTO struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type ShipRequestDTO struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

type VerifyRequestDTO struct {
	Approve bool `json:"approve"`
}

type WebhookRequestDTO struct {
	OrderNumber   string `json:"order_number" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=success failed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type OrderItemDTO struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type AppliedVoucherDTO struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

type StatusChangeDTO struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by"`
}

type AddressDTO struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

type OrderResponseDTO struct {
	OrderNumber    string              `json:"order_number"`
	Status         string              `json:"status"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentStatus  string              `json:"payment_status"`
	StoreID        int64               `json:"store_id"`
	Address        AddressDTO          `json:"address"`
	ShippingMethod string              `json:"shipping_method"`
	ShippingCost   float64             `json:"shipping_cost"`
	Subtotal       float64             `json:"subtotal"`
	DiscountTotal  float64             `json:"discount_total"`
	Total          float64             `json:"total"`
	ExpiresAt      *time.Time          `json:"expires_at,omitempty"`
	TrackingNumber *string             `json:"tracking_number,omitempty"`
	CancelReason   *string             `json:"cancel_reason,omitempty"`
	Items          []OrderItemDTO      `json:"items"`
	Vouchers       []AppliedVoucherDTO `json:"vouchers"`
	History        []StatusChangeDTO   `json:"history"`
	CreatedAt      time.Time           `json:"created_at"`
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}

	vouchers := make([]AppliedVoucherDTO, 0, len(o.AppliedVouchers))
	for _, v := range o.AppliedVouchers {
		vouchers = append(vouchers, AppliedVoucherDTO{Code: v.Code, Discount: v.Discount})
	}

	history := make([]StatusChangeDTO, 0, len(o.StatusHistory))
	for _, h := range o.StatusHistory {
		history = append(history, StatusChangeDTO{
			Status:    string(h.Status),
			ChangedAt: h.ChangedAt,
			ChangedBy: h.ChangedBy,
		})
	}

	return OrderResponseDTO{
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		StoreID:       o.StoreID,
		Address: AddressDTO{
			Recipient:  o.Address.Recipient,
			Phone:      o.Address.Phone,
			Address:    o.Address.Address,
			City:       o.Address.City,
			Province:   o.Address.Province,
			PostalCode: o.Address.PostalCode,
		},
		ShippingMethod: o.ShippingMethod,
		ShippingCost:   o.ShippingCost,
		Subtotal:       o.Subtotal,
		DiscountTotal:  o.DiscountTotal,
		Total:          o.Total,
		ExpiresAt:      o.ExpiresAt,
		TrackingNumber: o.TrackingNumber,
		CancelReason:   o.CancelReason,
		Items:          items,
		Vouchers:       vouchers,
		History:        history,
		CreatedAt:      o.CreatedAt,
	}
}
