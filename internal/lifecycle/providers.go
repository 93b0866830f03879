package lifecycle

import (
	"context"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

// The engine's external collaborators, kept behind narrow interfaces. None
// of these are ever called while a database transaction is open.

// CartProvider serves the buyer's cart and clears it after a successful
// checkout.
type CartProvider interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, cartID string) error
}

// DeliveryAddress is a saved address with its geocoded coordinates.
// Coordinates are pointers because geocoding may not have run yet; checkout
// fails on a nil coordinate.
type DeliveryAddress struct {
	Latitude   *float64
	Longitude  *float64
	Recipient  string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

// Snapshot copies the address fields that get frozen onto the order.
func (a *DeliveryAddress) Snapshot() domain.AddressSnapshot {
	return domain.AddressSnapshot{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Address:    a.Address,
		City:       a.City,
		Province:   a.Province,
		PostalCode: a.PostalCode,
	}
}

type AddressProvider interface {
	GetAddress(ctx context.Context, userID, addressID string) (*DeliveryAddress, error)
}

// ShippingMethod is an active carrier option.
type ShippingMethod struct {
	ID       int64
	Name     string
	BaseCost float64
}

type ShippingMethodProvider interface {
	GetActiveMethod(ctx context.Context, id int64) (*ShippingMethod, error)
}

// GatewayCharger initializes a charge with the payment provider. Called
// after the order transaction commits; failures are logged, never rolled
// back into the order.
type GatewayCharger interface {
	InitializeCharge(ctx context.Context, order *domain.Order) error
}

// ProofFileStore persists an uploaded payment proof and returns its stored
// path. Implementations validate content type and size before accepting.
type ProofFileStore interface {
	Save(ctx context.Context, data []byte, originalName string) (string, error)
}
