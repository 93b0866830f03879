// Package profileclient fetches buyer addresses and shipping methods from
// the customer profile service, which owns both.
package profileclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/lifecycle"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type addressDTO struct {
	ID         string   `json:"id"`
	Recipient  string   `json:"recipient"`
	Phone      string   `json:"phone"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	Province   string   `json:"province"`
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

type shippingMethodDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	BaseCost float64 `json:"base_cost"`
	IsActive bool    `json:"is_active"`
}

// GetAddress loads one of the user's saved addresses. The profile service
// scopes the lookup to the user, so one buyer can never check out against
// another buyer's address.
func (c *Client) GetAddress(ctx context.Context, userID, addressID string) (*lifecycle.DeliveryAddress, error) {
	url := fmt.Sprintf("%s/internal/users/%s/addresses/%s", c.baseURL, userID, addressID)

	var dto addressDTO
	if err := c.getJSON(ctx, url, &dto, domain.ErrAddressNotFound); err != nil {
		return nil, err
	}

	return &lifecycle.DeliveryAddress{
		Latitude:   dto.Latitude,
		Longitude:  dto.Longitude,
		Recipient:  dto.Recipient,
		Phone:      dto.Phone,
		Address:    dto.Address,
		City:       dto.City,
		Province:   dto.Province,
		PostalCode: dto.PostalCode,
	}, nil
}

// GetActiveMethod loads one shipping method; inactive methods read as
// unavailable.
func (c *Client) GetActiveMethod(ctx context.Context, id int64) (*lifecycle.ShippingMethod, error) {
	url := fmt.Sprintf("%s/internal/shipping-methods/%d", c.baseURL, id)

	var dto shippingMethodDTO
	if err := c.getJSON(ctx, url, &dto, domain.ErrShippingUnavailable); err != nil {
		return nil, err
	}
	if !dto.IsActive {
		return nil, domain.ErrShippingUnavailable
	}

	return &lifecycle.ShippingMethod{
		ID:       dto.ID,
		Name:     dto.Name,
		BaseCost: dto.BaseCost,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call profile service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return notFound
	default:
		return fmt.Errorf("profile service returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode profile response: %w", err)
	}
	return nil
}
