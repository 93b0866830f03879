// Package gateway talks to the external payment provider over HTTP. Every
// call goes through a circuit breaker so a degraded provider cannot pile up
// blocked checkout goroutines.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

type chargeRequest struct {
	OrderNumber string  `json:"order_number"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	CallbackURL string  `json:"callback_url"`
}

type chargeResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

type Client struct {
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*chargeResponse]
}

func NewClient(baseURL, callbackURL string) *Client {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &Client{
		baseURL:     baseURL,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		breaker:     gobreaker.NewCircuitBreaker[*chargeResponse](settings),
	}
}

// InitializeCharge registers the order with the provider. The provider
// reports the outcome later through the webhook; this call only opens the
// charge session.
func (c *Client) InitializeCharge(ctx context.Context, order *domain.Order) error {
	_, err := c.breaker.Execute(func() (*chargeResponse, error) {
		return c.charge(ctx, order)
	})
	if err != nil {
		return fmt.Errorf("initialize charge for order %s: %w", order.OrderNumber, err)
	}
	return nil
}

func (c *Client) charge(ctx context.Context, order *domain.Order) (*chargeResponse, error) {
	payload, err := json.Marshal(chargeRequest{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Currency:    "IDR",
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, body)
	}

	var out chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}
	return &out, nil
}
