// Package notify turns order lifecycle events from Kafka into customer
// emails. Delivery is best effort: a mail that cannot be rendered or sent
// is logged and dropped, it never blocks order processing.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// OrderEvent mirrors the outbox payload written by the lifecycle service.
type OrderEvent struct {
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Mailer sends one rendered notification. Implementations wrap SMTP or a
// transactional mail API; tests use an in-memory recorder.
type Mailer interface {
	Send(ctx context.Context, userID, subject, body string) error
}

// messageReader is satisfied by *kafka.Reader.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Consumer struct {
	reader messageReader
	mailer Mailer
}

func NewConsumer(mailer Mailer, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-events",
		GroupID:  "notify",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, mailer: mailer}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if r, ok := c.reader.(*kafka.Reader); ok {
		if err := r.Close(); err != nil {
			log.Printf("error closing kafka reader: %v", err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	eventType := headerValue(m, "event_type")
	if eventType == "" {
		log.Printf("message for key %q has no event_type header, skipping", m.Key)
		return
	}

	var event OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("error parsing %s event: %v", eventType, err)
		return
	}
	if event.OrderNumber == "" || event.UserID == "" {
		log.Printf("%s event missing order number or user, skipping", eventType)
		return
	}

	subject, body, err := render(eventType, event)
	if err != nil {
		// Not every event type notifies the customer.
		log.Printf("skipping %s for order %s: %v", eventType, event.OrderNumber, err)
		return
	}

	if err := c.mailer.Send(ctx, event.UserID, subject, body); err != nil {
		log.Printf("failed to send %s mail for order %s: %v", eventType, event.OrderNumber, err)
		return
	}
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
