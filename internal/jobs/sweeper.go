// Package jobs runs the time-driven reconciliation sweeps: cancelling unpaid
// orders past their deadline and confirming shipped orders the customer
// stopped responding to.
package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/google/uuid"
)

// OrderSweeps is the slice of the lifecycle service the sweeper drives.
type OrderSweeps interface {
	ListExpiredOrders(ctx context.Context, limit int) ([]uuid.UUID, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error
	ListAutoConfirmableOrders(ctx context.Context, limit int) ([]uuid.UUID, error)
	AutoConfirmOrder(ctx context.Context, orderID uuid.UUID) error
}

type Sweeper struct {
	expiryTick  time.Duration
	confirmTick time.Duration
	batchSize   int
	orders      OrderSweeps
}

func NewSweeper(orders OrderSweeps) *Sweeper {
	return &Sweeper{
		expiryTick:  time.Minute,
		confirmTick: 10 * time.Minute,
		batchSize:   100,
		orders:      orders,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	expiryTicker := time.NewTicker(s.expiryTick)
	confirmTicker := time.NewTicker(s.confirmTick)
	defer expiryTicker.Stop()
	defer confirmTicker.Stop()
	for {
		select {
		case <-expiryTicker.C:
			s.SweepExpired(ctx)
		case <-confirmTicker.C:
			s.SweepAutoConfirm(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// SweepExpired cancels every unpaid order whose payment deadline passed.
// Races with a concurrent user action fail the state guard on one side;
// those are logged and skipped, never fatal, which also makes re-runs
// idempotent.
func (s *Sweeper) SweepExpired(ctx context.Context) {
	ids, err := s.orders.ListExpiredOrders(ctx, s.batchSize)
	if err != nil {
		log.Printf("failed to list expired orders: %v", err)
		return
	}

	for _, id := range ids {
		if err := s.orders.ExpireOrder(ctx, id); err != nil {
			if errors.Is(err, domain.ErrInvalidOrderState) {
				log.Printf("skipping expiry of order %v: %v", id, err)
				continue
			}
			log.Printf("failed to expire order %v: %v", id, err)
		}
	}
}

// SweepAutoConfirm confirms shipped orders idle past the grace window.
func (s *Sweeper) SweepAutoConfirm(ctx context.Context) {
	ids, err := s.orders.ListAutoConfirmableOrders(ctx, s.batchSize)
	if err != nil {
		log.Printf("failed to list auto-confirmable orders: %v", err)
		return
	}

	for _, id := range ids {
		if err := s.orders.AutoConfirmOrder(ctx, id); err != nil {
			if errors.Is(err, domain.ErrInvalidOrderState) {
				log.Printf("skipping auto-confirm of order %v: %v", id, err)
				continue
			}
			log.Printf("failed to auto-confirm order %v: %v", id, err)
		}
	}
}
