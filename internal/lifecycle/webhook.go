package lifecycle

import (
	"context"
	"database/sql"
	"errors"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
)

// WebhookEvent is the gateway's asynchronous payment result. Signature
// verification happens at the HTTP edge before this is constructed.
type WebhookEvent struct {
	OrderNumber   string
	TransactionID string
	Success       bool
}

// HandleGatewayWebhook applies a payment result idempotently. Gateway orders
// already debited stock and entered PROCESSING at checkout, so a success
// notification only settles the payment status; delivering it twice, in any
// interleaving, never touches stock again. A failure cancels the order and
// returns its stock.
func (s *Service) HandleGatewayWebhook(ctx context.Context, event WebhookEvent) error {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), event.OrderNumber)
	if err != nil {
		return err
	}
	if order.PaymentMethod != domain.PaymentGateway {
		return domain.ErrInvalidOrderState
	}

	if event.Success {
		return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
			// The payment_status guard in the settle is the compare-and-set:
			// a concurrent delivery or cancellation leaves zero rows to
			// update and the duplicate resolves as a no-op, settling the
			// payment and emitting its event exactly once. The order's
			// status never changes, so its history gains no row.
			err := s.repo.SettlePayment(ctx, tx, order.ID)
			if errors.Is(err, domain.ErrInvalidOrderState) {
				return nil
			}
			if err != nil {
				return err
			}
			return s.emitEvent(ctx, tx, order, "order.payment_settled", event.TransactionID)
		})
	}

	// Failed charge: cancel and compensate. A duplicate failure delivery
	// finds the order already cancelled and resolves as a no-op.
	reason := "payment failed at gateway"
	err = s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:      order.ID,
			From:         domain.StatusProcessing,
			To:           domain.StatusCancelled,
			Actor:        domain.SystemActor,
			CancelReason: &reason,
		}); err != nil {
			return err
		}
		if err := s.creditItems(ctx, tx, order, domain.SystemActor, reason); err != nil {
			return err
		}
		order.Status = domain.StatusCancelled
		return s.emitEvent(ctx, tx, order, "order.cancelled", reason)
	})
	if errors.Is(err, domain.ErrInvalidOrderState) {
		// Lost the race to another writer (or a duplicate delivery); the
		// earlier transition stands.
		return nil
	}
	return err
}
