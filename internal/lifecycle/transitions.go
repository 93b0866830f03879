package lifecycle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/google/uuid"
)

// ExpiredReason is the cancel reason stamped by the expiry sweep.
const ExpiredReason = "expired due to no payment within time limit"

// UploadPaymentProof stores the transfer evidence and moves the order to
// WAITING_PAYMENT_CONFIRMATION. A new upload supersedes any proof still
// pending review.
func (s *Service) UploadPaymentProof(ctx context.Context, userID, orderNumber string, file []byte, originalName string) (*domain.PaymentProof, error) {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if order.Status != domain.StatusWaitingPayment {
		return nil, domain.ErrInvalidOrderState
	}
	if order.Expired(s.now()) {
		return nil, domain.ErrOrderExpired
	}

	// File validation and write happen before the transaction; a dangling
	// file on rollback is harmless, a transaction held across disk I/O is
	// not.
	path, err := s.proofs.Save(ctx, file, originalName)
	if err != nil {
		return nil, err
	}

	proof := &domain.PaymentProof{
		OrderID:  order.ID,
		FilePath: path,
		Status:   domain.ProofPending,
	}

	err = s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.SupersedePendingProofs(ctx, tx, order.ID, "superseded by a newer upload"); err != nil {
			return err
		}
		if err := s.repo.CreatePaymentProof(ctx, tx, proof); err != nil {
			return err
		}
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID: order.ID,
			From:    domain.StatusWaitingPayment,
			To:      domain.StatusWaitingPaymentConfirmation,
			Actor:   userID,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusWaitingPaymentConfirmation
		return s.emitEvent(ctx, tx, order, "order.payment_proof_uploaded", "")
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// VerifyPayment resolves a pending proof. Approval debits stock and moves
// the order to PROCESSING in the same transaction; insufficient stock fails
// the approval and leaves everything untouched. Rejection sends the order
// back to WAITING_PAYMENT for a retry upload.
func (s *Service) VerifyPayment(ctx context.Context, admin, orderNumber string, approve bool) error {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return err
	}
	if order.Status != domain.StatusWaitingPaymentConfirmation {
		return domain.ErrInvalidOrderState
	}

	if !approve {
		return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
			if err := s.repo.ResolvePendingProof(ctx, tx, order.ID, domain.ProofRejected, admin); err != nil {
				return err
			}
			if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
				OrderID: order.ID,
				From:    domain.StatusWaitingPaymentConfirmation,
				To:      domain.StatusWaitingPayment,
				Actor:   admin,
			}); err != nil {
				return err
			}
			order.Status = domain.StatusWaitingPayment
			return s.emitEvent(ctx, tx, order, "order.payment_rejected", "")
		})
	}

	paid := domain.PaymentPaid
	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.ResolvePendingProof(ctx, tx, order.ID, domain.ProofVerified, admin); err != nil {
			return err
		}
		if err := s.debitItems(ctx, tx, order, admin); err != nil {
			return err
		}
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:       order.ID,
			From:          domain.StatusWaitingPaymentConfirmation,
			To:            domain.StatusProcessing,
			Actor:         admin,
			PaymentStatus: &paid,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusProcessing
		return s.emitEvent(ctx, tx, order, "order.processing", "")
	})
}

// ShipOrder moves a PROCESSING order to SHIPPED. Stock was already debited
// when processing began, so shipping has no ledger effect.
func (s *Service) ShipOrder(ctx context.Context, admin, orderNumber, trackingNumber string) error {
	if trackingNumber == "" {
		return domain.ErrTrackingRequired
	}

	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return err
	}

	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:        order.ID,
			From:           domain.StatusProcessing,
			To:             domain.StatusShipped,
			Actor:          admin,
			TrackingNumber: &trackingNumber,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusShipped
		return s.emitEvent(ctx, tx, order, "order.shipped", "")
	})
}

// ConfirmOrder is the buyer acknowledging delivery, the terminal success
// state.
func (s *Service) ConfirmOrder(ctx context.Context, userID, orderNumber string) error {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return domain.ErrForbidden
	}
	return s.confirm(ctx, order, userID)
}

func (s *Service) confirm(ctx context.Context, order *domain.Order, actor string) error {
	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID: order.ID,
			From:    domain.StatusShipped,
			To:      domain.StatusConfirmed,
			Actor:   actor,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusConfirmed
		return s.emitEvent(ctx, tx, order, "order.confirmed", "")
	})
}

// CancelOrder is the buyer backing out of an unpaid order. Stock was never
// debited in WAITING_PAYMENT, so there is nothing to return.
func (s *Service) CancelOrder(ctx context.Context, userID, orderNumber, reason string) error {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return domain.ErrForbidden
	}
	if order.Status != domain.StatusWaitingPayment {
		return domain.ErrInvalidOrderState
	}
	if reason == "" {
		reason = "cancelled by customer"
	}

	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:      order.ID,
			From:         domain.StatusWaitingPayment,
			To:           domain.StatusCancelled,
			Actor:        userID,
			CancelReason: &reason,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusCancelled
		return s.emitEvent(ctx, tx, order, "order.cancelled", reason)
	})
}

// AdminCancelOrder cancels an order under review or in processing. A
// PROCESSING cancellation returns every line to stock with a RETURN journal
// entry referencing the order, in the same transaction as the status change.
func (s *Service) AdminCancelOrder(ctx context.Context, admin, orderNumber, reason string) error {
	if reason == "" {
		return domain.ErrReasonRequired
	}

	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return err
	}
	if order.Status != domain.StatusWaitingPaymentConfirmation && order.Status != domain.StatusProcessing {
		return domain.ErrInvalidOrderState
	}

	wasProcessing := order.Status == domain.StatusProcessing
	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:      order.ID,
			From:         order.Status,
			To:           domain.StatusCancelled,
			Actor:        admin,
			CancelReason: &reason,
		}); err != nil {
			return err
		}
		if wasProcessing {
			if err := s.creditItems(ctx, tx, order, admin, reason); err != nil {
				return err
			}
		}
		order.Status = domain.StatusCancelled
		return s.emitEvent(ctx, tx, order, "order.cancelled", reason)
	})
}

// ExpireOrder is the expiry sweep's per-order step: cancel a WAITING_PAYMENT
// order whose deadline passed. The status compare-and-set makes re-runs and
// races with user cancellation harmless.
func (s *Service) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.GetOrderByID(ctx, s.repo.DB(), orderID)
	if err != nil {
		return err
	}
	if !order.Expired(s.now()) {
		return fmt.Errorf("order %s is not past its payment deadline", order.OrderNumber)
	}

	reason := ExpiredReason
	return s.repo.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.TransitionStatus(ctx, tx, repository.StatusTransition{
			OrderID:      order.ID,
			From:         domain.StatusWaitingPayment,
			To:           domain.StatusCancelled,
			Actor:        domain.SystemActor,
			CancelReason: &reason,
		}); err != nil {
			return err
		}
		order.Status = domain.StatusCancelled
		return s.emitEvent(ctx, tx, order, "order.cancelled", reason)
	})
}

// AutoConfirmOrder is the auto-confirm sweep's per-order step.
func (s *Service) AutoConfirmOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.GetOrderByID(ctx, s.repo.DB(), orderID)
	if err != nil {
		return err
	}
	return s.confirm(ctx, order, domain.SystemActor)
}

// ListExpiredOrders feeds the expiry sweep.
func (s *Service) ListExpiredOrders(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return s.repo.ListExpiredOrderIDs(ctx, s.repo.DB(), s.now(), limit)
}

// ListAutoConfirmableOrders feeds the auto-confirm sweep.
func (s *Service) ListAutoConfirmableOrders(ctx context.Context, limit int) ([]uuid.UUID, error) {
	cutoff := s.now().Add(-s.cfg.AutoConfirmAfter)
	return s.repo.ListShippedIdleOrderIDs(ctx, s.repo.DB(), cutoff, limit)
}
