package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOrder plants an order directly in the mock repo at the given status,
// as if it had arrived there through earlier transitions.
func seedOrder(f *fixture, status domain.OrderStatus) *domain.Order {
	now := time.Now()
	order := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: domain.NewOrderNumber(now),
		UserID:      "user-1",
		StoreID:     10,
		Address:     domain.AddressSnapshot{Recipient: "Budi", City: "Jakarta"},
		ShippingMethod: "standard",
		ShippingCost:   15000,
		Subtotal:       50000,
		Total:          65000,
		PaymentMethod:  domain.PaymentManualTransfer,
		PaymentStatus:  domain.PaymentPending,
		Status:         status,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "rice", Quantity: 2, UnitPrice: 12500, Subtotal: 25000},
			{ProductID: 2, ProductName: "eggs", Quantity: 1, UnitPrice: 25000, Subtotal: 25000},
		},
		LastStatusChange: now,
		LastChangedBy:    "user-1",
	}
	if status == domain.StatusWaitingPayment {
		expires := now.Add(24 * time.Hour)
		order.ExpiresAt = &expires
	}

	f.repo.m.Lock()
	f.repo.orders[order.ID] = cloneOrder(order)
	f.repo.byNumber[order.OrderNumber] = order.ID
	f.repo.m.Unlock()
	return order
}

func getOrder(t *testing.T, f *fixture, orderNumber string) *domain.Order {
	t.Helper()
	order, err := f.repo.GetOrderByNumber(context.Background(), nil, orderNumber)
	require.NoError(t, err)
	return order
}

func TestUploadPaymentProof(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)

	proof, err := f.svc.UploadPaymentProof(context.Background(), "user-1", order.OrderNumber, []byte("jpeg bytes"), "transfer.jpg")

	require.NoError(t, err)
	assert.Equal(t, domain.ProofPending, proof.Status)
	assert.Equal(t, "proofs/stored.jpg", proof.FilePath)
	assert.Equal(t, domain.StatusWaitingPaymentConfirmation, getOrder(t, f, order.OrderNumber).Status)
	assert.Equal(t, []string{"order.payment_proof_uploaded"}, f.repo.eventTypes())
}

func TestUploadPaymentProof_SupersedesPendingProof(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)
	f.repo.proofs[order.ID] = []domain.PaymentProof{
		{ID: 1, OrderID: order.ID, FilePath: "proofs/old.jpg", Status: domain.ProofPending},
	}

	_, err := f.svc.UploadPaymentProof(context.Background(), "user-1", order.OrderNumber, []byte("x"), "new.jpg")

	require.NoError(t, err)
	proofs := f.repo.proofs[order.ID]
	require.Len(t, proofs, 2)
	assert.Equal(t, domain.ProofRejected, proofs[0].Status)
	assert.Equal(t, domain.ProofPending, proofs[1].Status)
}

func TestUploadPaymentProof_ExpiredOrder(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)
	past := time.Now().Add(-time.Hour)
	f.repo.orders[f.repo.byNumber[order.OrderNumber]].ExpiresAt = &past

	_, err := f.svc.UploadPaymentProof(context.Background(), "user-1", order.OrderNumber, []byte("x"), "late.jpg")

	assert.ErrorIs(t, err, domain.ErrOrderExpired)
}

func TestUploadPaymentProof_WrongOwner(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)

	_, err := f.svc.UploadPaymentProof(context.Background(), "someone-else", order.OrderNumber, []byte("x"), "a.jpg")

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestVerifyPayment_ApproveDebitsStock(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPaymentConfirmation)
	f.repo.proofs[order.ID] = []domain.PaymentProof{
		{ID: 1, OrderID: order.ID, Status: domain.ProofPending},
	}

	err := f.svc.VerifyPayment(context.Background(), "admin-1", order.OrderNumber, true)

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, 98, f.ledger.get(1, 10))
	assert.Equal(t, 99, f.ledger.get(2, 10))
	assert.Equal(t, domain.ProofVerified, f.repo.proofs[order.ID][0].Status)
}

func TestVerifyPayment_ApproveInsufficientStock(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPaymentConfirmation)
	f.repo.proofs[order.ID] = []domain.PaymentProof{
		{ID: 1, OrderID: order.ID, Status: domain.ProofPending},
	}
	f.ledger.set(1, 10, 1) // order needs 2

	err := f.svc.VerifyPayment(context.Background(), "admin-1", order.OrderNumber, true)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	// Transaction rolled back: order still under review, proof untouched.
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusWaitingPaymentConfirmation, stored.Status)
	assert.Equal(t, domain.ProofPending, f.repo.proofs[order.ID][0].Status)
	assert.Empty(t, f.repo.eventTypes())
}

func TestVerifyPayment_Reject(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPaymentConfirmation)
	f.repo.proofs[order.ID] = []domain.PaymentProof{
		{ID: 1, OrderID: order.ID, Status: domain.ProofPending},
	}

	err := f.svc.VerifyPayment(context.Background(), "admin-1", order.OrderNumber, false)

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusWaitingPayment, stored.Status)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, domain.ProofRejected, f.repo.proofs[order.ID][0].Status)
	assert.Equal(t, 100, f.ledger.get(1, 10), "rejection never touches stock")
}

func TestShipOrder(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusProcessing)

	err := f.svc.ShipOrder(context.Background(), "admin-1", order.OrderNumber, "JNE-12345")

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusShipped, stored.Status)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "JNE-12345", *stored.TrackingNumber)
	assert.Empty(t, f.ledger.journal, "shipping has no ledger effect")
}

func TestShipOrder_RequiresTracking(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusProcessing)

	err := f.svc.ShipOrder(context.Background(), "admin-1", order.OrderNumber, "")

	assert.ErrorIs(t, err, domain.ErrTrackingRequired)
	assert.Equal(t, domain.StatusProcessing, getOrder(t, f, order.OrderNumber).Status)
}

func TestShipOrder_FromWaitingPaymentFails(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)

	err := f.svc.ShipOrder(context.Background(), "admin-1", order.OrderNumber, "JNE-1")

	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusWaitingPayment, stored.Status)
	assert.Nil(t, stored.TrackingNumber)
	assert.Empty(t, f.repo.eventTypes(), "failed transition mutates nothing")
}

func TestConfirmOrder(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusShipped)

	err := f.svc.ConfirmOrder(context.Background(), "user-1", order.OrderNumber)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, getOrder(t, f, order.OrderNumber).Status)
}

func TestCancelOrder_User(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)

	err := f.svc.CancelOrder(context.Background(), "user-1", order.OrderNumber, "changed my mind")

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "changed my mind", *stored.CancelReason)
	assert.Empty(t, f.ledger.journal, "nothing was debited, nothing to return")
}

func TestCancelOrder_UserCannotCancelProcessing(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusProcessing)

	err := f.svc.CancelOrder(context.Background(), "user-1", order.OrderNumber, "too slow")

	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}

func TestAdminCancelOrder_ProcessingReturnsStock(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusProcessing)
	// Stock was debited when the order entered PROCESSING.
	f.ledger.set(1, 10, 98)
	f.ledger.set(2, 10, 99)

	err := f.svc.AdminCancelOrder(context.Background(), "admin-1", order.OrderNumber, "customer unreachable")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, getOrder(t, f, order.OrderNumber).Status)
	assert.Equal(t, 100, f.ledger.get(1, 10))
	assert.Equal(t, 100, f.ledger.get(2, 10))
	require.Len(t, f.ledger.journal, 2)
	for _, adj := range f.ledger.journal {
		assert.Equal(t, domain.ReasonReturn, adj.Reason)
		assert.Equal(t, &order.ID, adj.OrderID)
		assert.Contains(t, adj.Note, "customer unreachable")
	}
}

func TestAdminCancelOrder_WaitingConfirmationNoStockEffect(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPaymentConfirmation)

	err := f.svc.AdminCancelOrder(context.Background(), "admin-1", order.OrderNumber, "suspected fraud")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, getOrder(t, f, order.OrderNumber).Status)
	assert.Empty(t, f.ledger.journal)
}

func TestAdminCancelOrder_ReasonRequired(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusProcessing)

	err := f.svc.AdminCancelOrder(context.Background(), "admin-1", order.OrderNumber, "")

	assert.ErrorIs(t, err, domain.ErrReasonRequired)
}

func TestAdminCancelOrder_ShippedNotCancellable(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusShipped)

	err := f.svc.AdminCancelOrder(context.Background(), "admin-1", order.OrderNumber, "too late")

	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}

func TestExpireOrder(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusWaitingPayment)
	past := time.Now().Add(-time.Hour)
	f.repo.orders[f.repo.byNumber[order.OrderNumber]].ExpiresAt = &past

	err := f.svc.ExpireOrder(context.Background(), order.ID)

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, ExpiredReason, *stored.CancelReason)
	assert.Equal(t, domain.SystemActor, stored.LastChangedBy)
	assert.Empty(t, f.ledger.journal, "expired orders were never debited")
}

func TestExpireOrder_AlreadyCancelledIsStateGuarded(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusCancelled)
	past := time.Now().Add(-time.Hour)
	f.repo.orders[f.repo.byNumber[order.OrderNumber]].ExpiresAt = &past

	err := f.svc.ExpireOrder(context.Background(), order.ID)

	assert.ErrorIs(t, err, domain.ErrInvalidOrderState)
}

func TestAutoConfirmOrder(t *testing.T) {
	f := newFixture()
	order := seedOrder(f, domain.StatusShipped)

	err := f.svc.AutoConfirmOrder(context.Background(), order.ID)

	require.NoError(t, err)
	stored := getOrder(t, f, order.OrderNumber)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, domain.SystemActor, stored.LastChangedBy)
}

func TestListAutoConfirmableOrders_RespectsGraceWindow(t *testing.T) {
	f := newFixture()
	recent := seedOrder(f, domain.StatusShipped)
	idle := seedOrder(f, domain.StatusShipped)
	f.repo.orders[f.repo.byNumber[idle.OrderNumber]].LastStatusChange = time.Now().Add(-72 * time.Hour)

	ids, err := f.svc.ListAutoConfirmableOrders(context.Background(), 100)

	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, idle.ID, ids[0])
	assert.NotEqual(t, recent.ID, ids[0])
}
