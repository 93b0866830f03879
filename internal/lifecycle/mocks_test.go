package lifecycle

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/geo"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/ledger"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/resolver"
	"github.com/google/uuid"
)

// mockRepo implements OrderStore in memory. WithinTx snapshots all state
// before running fn and restores it on error, mirroring the rollback the
// real repository gets from postgres.
type mockRepo struct {
	m        sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	byNumber map[string]uuid.UUID
	proofs   map[uuid.UUID][]domain.PaymentProof
	vouchers map[string]*domain.Voucher
	applied  map[uuid.UUID]map[int64]float64
	events   []repository.OutboxEvent
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		orders:   make(map[uuid.UUID]*domain.Order),
		byNumber: make(map[string]uuid.UUID),
		proofs:   make(map[uuid.UUID][]domain.PaymentProof),
		vouchers: make(map[string]*domain.Voucher),
		applied:  make(map[uuid.UUID]map[int64]float64),
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	c.AppliedVouchers = append([]domain.AppliedVoucher(nil), o.AppliedVouchers...)
	c.StatusHistory = append([]domain.StatusChange(nil), o.StatusHistory...)
	return &c
}

func (r *mockRepo) snapshot() *mockRepo {
	s := newMockRepo()
	for id, o := range r.orders {
		s.orders[id] = cloneOrder(o)
	}
	for n, id := range r.byNumber {
		s.byNumber[n] = id
	}
	for id, ps := range r.proofs {
		s.proofs[id] = append([]domain.PaymentProof(nil), ps...)
	}
	for code, v := range r.vouchers {
		c := *v
		s.vouchers[code] = &c
	}
	for id, m := range r.applied {
		c := make(map[int64]float64, len(m))
		for k, v := range m {
			c[k] = v
		}
		s.applied[id] = c
	}
	s.events = append([]repository.OutboxEvent(nil), r.events...)
	return s
}

func (r *mockRepo) restore(s *mockRepo) {
	r.orders = s.orders
	r.byNumber = s.byNumber
	r.proofs = s.proofs
	r.vouchers = s.vouchers
	r.applied = s.applied
	r.events = s.events
}

func (r *mockRepo) DB() *sql.DB { return nil }

func (r *mockRepo) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	r.m.Lock()
	snap := r.snapshot()
	r.m.Unlock()

	if err := fn(nil); err != nil {
		r.m.Lock()
		r.restore(snap)
		r.m.Unlock()
		return err
	}
	return nil
}

func (r *mockRepo) CreateOrder(_ context.Context, _ repository.Querier, order *domain.Order) error {
	r.m.Lock()
	defer r.m.Unlock()
	c := cloneOrder(order)
	c.StatusHistory = append(c.StatusHistory, domain.StatusChange{
		Status: order.Status, ChangedAt: order.LastStatusChange, ChangedBy: order.LastChangedBy,
	})
	r.orders[order.ID] = c
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

func (r *mockRepo) TransitionStatus(_ context.Context, _ repository.Querier, t repository.StatusTransition) error {
	r.m.Lock()
	defer r.m.Unlock()
	order, ok := r.orders[t.OrderID]
	if !ok || order.Status != t.From {
		return domain.ErrInvalidOrderState
	}
	now := time.Now()
	order.Status = t.To
	order.LastStatusChange = now
	order.LastChangedBy = t.Actor
	if t.TrackingNumber != nil {
		order.TrackingNumber = t.TrackingNumber
	}
	if t.CancelReason != nil {
		order.CancelReason = t.CancelReason
	}
	if t.PaymentStatus != nil {
		order.PaymentStatus = *t.PaymentStatus
	}
	order.StatusHistory = append(order.StatusHistory, domain.StatusChange{
		Status: t.To, ChangedAt: now, ChangedBy: t.Actor,
	})
	return nil
}

func (r *mockRepo) GetOrderByNumber(_ context.Context, _ repository.Querier, orderNumber string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	id, ok := r.byNumber[orderNumber]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(r.orders[id]), nil
}

func (r *mockRepo) GetOrderByID(_ context.Context, _ repository.Querier, id uuid.UUID) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *mockRepo) ListOrdersByUserID(_ context.Context, _ repository.Querier, userID string) ([]*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *mockRepo) UpdateOrderDiscount(_ context.Context, _ repository.Querier, orderID uuid.UUID, discountTotal, total float64) error {
	r.m.Lock()
	defer r.m.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.Status != domain.StatusWaitingPayment {
		return domain.ErrInvalidOrderState
	}
	order.DiscountTotal = discountTotal
	order.Total = total
	return nil
}

func (r *mockRepo) SettlePayment(_ context.Context, _ repository.Querier, orderID uuid.UUID) error {
	r.m.Lock()
	defer r.m.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.Status != domain.StatusProcessing || order.PaymentStatus != domain.PaymentPending {
		return domain.ErrInvalidOrderState
	}
	order.PaymentStatus = domain.PaymentPaid
	return nil
}

func (r *mockRepo) ListExpiredOrderIDs(_ context.Context, _ repository.Querier, now time.Time, _ int) ([]uuid.UUID, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var ids []uuid.UUID
	for id, o := range r.orders {
		if o.Status == domain.StatusWaitingPayment && o.ExpiresAt != nil && o.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mockRepo) ListShippedIdleOrderIDs(_ context.Context, _ repository.Querier, cutoff time.Time, _ int) ([]uuid.UUID, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var ids []uuid.UUID
	for id, o := range r.orders {
		if o.Status == domain.StatusShipped && o.LastStatusChange.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mockRepo) CreatePaymentProof(_ context.Context, _ repository.Querier, proof *domain.PaymentProof) error {
	r.m.Lock()
	defer r.m.Unlock()
	proof.ID = int64(len(r.proofs[proof.OrderID]) + 1)
	proof.CreatedAt = time.Now()
	r.proofs[proof.OrderID] = append(r.proofs[proof.OrderID], *proof)
	return nil
}

func (r *mockRepo) SupersedePendingProofs(_ context.Context, _ repository.Querier, orderID uuid.UUID, note string) error {
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.proofs[orderID] {
		if r.proofs[orderID][i].Status == domain.ProofPending {
			r.proofs[orderID][i].Status = domain.ProofRejected
			r.proofs[orderID][i].Note = note
		}
	}
	return nil
}

func (r *mockRepo) ResolvePendingProof(_ context.Context, _ repository.Querier, orderID uuid.UUID, status domain.ProofStatus, verifier string) error {
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.proofs[orderID] {
		if r.proofs[orderID][i].Status == domain.ProofPending {
			now := time.Now()
			r.proofs[orderID][i].Status = status
			r.proofs[orderID][i].VerifiedBy = &verifier
			r.proofs[orderID][i].VerifiedAt = &now
			return nil
		}
	}
	return domain.ErrProofNotFound
}

func (r *mockRepo) GetVoucherByCode(_ context.Context, _ repository.Querier, code string) (*domain.Voucher, error) {
	r.m.Lock()
	defer r.m.Unlock()
	v, ok := r.vouchers[code]
	if !ok {
		return nil, domain.ErrVoucherNotFound
	}
	c := *v
	return &c, nil
}

func (r *mockRepo) IncrementVoucherUsage(_ context.Context, _ repository.Querier, voucherID int64) error {
	r.m.Lock()
	defer r.m.Unlock()
	for _, v := range r.vouchers {
		if v.ID == voucherID {
			if v.Exhausted() {
				return domain.ErrVoucherNotEligible
			}
			v.UsageCount++
			return nil
		}
	}
	return domain.ErrVoucherNotFound
}

func (r *mockRepo) InsertAppliedVoucher(_ context.Context, _ repository.Querier, orderID uuid.UUID, voucherID int64, discount float64) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.applied[orderID] == nil {
		r.applied[orderID] = make(map[int64]float64)
	}
	if _, dup := r.applied[orderID][voucherID]; dup {
		return domain.ErrVoucherApplied
	}
	r.applied[orderID][voucherID] = discount
	return nil
}

func (r *mockRepo) InsertOutboxEvent(_ context.Context, _ repository.Querier, event *repository.OutboxEvent) error {
	r.m.Lock()
	defer r.m.Unlock()
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, *event)
	return nil
}

func (r *mockRepo) eventTypes() []string {
	r.m.Lock()
	defer r.m.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.EventType)
	}
	return types
}

// mockLedger applies adjustments against in-memory counters with the same
// underflow guard as the postgres repository.
type mockLedger struct {
	m          sync.Mutex
	quantities map[[2]int64]int // [productID, storeID]
	journal    []ledger.Adjustment
}

func newMockLedger() *mockLedger {
	return &mockLedger{quantities: make(map[[2]int64]int)}
}

func (l *mockLedger) set(productID, storeID int64, quantity int) {
	l.m.Lock()
	defer l.m.Unlock()
	l.quantities[[2]int64{productID, storeID}] = quantity
}

func (l *mockLedger) get(productID, storeID int64) int {
	l.m.Lock()
	defer l.m.Unlock()
	return l.quantities[[2]int64{productID, storeID}]
}

func (l *mockLedger) Adjust(_ context.Context, _ repository.Querier, adj ledger.Adjustment) error {
	l.m.Lock()
	defer l.m.Unlock()
	k := [2]int64{adj.ProductID, adj.StoreID}
	next := l.quantities[k] + adj.Delta
	if next < 0 {
		return &domain.InsufficientStockError{
			StoreID: adj.StoreID,
			Missing: []domain.MissingItem{{ProductID: adj.ProductID, Requested: -adj.Delta, Available: l.quantities[k]}},
		}
	}
	l.quantities[k] = next
	l.journal = append(l.journal, adj)
	return nil
}

func (l *mockLedger) MissingItems(_ context.Context, _ repository.Querier, storeID int64, lines []domain.CartLine) ([]domain.MissingItem, error) {
	l.m.Lock()
	defer l.m.Unlock()
	var missing []domain.MissingItem
	for _, line := range lines {
		available := l.quantities[[2]int64{line.ProductID, storeID}]
		if available < line.Quantity {
			missing = append(missing, domain.MissingItem{
				ProductID: line.ProductID, ProductName: line.ProductName,
				Requested: line.Quantity, Available: available,
			})
		}
	}
	return missing, nil
}

type mockResolver struct {
	candidate *resolver.Candidate
	err       error
}

func (m *mockResolver) Resolve(context.Context, repository.Querier, []domain.CartLine, geo.Point) (*resolver.Candidate, error) {
	return m.candidate, m.err
}

type mockCartProvider struct {
	cart         *domain.Cart
	err          error
	clearedCarts []string
}

func (m *mockCartProvider) GetCart(context.Context, string) (*domain.Cart, error) {
	return m.cart, m.err
}

func (m *mockCartProvider) ClearCart(_ context.Context, cartID string) error {
	m.clearedCarts = append(m.clearedCarts, cartID)
	return nil
}

type mockAddressProvider struct {
	address *DeliveryAddress
	err     error
}

func (m *mockAddressProvider) GetAddress(context.Context, string, string) (*DeliveryAddress, error) {
	return m.address, m.err
}

type mockShippingProvider struct {
	method *ShippingMethod
	err    error
}

func (m *mockShippingProvider) GetActiveMethod(context.Context, int64) (*ShippingMethod, error) {
	return m.method, m.err
}

type mockGateway struct {
	charged []string
	err     error
}

func (m *mockGateway) InitializeCharge(_ context.Context, order *domain.Order) error {
	m.charged = append(m.charged, order.OrderNumber)
	return m.err
}

type mockProofStore struct {
	savedPath string
	err       error
}

func (m *mockProofStore) Save(context.Context, []byte, string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.savedPath == "" {
		m.savedPath = "proofs/stored.jpg"
	}
	return m.savedPath, nil
}
