// Package lifecycle drives orders through their state machine. Every
// transition validates the current status with a compare-and-set, appends to
// the status history and commits atomically with its stock ledger effect in
// one transaction.
package lifecycle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/geo"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/ledger"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/pricing"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/resolver"
	"github.com/google/uuid"
)

// OrderStore is the persistence surface the lifecycle service runs on,
// implemented by *repository.Repository.
type OrderStore interface {
	DB() *sql.DB
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	CreateOrder(ctx context.Context, q repository.Querier, order *domain.Order) error
	TransitionStatus(ctx context.Context, q repository.Querier, t repository.StatusTransition) error
	GetOrderByNumber(ctx context.Context, q repository.Querier, orderNumber string) (*domain.Order, error)
	GetOrderByID(ctx context.Context, q repository.Querier, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, q repository.Querier, userID string) ([]*domain.Order, error)
	UpdateOrderDiscount(ctx context.Context, q repository.Querier, orderID uuid.UUID, discountTotal, total float64) error
	SettlePayment(ctx context.Context, q repository.Querier, orderID uuid.UUID) error
	ListExpiredOrderIDs(ctx context.Context, q repository.Querier, now time.Time, limit int) ([]uuid.UUID, error)
	ListShippedIdleOrderIDs(ctx context.Context, q repository.Querier, cutoff time.Time, limit int) ([]uuid.UUID, error)

	CreatePaymentProof(ctx context.Context, q repository.Querier, proof *domain.PaymentProof) error
	SupersedePendingProofs(ctx context.Context, q repository.Querier, orderID uuid.UUID, note string) error
	ResolvePendingProof(ctx context.Context, q repository.Querier, orderID uuid.UUID, status domain.ProofStatus, verifier string) error

	GetVoucherByCode(ctx context.Context, q repository.Querier, code string) (*domain.Voucher, error)
	IncrementVoucherUsage(ctx context.Context, q repository.Querier, voucherID int64) error
	InsertAppliedVoucher(ctx context.Context, q repository.Querier, orderID uuid.UUID, voucherID int64, discount float64) error

	InsertOutboxEvent(ctx context.Context, q repository.Querier, event *repository.OutboxEvent) error
}

// StockLedger is the slice of the ledger the lifecycle needs.
type StockLedger interface {
	Adjust(ctx context.Context, q repository.Querier, adj ledger.Adjustment) error
	MissingItems(ctx context.Context, q repository.Querier, storeID int64, lines []domain.CartLine) ([]domain.MissingItem, error)
}

// StoreResolver picks the fulfilling store for a cart.
type StoreResolver interface {
	Resolve(ctx context.Context, q repository.Querier, lines []domain.CartLine, dest geo.Point) (*resolver.Candidate, error)
}

// Config holds the time-driven business constants.
type Config struct {
	// PaymentWindow is how long a manual-transfer order may sit unpaid
	// before the expiry sweep cancels it.
	PaymentWindow time.Duration
	// AutoConfirmAfter is how long a shipped order may sit without a
	// customer confirmation before the sweep confirms it.
	AutoConfirmAfter time.Duration
	Pricing          pricing.Config
}

func DefaultConfig() Config {
	return Config{
		PaymentWindow:    24 * time.Hour,
		AutoConfirmAfter: 48 * time.Hour,
		Pricing:          pricing.DefaultConfig(),
	}
}

type Service struct {
	repo     OrderStore
	ledger   StockLedger
	resolver StoreResolver
	cart     CartProvider
	address  AddressProvider
	shipping ShippingMethodProvider
	gateway  GatewayCharger
	proofs   ProofFileStore
	cfg      Config
	now      func() time.Time
}

func NewService(
	repo OrderStore,
	stockLedger StockLedger,
	storeResolver StoreResolver,
	cart CartProvider,
	address AddressProvider,
	shipping ShippingMethodProvider,
	gateway GatewayCharger,
	proofs ProofFileStore,
	cfg Config,
) *Service {
	return &Service{
		repo:     repo,
		ledger:   stockLedger,
		resolver: storeResolver,
		cart:     cart,
		address:  address,
		shipping: shipping,
		gateway:  gateway,
		proofs:   proofs,
		cfg:      cfg,
		now:      time.Now,
	}
}

// GetOrder loads an order by number, enforcing ownership unless the caller
// is an admin or the system.
func (s *Service) GetOrder(ctx context.Context, actor, orderNumber string, admin bool) (*domain.Order, error) {
	order, err := s.repo.GetOrderByNumber(ctx, s.repo.DB(), orderNumber)
	if err != nil {
		return nil, err
	}
	if !admin && order.UserID != actor {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// ListOrders returns the actor's own orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, s.repo.DB(), userID)
}

// orderEvent is the outbox payload for one lifecycle event.
type orderEvent struct {
	OrderNumber string             `json:"order_number"`
	UserID      string             `json:"user_id"`
	Status      domain.OrderStatus `json:"status"`
	Total       float64            `json:"total"`
	Reason      string             `json:"reason,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// emitEvent writes the outbox row inside the caller's transaction so the
// event exists if and only if the transition committed. Delivery (email,
// downstream consumers) happens asynchronously via the poller.
func (s *Service) emitEvent(ctx context.Context, q repository.Querier, order *domain.Order, eventType, reason string) error {
	payload, err := json.Marshal(orderEvent{
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		Total:       order.Total,
		Reason:      reason,
		OccurredAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	return s.repo.InsertOutboxEvent(ctx, q, &repository.OutboxEvent{
		AggregateID: order.OrderNumber,
		EventType:   eventType,
		Payload:     payload,
	})
}

// debitItems records the SALE for every line of the order, failing the whole
// transaction if any line underflows.
func (s *Service) debitItems(ctx context.Context, q repository.Querier, order *domain.Order, actor string) error {
	for _, item := range order.Items {
		err := s.ledger.Adjust(ctx, q, ledger.Adjustment{
			ProductID: item.ProductID,
			StoreID:   order.StoreID,
			Delta:     -item.Quantity,
			Reason:    domain.ReasonSale,
			Actor:     actor,
			Note:      fmt.Sprintf("sale for order %s", order.OrderNumber),
			OrderID:   &order.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// creditItems returns every line of a cancelled PROCESSING order to stock.
func (s *Service) creditItems(ctx context.Context, q repository.Querier, order *domain.Order, actor, reason string) error {
	for _, item := range order.Items {
		err := s.ledger.Adjust(ctx, q, ledger.Adjustment{
			ProductID: item.ProductID,
			StoreID:   order.StoreID,
			Delta:     item.Quantity,
			Reason:    domain.ReasonReturn,
			Actor:     actor,
			Note:      fmt.Sprintf("return for cancelled order %s: %s", order.OrderNumber, reason),
			OrderID:   &order.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func logClearCartFailure(cartID string, err error) {
	// Cart cleanup is best-effort; the order already committed.
	log.Printf("failed to clear cart %s after checkout: %v", cartID, err)
}
