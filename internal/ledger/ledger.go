// Package ledger owns the per-(product, store) stock counters and their
// append-only journal. Every quantity change goes through Adjust so no
// mutation escapes the audit trail.
package ledger

import (
	"context"
	"fmt"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/google/uuid"
)

// InventoryStore is the persistence the ledger runs on.
type InventoryStore interface {
	GetQuantity(ctx context.Context, q repository.Querier, productID, storeID int64) (int, error)
	GetQuantities(ctx context.Context, q repository.Querier, storeID int64, productIDs []int64) (map[int64]int, error)
	AdjustQuantity(ctx context.Context, q repository.Querier, productID, storeID int64, delta int) error
	AppendJournal(ctx context.Context, q repository.Querier, entry *domain.JournalEntry) error
}

type Ledger struct {
	store InventoryStore
}

func NewLedger(store InventoryStore) *Ledger {
	return &Ledger{store: store}
}

// Adjustment is one signed stock mutation with its audit fields.
type Adjustment struct {
	ProductID int64
	StoreID   int64
	Delta     int
	Reason    domain.JournalReason
	Actor     string
	Note      string
	OrderID   *uuid.UUID
}

// Adjust applies the delta and appends the journal row, both through the
// caller's transaction handle. A decrement that would underflow fails with
// InsufficientStockError before anything is written.
func (l *Ledger) Adjust(ctx context.Context, q repository.Querier, adj Adjustment) error {
	if err := l.store.AdjustQuantity(ctx, q, adj.ProductID, adj.StoreID, adj.Delta); err != nil {
		return err
	}

	entry := &domain.JournalEntry{
		ProductID: adj.ProductID,
		StoreID:   adj.StoreID,
		Delta:     adj.Delta,
		Reason:    adj.Reason,
		Note:      adj.Note,
		OrderID:   adj.OrderID,
		Actor:     adj.Actor,
	}
	if err := l.store.AppendJournal(ctx, q, entry); err != nil {
		return fmt.Errorf("journal adjustment: %w", err)
	}
	return nil
}

// GetQuantity reads the current counter; missing rows read as zero.
func (l *Ledger) GetQuantity(ctx context.Context, q repository.Querier, productID, storeID int64) (int, error) {
	return l.store.GetQuantity(ctx, q, productID, storeID)
}

// CheckAvailability is the read-only sufficiency predicate.
func (l *Ledger) CheckAvailability(ctx context.Context, q repository.Querier, productID, storeID int64, required int) (bool, error) {
	quantity, err := l.store.GetQuantity(ctx, q, productID, storeID)
	if err != nil {
		return false, err
	}
	return quantity >= required, nil
}

// MissingItems batch-checks every cart line against one store and returns
// the lines it cannot fully cover. Empty result means the store can fulfill
// the whole cart.
func (l *Ledger) MissingItems(ctx context.Context, q repository.Querier, storeID int64, lines []domain.CartLine) ([]domain.MissingItem, error) {
	productIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}

	quantities, err := l.store.GetQuantities(ctx, q, storeID, productIDs)
	if err != nil {
		return nil, err
	}

	var missing []domain.MissingItem
	for _, line := range lines {
		available := quantities[line.ProductID]
		if available < line.Quantity {
			missing = append(missing, domain.MissingItem{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}
	return missing, nil
}
