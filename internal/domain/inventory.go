package domain

import (
	"time"

	"github.com/google/uuid"
)

// Inventory is the materialized stock counter for one (product, store) pair.
// Quantity never goes negative; any decrement that would underflow is
// rejected before commit.
type Inventory struct {
	ID        int64
	ProductID int64
	StoreID   int64
	Quantity  int
	MinStock  int
	UpdatedAt time.Time
}

// JournalReason is the reason code on a stock journal entry.
type JournalReason string

const (
	ReasonSale       JournalReason = "SALE"
	ReasonReturn     JournalReason = "RETURN"
	ReasonPurchase   JournalReason = "PURCHASE"
	ReasonAdjustment JournalReason = "ADJUSTMENT"
)

// JournalEntry is one immutable audit row: a signed quantity delta with its
// reason. Entries are append-only, one per ledger mutation.
type JournalEntry struct {
	ID        int64
	ProductID int64
	StoreID   int64
	Delta     int
	Reason    JournalReason
	Note      string
	OrderID   *uuid.UUID
	Actor     string
	CreatedAt time.Time
}

// Store is a fulfillment location. MaxRadiusKM is the service radius: the
// farthest delivery distance this store is configured to serve.
type Store struct {
	ID          int64
	Name        string
	Latitude    float64
	Longitude   float64
	MaxRadiusKM float64
	IsActive    bool
}

// CartLine is one requested (product, quantity) pair with its price snapshot.
type CartLine struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// Cart is the buyer's current cart as served by the cart provider.
type Cart struct {
	ID     string
	UserID string
	Items  []CartLine
}

// MissingItem describes a cart line a store cannot fully cover.
type MissingItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}
