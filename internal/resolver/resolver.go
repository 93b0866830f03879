// Package resolver picks the fulfilling store for a cart: the nearest active
// store within its own service radius that can cover every line, with a
// best-effort fallback when none can.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/geo"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
)

// StoreSource serves the active store list. The cached implementation sits
// in front of postgres; correctness never depends on the cache.
type StoreSource interface {
	ListActive(ctx context.Context) ([]domain.Store, error)
}

// StockChecker reports which cart lines a store cannot cover.
type StockChecker interface {
	MissingItems(ctx context.Context, q repository.Querier, storeID int64, lines []domain.CartLine) ([]domain.MissingItem, error)
}

// Candidate is a store considered for fulfillment, with its distance from
// the delivery point and the cart lines it cannot cover.
type Candidate struct {
	Store    domain.Store
	Distance float64
	Missing  []domain.MissingItem
}

// FullMatch reports whether the store covers the entire cart.
func (c *Candidate) FullMatch() bool {
	return len(c.Missing) == 0
}

type Resolver struct {
	stores StoreSource
	stock  StockChecker
}

func NewResolver(stores StoreSource, stock StockChecker) *Resolver {
	return &Resolver{stores: stores, stock: stock}
}

// Resolve finds the fulfilling store for the cart. It returns the nearest
// full-match candidate; if no store can cover the whole cart, the nearest
// in-radius store is returned with its missing lines so checkout can reject
// with actionable detail. ErrNoStoresAvailable means no active store lies
// within its own service radius of the delivery point. Read-only.
func (r *Resolver) Resolve(ctx context.Context, q repository.Querier, lines []domain.CartLine, dest geo.Point) (*Candidate, error) {
	stores, err := r.stores.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active stores: %w", err)
	}
	if len(stores) == 0 {
		return nil, domain.ErrNoStoresAvailable
	}

	candidates := make([]*Candidate, 0, len(stores))
	for _, store := range stores {
		distance := geo.Distance(dest, geo.Point{Latitude: store.Latitude, Longitude: store.Longitude})
		if distance > store.MaxRadiusKM {
			continue
		}
		candidates = append(candidates, &Candidate{Store: store, Distance: distance})
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoStoresAvailable
	}

	// Ascending distance; equal distances break by store id, i.e. creation
	// order.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Store.ID < candidates[j].Store.ID
	})

	for _, candidate := range candidates {
		missing, err := r.stock.MissingItems(ctx, q, candidate.Store.ID, lines)
		if err != nil {
			return nil, fmt.Errorf("check stock at store %d: %w", candidate.Store.ID, err)
		}
		candidate.Missing = missing
		if candidate.FullMatch() {
			return candidate, nil
		}
	}

	// No store covers the whole cart; surface the nearest one's gaps.
	return candidates[0], nil
}
