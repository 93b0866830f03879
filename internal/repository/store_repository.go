package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
)

// ListActiveStores returns every active store with known coordinates,
// ordered by id so downstream distance sorts have a stable base order.
func (r *Repository) ListActiveStores(ctx context.Context, q Querier) ([]domain.Store, error) {
	query := `SELECT id, name, latitude, longitude, max_radius_km, is_active
	          FROM stores
	          WHERE is_active AND latitude IS NOT NULL AND longitude IS NOT NULL
	          ORDER BY id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active stores: %w", err)
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.MaxRadiusKM, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (r *Repository) GetStoreByID(ctx context.Context, q Querier, id int64) (*domain.Store, error) {
	query := `SELECT id, name, latitude, longitude, max_radius_km, is_active
	          FROM stores WHERE id = $1`

	var s domain.Store
	err := q.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.MaxRadiusKM, &s.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query store by id: %w", err)
	}
	return &s, nil
}
