package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/AFAP2003/groceryecommerce-sub000/internal/domain"
	"github.com/AFAP2003/groceryecommerce-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

const storeListKey = "stores:active"

// storeLister is the repository read the cache fronts.
type storeLister interface {
	ListActiveStores(ctx context.Context, q repository.Querier) ([]domain.Store, error)
}

// CachedStoreSource serves the active store list from redis, falling back to
// postgres on a miss. Singleflight collapses concurrent misses into one
// database read. Cache errors are logged and degrade to the database path.
type CachedStoreSource struct {
	repo    storeLister
	q       repository.Querier
	client  *redis.Client
	baseTTL time.Duration
	sfg     singleflight.Group
}

func NewCachedStoreSource(repo storeLister, q repository.Querier, client *redis.Client) *CachedStoreSource {
	return &CachedStoreSource{
		repo:    repo,
		q:       q,
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

func (c *CachedStoreSource) ListActive(ctx context.Context) ([]domain.Store, error) {
	v, err, _ := c.sfg.Do(storeListKey, func() (interface{}, error) {
		stores, err := c.cacheGet(ctx)
		if err == nil {
			return stores, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("store cache get error: %v", err)
		}

		stores, errList := c.repo.ListActiveStores(ctx, c.q)
		if errList != nil {
			return nil, errList
		}

		go func() {
			if errSet := c.cacheSet(context.Background(), stores); errSet != nil {
				log.Printf("store cache set error: %v", errSet)
			}
		}()

		return stores, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Store), nil
}

// Invalidate drops the cached list after a store is created or deactivated.
func (c *CachedStoreSource) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, storeListKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedStoreSource) cacheGet(ctx context.Context) ([]domain.Store, error) {
	data, err := c.client.Get(ctx, storeListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var stores []domain.Store
	if err2 := json.Unmarshal(data, &stores); err2 != nil {
		return nil, fmt.Errorf("unmarshal stores failed: %w", err2)
	}
	return stores, nil
}

func (c *CachedStoreSource) cacheSet(ctx context.Context, stores []domain.Store) error {
	data, err := json.Marshal(stores)
	if err != nil {
		return fmt.Errorf("marshal stores failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := c.client.Set(ctx, storeListKey, string(data), c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
