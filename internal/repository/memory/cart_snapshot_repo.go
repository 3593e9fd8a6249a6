// Package memory keeps cart snapshots in process when no database is configured.
package memory

import (
	"context"

	"storefront-console/internal/domain"
	"storefront-console/pkg/cache"
)

const cartKeyPrefix = "cart:"

type cartSnapshotRepository struct {
	store cache.CacheService
}

// NewCartSnapshotRepository stores snapshots in store using its default expiration.
func NewCartSnapshotRepository(store cache.CacheService) domain.CartSnapshotRepository {
	return &cartSnapshotRepository{store: store}
}

func (r *cartSnapshotRepository) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	v, ok := r.store.Get(cartKeyPrefix + userID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cart, ok := v.(domain.Cart)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cart = cart.Clone()
	return &cart, nil
}

func (r *cartSnapshotRepository) Save(ctx context.Context, cart *domain.Cart) error {
	r.store.Set(cartKeyPrefix+cart.UserID, cart.Clone(), 0)
	return nil
}

func (r *cartSnapshotRepository) Delete(ctx context.Context, userID string) error {
	r.store.Delete(cartKeyPrefix + userID)
	return nil
}
