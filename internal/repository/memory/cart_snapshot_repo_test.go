package memory

import (
	"context"
	"testing"
	"time"

	"storefront-console/internal/domain"
	cacheimpl "storefront-console/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSnapshotRepository_RoundTripIsolated(t *testing.T) {
	repo := NewCartSnapshotRepository(cacheimpl.NewMemoryCache(time.Hour, time.Hour))
	ctx := context.Background()

	_, err := repo.Load(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	cart := &domain.Cart{UserID: "u-1", Lines: []domain.CartLine{{ID: "l-1", ProductID: "p-1", Quantity: 1}}}
	require.NoError(t, repo.Save(ctx, cart))
	cart.Lines[0].Quantity = 9

	loaded, err := repo.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Lines[0].Quantity)

	loaded.Lines[0].Quantity = 4
	again, err := repo.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)

	require.NoError(t, repo.Delete(ctx, "u-1"))
	_, err = repo.Load(ctx, "u-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
