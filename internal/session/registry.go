package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/cache"
	"storefront-console/pkg/logger"
)

// Registry keeps one Store per access token. Failed stores are evicted right
// away so the next request with the same token bootstraps again. An entry never
// outlives the expiry of its token.
type Registry struct {
	stores cache.CacheService
	deps   Dependencies
	ttl    time.Duration
	now    func() time.Time

	mu sync.Mutex
}

func NewRegistry(stores cache.CacheService, deps Dependencies, ttl time.Duration) *Registry {
	return &Registry{stores: stores, deps: deps, ttl: ttl, now: time.Now}
}

// Resolve returns the Ready store for token, bootstrapping it on first use. A
// store whose token has expired since bootstrap is evicted with ErrSessionExpired.
func (r *Registry) Resolve(ctx context.Context, token string) (*Store, error) {
	store, fresh := r.lookup(token)

	if err := store.Bootstrap(ctx); err != nil {
		if store.State() == StateFailed {
			r.evictIfSame(token, store)
			logger.WithContext(ctx).Debug().Err(err).Msg("Session bootstrap failed, evicted")
		}
		return nil, err
	}

	exp := store.ExpiresAt()
	if exp.IsZero() {
		return store, nil
	}
	remaining := exp.Sub(r.now())
	if remaining <= 0 {
		r.evictIfSame(token, store)
		logger.WithContext(ctx).Debug().Time("expired_at", exp).Msg("Session token expired, evicted")
		return nil, fmt.Errorf("resolve session: %w", domain.ErrSessionExpired)
	}
	if fresh && (r.ttl <= 0 || remaining < r.ttl) {
		r.setIfSame(token, store, remaining)
	}
	return store, nil
}

// lookup reports whether the store was created by this call.
func (r *Registry) lookup(token string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.stores.Get(token); ok {
		if store, ok := v.(*Store); ok {
			return store, false
		}
	}
	store := NewStore(token, r.deps)
	r.stores.Set(token, store, r.ttl)
	return store, true
}

func (r *Registry) setIfSame(token string, store *Store, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.stores.Get(token); ok && v == store {
		r.stores.Set(token, store, ttl)
	}
}

func (r *Registry) evictIfSame(token string, store *Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.stores.Get(token); ok && v == store {
		r.stores.Delete(token)
	}
}

// Evict forgets the session of token, e.g. on logout or a backend 401.
func (r *Registry) Evict(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores.Delete(token)
}

// Peek returns the store for token without bootstrapping it.
func (r *Registry) Peek(token string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.stores.Get(token)
	if !ok {
		return nil, false
	}
	store, ok := v.(*Store)
	return store, ok
}
