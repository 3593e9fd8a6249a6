// Package session holds the per-browser session: the authenticated user, the
// cart and the order boards. A Store is hydrated once from the access token and
// the persisted cart snapshot, after which it is Ready or Failed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/internal/viewstate"
	"storefront-console/pkg/logger"
	"storefront-console/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AccountFetcher is the slice of the auth gateway a session needs.
type AccountFetcher interface {
	FetchAccount(ctx context.Context) (*domain.User, error)
}

type Dependencies struct {
	Accounts AccountFetcher
	Carts    domain.CartSnapshotRepository
	Tokens   *utils.TokenParser
	// WithToken scopes a context to the session's access token for backend calls.
	WithToken func(ctx context.Context, token string) context.Context
	// NewBackOff builds the retry policy of the account fetch.
	NewBackOff func() backoff.BackOff
}

type Store struct {
	token string
	deps  Dependencies

	mu     sync.RWMutex
	state  State
	err    error
	user   *domain.User
	claims *utils.SessionClaims
	cart   domain.Cart
	done   chan struct{}

	Tracking *viewstate.Board
	Admin    *viewstate.Console
}

func NewStore(token string, deps Dependencies) *Store {
	return &Store{
		token:    token,
		deps:     deps,
		done:     make(chan struct{}),
		Tracking: viewstate.NewBoard(),
		Admin:    viewstate.NewConsole(),
	}
}

func (s *Store) Token() string {
	return s.token
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Context returns ctx carrying the session's access token.
func (s *Store) Context(ctx context.Context) context.Context {
	if s.deps.WithToken == nil {
		return ctx
	}
	return s.deps.WithToken(ctx, s.token)
}

// User returns the authenticated user once the store is Ready.
func (s *Store) User() (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil, domain.ErrSessionNotReady
	}
	u := *s.user
	return &u, nil
}

// ExpiresAt is the access token's expiry, zero when the token has none.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt
}

// Bootstrap hydrates the store. Only the first call does the work; concurrent
// callers wait for it and every later call returns its outcome.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateFailed:
		err := s.err
		s.mu.Unlock()
		return err
	case StateLoading:
		done := s.done
		s.mu.Unlock()
		select {
		case <-done:
			return s.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.state = StateLoading
	s.mu.Unlock()

	claims, user, cart, err := s.load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.err = err
	} else {
		s.state = StateReady
		s.claims = claims
		s.user = user
		s.cart = cart
	}
	close(s.done)
	return err
}

func (s *Store) load(ctx context.Context) (*utils.SessionClaims, *domain.User, domain.Cart, error) {
	log := logger.WithContext(ctx)

	claims, err := s.deps.Tokens.Parse(s.token)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, nil, domain.Cart{}, fmt.Errorf("bootstrap session: %w", domain.ErrSessionExpired)
		}
		return nil, nil, domain.Cart{}, fmt.Errorf("bootstrap session: %w: %v", domain.ErrUnauthorized, err)
	}

	var (
		user *domain.User
		cart domain.Cart
	)
	g, gctx := errgroup.WithContext(s.Context(ctx))
	g.Go(func() error {
		u, err := s.fetchAccount(gctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if claims.UserID != "" {
		g.Go(func() error {
			cart = s.loadCart(gctx, claims.UserID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, domain.Cart{}, fmt.Errorf("bootstrap session: %w", err)
	}

	if claims.UserID == "" {
		cart = s.loadCart(ctx, user.ID)
	} else if claims.UserID != user.ID {
		log.Warn().Str("token_user", claims.UserID).Str("account_user", user.ID).Msg("Token subject differs from account, reloading cart")
		cart = s.loadCart(ctx, user.ID)
	}

	log.Debug().Str("user_id", user.ID).Int("cart_lines", len(cart.Lines)).Msg("Session ready")
	return claims, user, cart, nil
}

// fetchAccount retries transient backend failures only.
func (s *Store) fetchAccount(ctx context.Context) (*domain.User, error) {
	var b backoff.BackOff
	if s.deps.NewBackOff != nil {
		b = s.deps.NewBackOff()
	} else {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	}

	var user *domain.User
	op := func() error {
		u, err := s.deps.Accounts.FetchAccount(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrBackendUnavailable) {
				return err
			}
			return backoff.Permanent(err)
		}
		user = u
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	return user, nil
}

// loadCart never fails the session: an unreadable snapshot starts an empty cart.
func (s *Store) loadCart(ctx context.Context, userID string) domain.Cart {
	empty := domain.Cart{UserID: userID}
	if s.deps.Carts == nil {
		return empty
	}
	cart, err := s.deps.Carts.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithContext(ctx).Warn().Err(err).Str("user_id", userID).Msg("Cart snapshot unavailable, starting empty")
		}
		return empty
	}
	if cart == nil {
		return empty
	}
	cart.UserID = userID
	return cart.Clone()
}

// Cart returns a copy of the session cart.
func (s *Store) Cart() (domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return domain.Cart{}, domain.ErrSessionNotReady
	}
	return s.cart.Clone(), nil
}

// UpdateCart applies fn to a copy of the cart, persists the result and only then
// makes it the session cart. A failing fn or save leaves the cart unchanged.
func (s *Store) UpdateCart(ctx context.Context, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return domain.Cart{}, domain.ErrSessionNotReady
	}

	next := s.cart.Clone()
	if err := fn(&next); err != nil {
		return domain.Cart{}, err
	}
	next.UserID = s.user.ID
	next.UpdatedAt = time.Now().UTC()

	if s.deps.Carts != nil {
		var err error
		if len(next.Lines) == 0 {
			err = s.deps.Carts.Delete(ctx, next.UserID)
		} else {
			err = s.deps.Carts.Save(ctx, &next)
		}
		if err != nil {
			return domain.Cart{}, fmt.Errorf("persist cart: %w", err)
		}
	}

	s.cart = next
	return next.Clone(), nil
}
