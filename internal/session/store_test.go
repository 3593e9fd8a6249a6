package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeAccounts struct {
	calls atomic.Int32
	fn    func(call int32) (*domain.User, error)
}

func (f *fakeAccounts) FetchAccount(ctx context.Context) (*domain.User, error) {
	n := f.calls.Add(1)
	return f.fn(n)
}

type fakeCarts struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	saveErr error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: make(map[string]domain.Cart)}
}

func (f *fakeCarts) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c = c.Clone()
	return &c, nil
}

func (f *fakeCarts) Save(ctx context.Context, cart *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.carts[cart.UserID] = cart.Clone()
	return nil
}

func (f *fakeCarts) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

func token(t *testing.T, userID string, exp time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"_id": userID,
		"exp": time.Now().Add(exp).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func deps(accounts AccountFetcher, carts domain.CartSnapshotRepository) Dependencies {
	return Dependencies{
		Accounts: accounts,
		Carts:    carts,
		Tokens:   utils.NewTokenParser(testSecret),
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		},
	}
}

func okAccount(id string) *fakeAccounts {
	return &fakeAccounts{fn: func(int32) (*domain.User, error) {
		return &domain.User{ID: id, Name: "Lan", RoleName: "NORMAL_USER"}, nil
	}}
}

func TestStore_BootstrapReady(t *testing.T) {
	carts := newFakeCarts()
	carts.carts["u-1"] = domain.Cart{UserID: "u-1", Lines: []domain.CartLine{{ID: "l-1", ProductID: "p-1", Quantity: 2, UnitPrice: decimal.NewFromInt(5)}}}

	s := NewStore(token(t, "u-1", time.Hour), deps(okAccount("u-1"), carts))
	assert.Equal(t, StateIdle, s.State())

	_, err := s.User()
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, StateReady, s.State())

	user, err := s.User()
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)

	cart, err := s.Cart()
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Count())
	assert.False(t, s.ExpiresAt().IsZero())
}

func TestStore_ExpiredTokenFailsWithoutNetwork(t *testing.T) {
	accounts := okAccount("u-1")
	s := NewStore(token(t, "u-1", -time.Minute), deps(accounts, nil))

	err := s.Bootstrap(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.True(t, domain.NeedsReauth(err))
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, int32(0), accounts.calls.Load())
}

func TestStore_GarbageTokenIsUnauthorized(t *testing.T) {
	s := NewStore("garbage", deps(okAccount("u-1"), nil))

	err := s.Bootstrap(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestStore_AccountRejectedFails(t *testing.T) {
	accounts := &fakeAccounts{fn: func(int32) (*domain.User, error) {
		return nil, &domain.APIError{StatusCode: 401, Err: domain.ErrUnauthorized}
	}}
	s := NewStore(token(t, "u-1", time.Hour), deps(accounts, newFakeCarts()))

	err := s.Bootstrap(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, int32(1), accounts.calls.Load(), "auth failures are not retried")

	assert.ErrorIs(t, s.Bootstrap(context.Background()), domain.ErrUnauthorized)
	assert.Equal(t, int32(1), accounts.calls.Load(), "a failed store does not bootstrap twice")
}

func TestStore_AccountTransientFailureIsRetried(t *testing.T) {
	accounts := &fakeAccounts{fn: func(n int32) (*domain.User, error) {
		if n == 1 {
			return nil, domain.ErrBackendUnavailable
		}
		return &domain.User{ID: "u-1"}, nil
	}}
	s := NewStore(token(t, "u-1", time.Hour), deps(accounts, newFakeCarts()))

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, int32(2), accounts.calls.Load())
}

func TestStore_ConcurrentBootstrapFetchesOnce(t *testing.T) {
	release := make(chan struct{})
	accounts := &fakeAccounts{fn: func(int32) (*domain.User, error) {
		<-release
		return &domain.User{ID: "u-1"}, nil
	}}
	s := NewStore(token(t, "u-1", time.Hour), deps(accounts, newFakeCarts()))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Bootstrap(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return s.State() == StateLoading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), accounts.calls.Load())
}

func TestStore_UpdateCartPersistsAndKeepsStateOnFailure(t *testing.T) {
	carts := newFakeCarts()
	s := NewStore(token(t, "u-1", time.Hour), deps(okAccount("u-1"), carts))
	require.NoError(t, s.Bootstrap(context.Background()))

	cart, err := s.UpdateCart(context.Background(), func(c *domain.Cart) error {
		c.Lines = append(c.Lines, domain.CartLine{ID: "l-1", ProductID: "p-1", Quantity: 1, UnitPrice: decimal.NewFromInt(7)})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count())

	saved, err := carts.Load(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, saved.Lines, 1)

	carts.saveErr = errors.New("disk full")
	_, err = s.UpdateCart(context.Background(), func(c *domain.Cart) error {
		c.Lines[0].Quantity = 5
		return nil
	})
	require.Error(t, err)

	current, err := s.Cart()
	require.NoError(t, err)
	assert.Equal(t, 1, current.Lines[0].Quantity)
}

func TestStore_UnreadableCartStartsEmpty(t *testing.T) {
	s := NewStore(token(t, "u-1", time.Hour), deps(okAccount("u-1"), nil))
	require.NoError(t, s.Bootstrap(context.Background()))

	cart, err := s.Cart()
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, "u-1", cart.UserID)
}
