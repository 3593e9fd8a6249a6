package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_AppliesEveryTableRow(t *testing.T) {
	for _, tr := range domain.Transitions() {
		t.Run(string(tr.From)+"/"+string(tr.Op), func(t *testing.T) {
			o := order("o-1", "c-1", tr.From)
			orders := &fakeOrders{orders: []domain.Order{o}}
			uc := NewOrderLifecycleUsecase(orders, time.Second)

			actor := domain.AdminActor("admin-1")
			if tr.Role == domain.RoleCustomer {
				actor = domain.CustomerActor("c-1")
			}

			status, err := uc.Apply(context.Background(), &o, tr.Op, actor)
			require.NoError(t, err)
			assert.Equal(t, tr.To, status)
			assert.Equal(t, tr.From, o.Status, "the input order is not modified")
			assert.Equal(t, 1, orders.calls())
		})
	}
}

func TestLifecycle_RejectsIllegalTriplesWithoutNetwork(t *testing.T) {
	for _, status := range domain.OrderStatuses {
		for _, op := range domain.Operations {
			for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleCustomer} {
				if _, ok := domain.Lookup(status, op, role); ok {
					continue
				}
				o := order("o-1", "c-1", status)
				orders := &fakeOrders{orders: []domain.Order{o}}
				uc := NewOrderLifecycleUsecase(orders, time.Second)

				_, err := uc.Apply(context.Background(), &o, op, domain.Actor{UserID: "c-1", Role: role})
				require.ErrorIs(t, err, domain.ErrTransitionNotAllowed, "%s %s %s", status, op, role)
				assert.Zero(t, orders.calls())
			}
		}
	}
}

func TestLifecycle_CustomerMustOwnOrder(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusPending)
	orders := &fakeOrders{orders: []domain.Order{o}}
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	_, err := uc.Apply(context.Background(), &o, domain.OpCancel, domain.CustomerActor("c-2"))
	assert.ErrorIs(t, err, domain.ErrNotOrderOwner)
	assert.Zero(t, orders.calls())
}

func TestLifecycle_ServerReportedStatus(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusDelivered)

	orders := &fakeOrders{orders: []domain.Order{o}, apply: func(context.Context, string, domain.Operation) (domain.OrderStatus, error) {
		return domain.OrderStatusReturned, nil
	}}
	status, err := NewOrderLifecycleUsecase(orders, time.Second).Apply(context.Background(), &o, domain.OpRequestReturn, domain.CustomerActor("c-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, status, "simplified return flow is accepted")

	orders.apply = func(context.Context, string, domain.Operation) (domain.OrderStatus, error) {
		return domain.OrderStatusCanceled, nil
	}
	status, err = NewOrderLifecycleUsecase(orders, time.Second).Apply(context.Background(), &o, domain.OpRequestReturn, domain.CustomerActor("c-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturnRequested, status, "an unexpected report falls back to the table")
}

func TestLifecycle_DuplicateSubmissionIsGuarded(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusPending)
	started := make(chan struct{})
	release := make(chan struct{})
	orders := &fakeOrders{orders: []domain.Order{o}, apply: func(context.Context, string, domain.Operation) (domain.OrderStatus, error) {
		close(started)
		<-release
		return "", nil
	}}
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := uc.Apply(context.Background(), &o, domain.OpShip, domain.AdminActor("a-1"))
		done <- err
	}()
	<-started

	assert.True(t, uc.InFlight("o-1"))
	for _, c := range uc.Controls(o, domain.RoleAdmin, true) {
		assert.False(t, c.Enabled)
		assert.True(t, c.InFlight)
	}

	_, err := uc.Apply(context.Background(), &o, domain.OpShip, domain.AdminActor("a-1"))
	assert.ErrorIs(t, err, domain.ErrTransitionInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.calls())
	assert.False(t, uc.InFlight("o-1"))
}

func TestLifecycle_Timeout(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusShipping)
	orders := &fakeOrders{orders: []domain.Order{o}, apply: func(ctx context.Context, _ string, _ domain.Operation) (domain.OrderStatus, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	uc := NewOrderLifecycleUsecase(orders, 20*time.Millisecond)

	_, err := uc.Apply(context.Background(), &o, domain.OpDeliver, domain.AdminActor("a-1"))
	require.ErrorIs(t, err, domain.ErrTransitionTimeout)

	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.OrderStatusShipping, terr.From)
	assert.False(t, uc.InFlight("o-1"))
}

func TestLifecycle_CallerCancelIsNotTimeout(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusShipping)
	orders := &fakeOrders{orders: []domain.Order{o}, apply: func(ctx context.Context, _ string, _ domain.Operation) (domain.OrderStatus, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := uc.Apply(ctx, &o, domain.OpDeliver, domain.AdminActor("a-1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrTransitionTimeout)
}

func TestLifecycle_RejectionReportsCurrentStatus(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusPending)
	orders := &fakeOrders{orders: []domain.Order{o}}
	orders.setStatus("o-1", domain.OrderStatusCanceled)
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	_, err := uc.Apply(context.Background(), &o, domain.OpShip, domain.AdminActor("a-1"))
	require.ErrorIs(t, err, domain.ErrTransitionRejected)

	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.OrderStatusCanceled, terr.Current)
	assert.Equal(t, 1, orders.getCalls)
	assert.Contains(t, err.Error(), "now CANCELED")
}

func TestLifecycle_RejectionWithUnreadableOrder(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusPending)
	orders := &fakeOrders{
		orders: []domain.Order{o},
		getErr: errors.New("boom"),
		apply: func(context.Context, string, domain.Operation) (domain.OrderStatus, error) {
			return "", &domain.APIError{StatusCode: 409, Err: domain.ErrTransitionRejected}
		},
	}
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	_, err := uc.Apply(context.Background(), &o, domain.OpShip, domain.AdminActor("a-1"))
	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Empty(t, terr.Current)
}

func TestLifecycle_TransportFailureSurfacesUnchanged(t *testing.T) {
	o := order("o-1", "c-1", domain.OrderStatusPending)
	orders := &fakeOrders{orders: []domain.Order{o}, apply: func(context.Context, string, domain.Operation) (domain.OrderStatus, error) {
		return "", domain.ErrBackendUnavailable
	}}
	uc := NewOrderLifecycleUsecase(orders, time.Second)

	_, err := uc.Apply(context.Background(), &o, domain.OpCancel, domain.CustomerActor("c-1"))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Equal(t, 1, orders.calls(), "failures are not retried")
	assert.Zero(t, orders.getCalls)
}
