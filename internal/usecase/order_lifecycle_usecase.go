package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const DefaultTransitionTimeout = 10 * time.Second

// OrderLifecycleUsecase applies order transitions. It gates every call against the
// transition table before touching the network, lets at most one transition per
// order run at a time and bounds each call with a timeout.
type OrderLifecycleUsecase struct {
	orders  domain.OrderGateway
	timeout time.Duration

	mu       sync.Mutex
	inFlight map[string]domain.Operation

	refetch singleflight.Group
}

func NewOrderLifecycleUsecase(orders domain.OrderGateway, timeout time.Duration) *OrderLifecycleUsecase {
	if timeout <= 0 {
		timeout = DefaultTransitionTimeout
	}
	return &OrderLifecycleUsecase{
		orders:   orders,
		timeout:  timeout,
		inFlight: make(map[string]domain.Operation),
	}
}

// Apply runs op on order for actor and returns the order's new status. The order
// value itself is not modified; callers patch their own view with the result.
//
// Failures are *domain.TransitionError values wrapping one of
// ErrTransitionNotAllowed, ErrNotOrderOwner, ErrTransitionInFlight,
// ErrTransitionRejected, ErrTransitionTimeout or the gateway's error. After a
// rejection the error's Current field holds the status re-read from the backend.
func (u *OrderLifecycleUsecase) Apply(ctx context.Context, order *domain.Order, op domain.Operation, actor domain.Actor) (domain.OrderStatus, error) {
	log := logger.WithContext(ctx)

	t, err := domain.Authorize(order, op, actor)
	if err != nil {
		transitionsTotal.WithLabelValues(string(op), outcomeNotAllowed).Inc()
		return "", err
	}

	if !u.acquire(order.ID, op) {
		transitionsTotal.WithLabelValues(string(op), outcomeInFlight).Inc()
		return "", &domain.TransitionError{
			OrderID: order.ID,
			Op:      op,
			From:    order.Status,
			Err:     domain.ErrTransitionInFlight,
		}
	}
	defer u.release(order.ID)

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	reported, err := u.orders.ApplyTransition(callCtx, order.ID, op)
	transitionDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	if err != nil {
		terr := &domain.TransitionError{OrderID: order.ID, Op: op, From: order.Status, Err: err}
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			terr.Err = fmt.Errorf("%w after %s: %w", domain.ErrTransitionTimeout, u.timeout, err)
			transitionsTotal.WithLabelValues(string(op), outcomeTimeout).Inc()
		case errors.Is(err, domain.ErrTransitionRejected):
			terr.Current = u.currentStatus(ctx, order.ID)
			transitionsTotal.WithLabelValues(string(op), outcomeRejected).Inc()
		default:
			transitionsTotal.WithLabelValues(string(op), outcomeFailed).Inc()
		}
		log.Warn().
			Err(err).
			Str("order_id", order.ID).
			Str("op", string(op)).
			Str("from", string(order.Status)).
			Str("current", string(terr.Current)).
			Msg("Order transition failed")
		return "", terr
	}

	status := t.To
	if reported != "" {
		if t.Accepts(reported) {
			status = reported
		} else {
			log.Warn().
				Str("order_id", order.ID).
				Str("op", string(op)).
				Str("reported", string(reported)).
				Str("expected", string(t.To)).
				Msg("Backend reported an unexpected status, using the table result")
		}
	}

	transitionsTotal.WithLabelValues(string(op), outcomeApplied).Inc()
	log.Info().
		Str("order_id", order.ID).
		Str("op", string(op)).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("Order transition applied")
	return status, nil
}

// InFlight reports whether a transition for orderID is currently running.
func (u *OrderLifecycleUsecase) InFlight(orderID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, busy := u.inFlight[orderID]
	return busy
}

// Controls derives the controls of one order for role, disabling every control
// while a transition for the order is running.
func (u *OrderLifecycleUsecase) Controls(order domain.Order, role domain.Role, showDisabled bool) []domain.Control {
	controls := domain.Controls(order.Status, role, showDisabled)
	if u.InFlight(order.ID) {
		for i := range controls {
			controls[i].Enabled = false
			controls[i].InFlight = true
		}
	}
	return controls
}

func (u *OrderLifecycleUsecase) acquire(orderID string, op domain.Operation) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, busy := u.inFlight[orderID]; busy {
		return false
	}
	u.inFlight[orderID] = op
	return true
}

func (u *OrderLifecycleUsecase) release(orderID string) {
	u.mu.Lock()
	delete(u.inFlight, orderID)
	u.mu.Unlock()
}

// currentStatus re-reads an order after a rejection. Concurrent callers for the
// same order share one backend call. An empty status means it could not be read.
func (u *OrderLifecycleUsecase) currentStatus(ctx context.Context, orderID string) domain.OrderStatus {
	ch := u.refetch.DoChan(orderID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
		defer cancel()
		order, err := u.orders.GetOrder(fetchCtx, orderID)
		if err != nil {
			return domain.OrderStatus(""), err
		}
		return order.Status, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			logger.WithContext(ctx).Warn().Err(res.Err).Str("order_id", orderID).Msg("Re-reading order after rejection failed")
			return ""
		}
		return res.Val.(domain.OrderStatus)
	case <-ctx.Done():
		return ""
	}
}
