package usecase

import (
	"context"
	"errors"
	"fmt"

	"storefront-console/internal/domain"
	"storefront-console/internal/viewstate"
	"storefront-console/pkg/logger"
)

// TrackingPageSize is how many of the customer's most recent orders are loaded.
const TrackingPageSize = 50

// OrderTrackingUsecase backs the customer's "my orders" page.
type OrderTrackingUsecase struct {
	orders    domain.OrderGateway
	lifecycle *OrderLifecycleUsecase
}

func NewOrderTrackingUsecase(orders domain.OrderGateway, lifecycle *OrderLifecycleUsecase) *OrderTrackingUsecase {
	return &OrderTrackingUsecase{orders: orders, lifecycle: lifecycle}
}

// Load fetches the user's latest orders and mounts them on board. Orders of other
// customers that the backend may return are dropped.
func (u *OrderTrackingUsecase) Load(ctx context.Context, board *viewstate.Board, user *domain.User) (*OrderBoardView, error) {
	page, err := u.orders.ListOrders(ctx, domain.OrderFilter{
		Current:   1,
		PageSize:  TrackingPageSize,
		SortField: domain.OrderSortCreatedAt,
		SortDesc:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	owned := make([]domain.Order, 0, len(page.Result))
	for _, o := range page.Result {
		if o.OwnedBy(user.ID) {
			owned = append(owned, o)
		}
	}
	if dropped := len(page.Result) - len(owned); dropped > 0 {
		logger.WithContext(ctx).Debug().Int("dropped", dropped).Str("user_id", user.ID).Msg("Dropped orders of other customers")
	}

	board.Mount(domain.Page[domain.Order]{Meta: page.Meta, Result: owned})
	return u.View(board), nil
}

// View renders the mounted board without touching the backend.
func (u *OrderTrackingUsecase) View(board *viewstate.Board) *OrderBoardView {
	return renderBoard(board, func(o domain.Order) []domain.Control {
		return u.lifecycle.Controls(o, domain.RoleCustomer, false)
	})
}

// Invoke runs op on one order of the board as the owning customer. On success only
// that order's status is patched; on failure the board is left as it was and one
// error notification is queued. gen is the generation the caller rendered; zero
// means the current one.
func (u *OrderTrackingUsecase) Invoke(ctx context.Context, board *viewstate.Board, user *domain.User, gen viewstate.Generation, orderID string, op domain.Operation) (*OrderBoardView, error) {
	if gen == 0 {
		gen = board.Generation()
	}
	if gen != board.Generation() || !board.Mounted() {
		return nil, domain.ErrStaleView
	}
	order, ok := board.Order(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}

	status, err := u.lifecycle.Apply(ctx, &order, op, domain.CustomerActor(user.ID))
	if err != nil {
		transitionFailed(board, gen, orderID, err)
		return u.View(board), err
	}

	if err := board.TransitionApplied(gen, orderID, status); err != nil {
		if errors.Is(err, domain.ErrStaleView) {
			logger.WithContext(ctx).Debug().Str("order_id", orderID).Msg("Transition finished after the view changed, not applied")
			return u.View(board), nil
		}
		return nil, err
	}
	board.Notify(gen, domain.Notification{Level: levelSuccess, Message: opLabel(op), OrderID: orderID})
	return u.View(board), nil
}

// History is the customer's purchase history page.
func (u *OrderTrackingUsecase) History(ctx context.Context) ([]domain.Order, error) {
	orders, err := u.orders.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return orders, nil
}
