package usecase

import (
	"errors"
	"fmt"

	"storefront-console/internal/domain"
	"storefront-console/internal/viewstate"
)

const (
	levelSuccess = "success"
	levelError   = "error"
)

// OrderRow is one rendered order with the controls its surface offers.
type OrderRow struct {
	Order    domain.Order     `json:"order"`
	Controls []domain.Control `json:"controls"`
}

// OrderBoardView is what an order surface renders: the mounted page, its rows and
// the notifications raised since the last render.
type OrderBoardView struct {
	Generation    viewstate.Generation  `json:"generation"`
	Meta          domain.Meta           `json:"meta"`
	Rows          []OrderRow            `json:"rows"`
	Notifications []domain.Notification `json:"notifications"`
}

func renderBoard(board *viewstate.Board, controls func(domain.Order) []domain.Control) *OrderBoardView {
	orders := board.Orders()
	view := &OrderBoardView{
		Generation:    board.Generation(),
		Meta:          board.Meta(),
		Rows:          make([]OrderRow, 0, len(orders)),
		Notifications: board.DrainNotifications(),
	}
	for _, o := range orders {
		view.Rows = append(view.Rows, OrderRow{Order: o, Controls: controls(o)})
	}
	if view.Notifications == nil {
		view.Notifications = []domain.Notification{}
	}
	return view
}

// transitionFailed queues the single error notification of a failed transition
// and, after a rejection, records the status the backend reports now.
func transitionFailed(board *viewstate.Board, gen viewstate.Generation, orderID string, err error) {
	board.Notify(gen, domain.Notification{
		Level:   levelError,
		Message: describeTransitionError(err),
		OrderID: orderID,
	})

	var terr *domain.TransitionError
	if errors.As(err, &terr) && terr.Current != "" {
		_ = board.StatusRefreshed(gen, orderID, terr.Current)
	}
}

func describeTransitionError(err error) string {
	var current domain.OrderStatus
	var terr *domain.TransitionError
	if errors.As(err, &terr) {
		current = terr.Current
	}

	switch {
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return "This action is not available for the order's current status"
	case errors.Is(err, domain.ErrNotOrderOwner):
		return "You can only change your own orders"
	case errors.Is(err, domain.ErrTransitionInFlight):
		return "An update for this order is already in progress"
	case errors.Is(err, domain.ErrTransitionTimeout):
		return "The update timed out, please try again"
	case errors.Is(err, domain.ErrTransitionRejected):
		if current != "" {
			return fmt.Sprintf("The store rejected the update, the order is now %s", current)
		}
		return "The store rejected the update"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "The store is unreachable, please try again"
	case domain.NeedsReauth(err):
		return "Your session has ended, please sign in again"
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "The update failed"
}

func opLabel(op domain.Operation) string {
	switch op {
	case domain.OpShip:
		return "Order marked as shipping"
	case domain.OpDeliver:
		return "Order marked as delivered"
	case domain.OpCancel:
		return "Order canceled"
	case domain.OpConfirmReceived:
		return "Order confirmed as received"
	case domain.OpRequestReturn:
		return "Return requested"
	case domain.OpApproveReturn:
		return "Return approved"
	case domain.OpRejectReturn:
		return "Return rejected"
	case domain.OpMarkReturnReceived:
		return "Returned goods received"
	}
	return "Order updated"
}
