package v1

import (
	"net/http"

	"storefront-console/internal/delivery/http/middleware"
	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
	"storefront-console/internal/viewstate"
	"storefront-console/pkg/utils"
)

// OrderHandler serves the customer's order tracking page.
type OrderHandler struct {
	responder
	trackingUC *usecase.OrderTrackingUsecase
}

func NewOrderHandler(trackingUC *usecase.OrderTrackingUsecase, sessions SessionEvicter) *OrderHandler {
	return &OrderHandler{responder: responder{sessions: sessions}, trackingUC: trackingUC}
}

// ListOrders (re)mounts the tracking board with the caller's latest orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	store, user, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.trackingUC.Load(r.Context(), store.Tracking, user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

// View renders the mounted board, e.g. to pick up pending notifications.
func (h *OrderHandler) View(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.ok(w, h.trackingUC.View(store.Tracking))
}

// Unmount discards the board; transitions still in flight will not be applied.
func (h *OrderHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	store.Tracking.Unmount()
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	store, user, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, op, gen, ok := parseInvoke(w, r)
	if !ok {
		return
	}

	view, err := h.trackingUC.Invoke(r.Context(), store.Tracking, user, gen, orderID, op)
	h.actionResult(w, r, view, err)
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	orders, err := h.trackingUC.History(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, orders)
}

// actionResult answers an order action. A failure that still produced a view
// carries it next to the error so the client can re-render.
func (h responder) actionResult(w http.ResponseWriter, r *http.Request, view *usecase.OrderBoardView, err error) {
	if err == nil {
		h.ok(w, view)
		return
	}
	if view == nil || domain.NeedsReauth(err) {
		h.fail(w, r, err)
		return
	}
	status, body := middleware.ErrorStatus(err)
	utils.WriteJSON(w, status, struct {
		utils.ErrorBody
		View *usecase.OrderBoardView `json:"view"`
	}{body, view})
}

// parseInvoke reads {id} and {op} from the path and the rendered generation from
// the optional JSON body.
func parseInvoke(w http.ResponseWriter, r *http.Request) (string, domain.Operation, viewstate.Generation, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return "", "", 0, false
	}
	op, err := domain.ParseOperation(r.PathValue("op"))
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return "", "", 0, false
	}

	var req struct {
		Generation viewstate.Generation `json:"generation"`
	}
	if r.ContentLength > 0 {
		if err := utils.DecodeJSON(r, &req, maxJSONBody); err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return "", "", 0, false
		}
	}
	return id, op, req.Generation, true
}
