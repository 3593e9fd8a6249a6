package v1

import (
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
)

type CartHandler struct {
	responder
	cartUC *usecase.CartUsecase
}

func NewCartHandler(cartUC *usecase.CartUsecase, sessions SessionEvicter) *CartHandler {
	return &CartHandler{responder: responder{sessions: sessions}, cartUC: cartUC}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.cartUC.Get(store)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"productId"`
		Variant   string `json:"variant"`
		Quantity  int    `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.cartUC.Add(r.Context(), store, req.ProductID, req.Variant, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.cartUC.SetQuantity(r.Context(), store, lineID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.cartUC.Remove(r.Context(), store, lineID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.cartUC.Clear(r.Context(), store)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

// Checkout submits the cart as a new PENDING order.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	var form domain.CheckoutForm
	if !h.decode(w, r, &form) {
		return
	}

	order, err := h.cartUC.Checkout(r.Context(), store, form)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, order)
}
