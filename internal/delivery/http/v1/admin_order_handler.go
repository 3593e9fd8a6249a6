package v1

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
	"storefront-console/pkg/utils"
)

type AdminOrderHandler struct {
	responder
	adminUC *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(adminUC *usecase.AdminOrderUsecase, sessions SessionEvicter) *AdminOrderHandler {
	return &AdminOrderHandler{responder: responder{sessions: sessions}, adminUC: adminUC}
}

// ListOrders loads the console with the filter of the query string.
func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	filter, err := parseOrderFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.adminUC.List(r.Context(), store.Admin, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, view)
}

func (h *AdminOrderHandler) View(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.ok(w, h.adminUC.View(store.Admin))
}

func (h *AdminOrderHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	store, admin, ok := h.caller(w, r)
	if !ok {
		return
	}
	orderID, op, gen, ok := parseInvoke(w, r)
	if !ok {
		return
	}

	view, err := h.adminUC.Invoke(r.Context(), store.Admin, admin, gen, orderID, op)
	h.actionResult(w, r, view, err)
}

// Export renders the filtered orders as a spreadsheet. Uploaded exports answer
// with their URL, the rest are streamed as an attachment.
func (h *AdminOrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	export, err := h.adminUC.Export(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if export.URL != "" {
		h.ok(w, export)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(export.Rows))
	w.Header().Set("X-Export-Truncated", strconv.FormatBool(export.Truncated))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Content)
}

// parseOrderFilter reads status, name, from, to, sort, current and pageSize.
// Dates are RFC 3339 or plain 2006-01-02; a plain "to" date covers the whole day.
func parseOrderFilter(q url.Values) (domain.OrderFilter, error) {
	filter := domain.OrderFilter{
		Current:  utils.ParseInt(q.Get("current"), 1),
		PageSize: utils.ParseInt(q.Get("pageSize"), 10),
		Status:   strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		Name:     strings.TrimSpace(q.Get("name")),
	}

	v := domain.NewValidationError()
	if filter.Status != "" && filter.Status != domain.StatusTabAll {
		if _, err := domain.ParseOrderStatus(filter.Status); err != nil {
			v.Add("status", "unknown order status")
		}
	}
	if from, err := parseDate(q.Get("from"), false); err != nil {
		v.Add("from", "expected a date")
	} else {
		filter.CreatedFrom = from
	}
	if to, err := parseDate(q.Get("to"), true); err != nil {
		v.Add("to", "expected a date")
	} else {
		filter.CreatedTo = to
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		v.Add("to", "must not be before from")
	}
	if sort := q.Get("sort"); sort != "" {
		filter.SortDesc = strings.HasPrefix(sort, "-")
		filter.SortField = strings.TrimPrefix(sort, "-")
	}
	return filter.Normalize(), v.OrNil()
}

func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
