package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"github.com/goccy/go-json"
)

const ordersPath = "/api/v1/order"

func (c *Client) ListOrders(ctx context.Context, filter domain.OrderFilter) (domain.Page[domain.Order], error) {
	var data wirePage[wireOrder]
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  ordersPath,
		path:   ordersPath,
		query:  filter.Query(),
	}, &data)
	if err != nil {
		return domain.Page[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}

	return domain.Page[domain.Order]{Meta: data.Meta, Result: toOrders(ctx, data.Result)}, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var data wireOrder
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  ordersPath + "/{id}",
		path:   ordersPath + "/" + url.PathEscape(id),
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	order, err := data.toDomain()
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &order, nil
}

func (c *Client) History(ctx context.Context) ([]domain.Order, error) {
	var data []wireOrder
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/api/v1/history",
		path:   "/api/v1/history",
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return toOrders(ctx, data), nil
}

// CreateOrder submits a checkout. The backend answers with the new id only, the
// rest of the order is what was sent.
func (c *Client) CreateOrder(ctx context.Context, order domain.NewOrder) (*domain.Order, error) {
	body := createOrderBody{
		Name:       order.Name,
		Address:    order.Address,
		Phone:      order.Phone,
		TotalPrice: order.TotalPrice,
		Type:       order.PaymentType,
		Detail:     make([]wireOrderItem, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		body.Detail = append(body.Detail, wireOrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Variant:     it.Variant,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice,
		})
	}

	var data created
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  ordersPath,
		path:   ordersPath,
		body:   body,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &domain.Order{
		ID:           data.ID,
		CustomerName: order.Name,
		Phone:        order.Phone,
		Address:      order.Address,
		PaymentType:  order.PaymentType,
		Items:        order.Items,
		TotalPrice:   order.TotalPrice,
		Status:       domain.OrderStatusPending,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.CreatedAt,
	}, nil
}

type transitionEndpoint struct {
	action string
	body   any
}

// endpoints maps each operation onto its backend PATCH action. Ship and deliver
// share the admin status endpoint.
var endpoints = map[domain.Operation]transitionEndpoint{
	domain.OpShip:               {action: "admin-status", body: map[string]string{"status": string(domain.OrderStatusShipping)}},
	domain.OpDeliver:            {action: "admin-status", body: map[string]string{"status": string(domain.OrderStatusDelivered)}},
	domain.OpCancel:             {action: "cancel"},
	domain.OpConfirmReceived:    {action: "confirm-received"},
	domain.OpRequestReturn:      {action: "request-return"},
	domain.OpApproveReturn:      {action: "admin-approve-return"},
	domain.OpRejectReturn:       {action: "admin-reject-return"},
	domain.OpMarkReturnReceived: {action: "admin-return-received"},
}

// ApplyTransition issues the PATCH for op. A 409, or a 400/422 whose message says
// the order is in the wrong state, is reported as ErrTransitionRejected.
func (c *Client) ApplyTransition(ctx context.Context, orderID string, op domain.Operation) (domain.OrderStatus, error) {
	ep, ok := endpoints[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}

	var data json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  ordersPath + "/{id}/" + ep.action,
		path:   ordersPath + "/" + url.PathEscape(orderID) + "/" + ep.action,
		body:   ep.body,
	}, &data)
	if err != nil {
		return "", fmt.Errorf("%s order %s: %w", op, orderID, classifyTransitionError(err))
	}

	return reportedStatus(ctx, data), nil
}

func classifyTransitionError(err error) error {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Err != nil {
		return err
	}
	if (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity) &&
		isStateMismatch(apiErr.Message) {
		return &domain.APIError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: domain.ErrTransitionRejected}
	}
	return err
}

var stateMismatchHints = []string{"status", "state", "not allowed", "cannot", "invalid transition"}

func isStateMismatch(message string) bool {
	m := strings.ToLower(message)
	for _, hint := range stateMismatchHints {
		if strings.Contains(m, hint) {
			return true
		}
	}
	return false
}

// reportedStatus extracts the status the backend reports after a transition, if
// any. Unknown values are dropped so the caller falls back to the table result.
func reportedStatus(ctx context.Context, data json.RawMessage) domain.OrderStatus {
	if len(data) == 0 || data[0] != '{' {
		return ""
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Status == "" {
		return ""
	}
	status, err := domain.ParseOrderStatus(body.Status)
	if err != nil {
		logger.WithContext(ctx).Warn().Str("status", body.Status).Msg("Backend reported an unknown order status")
		return ""
	}
	return status
}
