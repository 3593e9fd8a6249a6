package usecase

import (
	"context"
	"sync"
	"time"

	"storefront-console/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeOrders struct {
	mu sync.Mutex

	orders  []domain.Order
	listErr error
	filters []domain.OrderFilter

	// apply overrides the default behaviour of moving the order along the table.
	apply      func(ctx context.Context, id string, op domain.Operation) (domain.OrderStatus, error)
	applyCalls int
	getCalls   int
	getErr     error

	created  []domain.NewOrder
	history  []domain.Order
	createFn func(order domain.NewOrder) (*domain.Order, error)
}

func (f *fakeOrders) ListOrders(ctx context.Context, filter domain.OrderFilter) (domain.Page[domain.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return domain.Page[domain.Order]{}, f.listErr
	}
	out := make([]domain.Order, len(f.orders))
	for i, o := range f.orders {
		out[i] = o.Clone()
	}
	return domain.Page[domain.Order]{
		Meta:   domain.Meta{Current: filter.Current, PageSize: filter.PageSize, Pages: 1, Total: len(out)},
		Result: out,
	}, nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, o := range f.orders {
		if o.ID == id {
			c := o.Clone()
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrders) CreateOrder(ctx context.Context, order domain.NewOrder) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, order)
	if f.createFn != nil {
		return f.createFn(order)
	}
	return &domain.Order{ID: "o-new", Status: domain.OrderStatusPending, TotalPrice: order.TotalPrice, Items: order.Items}, nil
}

func (f *fakeOrders) ApplyTransition(ctx context.Context, orderID string, op domain.Operation) (domain.OrderStatus, error) {
	f.mu.Lock()
	f.applyCalls++
	apply := f.apply
	f.mu.Unlock()

	if apply != nil {
		return apply(ctx, orderID, op)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.orders {
		if o.ID != orderID {
			continue
		}
		for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleCustomer} {
			if t, ok := domain.Lookup(o.Status, op, role); ok {
				f.orders[i].Status = t.To
				return "", nil
			}
		}
		return "", &domain.APIError{StatusCode: 409, Err: domain.ErrTransitionRejected}
	}
	return "", domain.ErrNotFound
}

func (f *fakeOrders) History(ctx context.Context) ([]domain.Order, error) {
	return f.history, nil
}

func (f *fakeOrders) setStatus(id string, status domain.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders[i].Status = status
		}
	}
}

func (f *fakeOrders) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

func order(id, customerID string, status domain.OrderStatus) domain.Order {
	return domain.Order{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: "Customer " + customerID,
		Phone:        "0912345678",
		Address:      "12 Market St",
		PaymentType:  domain.PaymentTypeCOD,
		Items: []domain.OrderItem{
			{ProductID: "p-1", ProductName: "Tee", Variant: "M - Red", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		},
		TotalPrice: decimal.NewFromInt(200),
		Status:     status,
		CreatedAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}
