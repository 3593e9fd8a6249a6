package domain

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSort fields the backend accepts.
const (
	OrderSortCreatedAt  = "createdAt"
	OrderSortTotalPrice = "totalPrice"
)

// OrderFilter mirrors the query the consoles send to the backend list endpoint.
type OrderFilter struct {
	Current     int
	PageSize    int
	Status      string // StatusTabAll or empty disables the filter
	Name        string // case-insensitive customer name match
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortField   string
	SortDesc    bool
}

// Normalize fills defaults the same way the back-office table does.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Current < 1 {
		f.Current = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	if f.SortField != OrderSortCreatedAt && f.SortField != OrderSortTotalPrice {
		f.SortField = OrderSortCreatedAt
		f.SortDesc = true
	}
	return f
}

// Query renders the filter as the backend's query string.
func (f OrderFilter) Query() url.Values {
	f = f.Normalize()

	q := url.Values{}
	q.Set("current", strconv.Itoa(f.Current))
	q.Set("pageSize", strconv.Itoa(f.PageSize))
	if f.Status != "" && f.Status != StatusTabAll {
		q.Set("status", f.Status)
	}
	if f.Name != "" {
		q.Set("name", fmt.Sprintf("/%s/i", regexp.QuoteMeta(f.Name)))
	}
	if f.CreatedFrom != nil {
		q.Set("createdAt>", f.CreatedFrom.UTC().Format(time.RFC3339Nano))
	}
	if f.CreatedTo != nil {
		q.Set("createdAt<", f.CreatedTo.UTC().Format(time.RFC3339Nano))
	}
	sort := f.SortField
	if f.SortDesc {
		sort = "-" + sort
	}
	q.Set("sort", sort)
	return q
}

// Matches reports whether an order satisfies the filter's predicates. Paging and
// sorting are ignored.
func (f OrderFilter) Matches(o Order) bool {
	if f.Status != "" && f.Status != StatusTabAll && string(o.Status) != f.Status {
		return false
	}
	if f.Name != "" && !containsFold(o.CustomerName, f.Name) {
		return false
	}
	if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// --- Order Entities ---

type Order struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address"`
	PaymentType  string          `json:"paymentType"`
	Items        []OrderItem     `json:"items"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Variant     string          `json:"variant,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"` // Price at time of purchase
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems is the order total at creation time.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.CustomerID == userID
}

// Clone returns a deep copy so views never share item slices with the caller.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}

// NewOrder is what checkout submits.
type NewOrder struct {
	Name        string
	Address     string
	Phone       string
	PaymentType string
	Items       []OrderItem
	TotalPrice  decimal.Decimal
}

// --- Interfaces ---

// OrderGateway is the slice of the backend the order surfaces depend on.
type OrderGateway interface {
	ListOrders(ctx context.Context, filter OrderFilter) (Page[Order], error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	CreateOrder(ctx context.Context, order NewOrder) (*Order, error)
	// ApplyTransition issues the PATCH for op. The returned status is empty when the
	// backend's answer does not carry one.
	ApplyTransition(ctx context.Context, orderID string, op Operation) (OrderStatus, error)
	// History is the purchase history of the authenticated user.
	History(ctx context.Context) ([]Order, error)
}
