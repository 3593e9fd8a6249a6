package backend

import (
	"context"
	"fmt"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

func init() {
	// The backend stores money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ref is a reference the backend sends either as a bare id or as a populated
// document.
type ref struct {
	ID    string
	Name  string
	Email string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var doc struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	r.ID, r.Name, r.Email = doc.ID, doc.Name, doc.Email
	return nil
}

type wirePage[T any] struct {
	Meta   domain.Meta `json:"meta"`
	Result []T         `json:"result"`
}

// --- Users ---

type wireUser struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	Role      ref       `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w wireUser) toDomain() domain.User {
	roleName := w.Role.Name
	if roleName == "" {
		roleName = w.Role.ID
	}
	return domain.User{
		ID:       w.ID,
		Name:     w.Name,
		Email:    w.Email,
		Phone:    w.Phone,
		Avatar:   w.Avatar,
		RoleID:   w.Role.ID,
		RoleName: roleName,
		Created:  w.CreatedAt,
	}
}

type wireLogin struct {
	AccessToken string   `json:"access_token"`
	User        wireUser `json:"user"`
}

type wireAccount struct {
	User wireUser `json:"user"`
}

type wirePermission struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	APIPath string `json:"apiPath"`
	Method  string `json:"method"`
	Module  string `json:"module"`
}

func (w wirePermission) toDomain() domain.Permission {
	return domain.Permission{ID: w.ID, Name: w.Name, APIPath: w.APIPath, Method: w.Method, Module: w.Module}
}

type wireRoleDef struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Permissions []ref  `json:"permissions"`
}

func (w wireRoleDef) toDomain() domain.RoleDef {
	ids := make([]string, 0, len(w.Permissions))
	for _, p := range w.Permissions {
		ids = append(ids, p.ID)
	}
	return domain.RoleDef{ID: w.ID, Name: w.Name, Description: w.Description, Permissions: ids}
}

// --- Catalog ---

type wireProduct struct {
	ID        string           `json:"_id"`
	Name      string           `json:"name"`
	MainText  string           `json:"mainText"`
	Desc      string           `json:"desc"`
	Price     decimal.Decimal  `json:"price"`
	Quantity  int              `json:"quantity"`
	Sold      int              `json:"sold"`
	Category  ref              `json:"category"`
	Thumbnail string           `json:"thumbnail"`
	Slider    []string         `json:"slider"`
	Variants  []domain.Variant `json:"variants"`
}

func (w wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:         w.ID,
		Name:       w.Name,
		MainText:   w.MainText,
		Desc:       w.Desc,
		Price:      w.Price,
		Quantity:   w.Quantity,
		Sold:       w.Sold,
		CategoryID: w.Category.ID,
		Thumbnail:  w.Thumbnail,
		Slider:     w.Slider,
		Variants:   w.Variants,
	}
}

type wireCategory struct {
	ID             string         `json:"_id"`
	Name           string         `json:"name"`
	ParentCategory *ref           `json:"parentCategory"`
	Children       []wireCategory `json:"children"`
}

func (w wireCategory) toDomain() domain.Category {
	c := domain.Category{ID: w.ID, Name: w.Name}
	if w.ParentCategory != nil && w.ParentCategory.ID != "" {
		parent := w.ParentCategory.ID
		c.ParentID = &parent
	}
	for _, child := range w.Children {
		c.Children = append(c.Children, child.toDomain())
	}
	return c
}

// --- Orders ---

type wireOrderItem struct {
	ProductID   string          `json:"_id"`
	ProductName string          `json:"productName"`
	Variant     string          `json:"variant,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type wireOrder struct {
	ID         string          `json:"_id"`
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	Phone      string          `json:"phone"`
	Type       string          `json:"type"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     string          `json:"status"`
	Detail     []wireOrderItem `json:"detail"`
	CreatedBy  ref             `json:"createdBy"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// toDomain rejects orders whose status is not one of the known values.
func (w wireOrder) toDomain() (domain.Order, error) {
	status, err := domain.ParseOrderStatus(w.Status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", w.ID, err)
	}
	items := make([]domain.OrderItem, 0, len(w.Detail))
	for _, d := range w.Detail {
		items = append(items, domain.OrderItem{
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Variant:     d.Variant,
			Quantity:    d.Quantity,
			UnitPrice:   d.Price,
		})
	}
	return domain.Order{
		ID:           w.ID,
		CustomerID:   w.CreatedBy.ID,
		CustomerName: w.Name,
		Phone:        w.Phone,
		Address:      w.Address,
		PaymentType:  w.Type,
		Items:        items,
		TotalPrice:   w.TotalPrice,
		Status:       status,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}, nil
}

// toOrders converts a backend list. A row with a status the console does not
// know is dropped with a warning; the rest of the page still renders.
func toOrders(ctx context.Context, ws []wireOrder) []domain.Order {
	orders := make([]domain.Order, 0, len(ws))
	for _, w := range ws {
		o, err := w.toDomain()
		if err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("order_id", w.ID).Str("status", w.Status).Msg("Skipping order with unknown status")
			continue
		}
		orders = append(orders, o)
	}
	return orders
}

type createOrderBody struct {
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	Phone      string          `json:"phone"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Type       string          `json:"type"`
	Detail     []wireOrderItem `json:"detail"`
}

// created is the backend's answer to create calls.
type created struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
}
