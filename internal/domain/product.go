package domain

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ListQuery is the generic list request: pagination, sort and ad hoc filter fragments
// passed through to the backend untouched.
type ListQuery struct {
	Current  int
	PageSize int
	Sort     string // "field" ascending, "-field" descending
	Filters  url.Values
}

func (q ListQuery) Values() url.Values {
	v := url.Values{}
	for k, vals := range q.Filters {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	current, pageSize := q.Current, q.PageSize
	if current < 1 {
		current = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	v.Set("current", strconv.Itoa(current))
	v.Set("pageSize", strconv.Itoa(pageSize))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

// ListQueryFromURL splits an incoming query string into paging, sort and the
// remaining filters.
func ListQueryFromURL(values url.Values) ListQuery {
	q := ListQuery{Filters: url.Values{}}
	for k, vals := range values {
		switch k {
		case "current":
			q.Current, _ = strconv.Atoi(values.Get(k))
		case "pageSize":
			q.PageSize, _ = strconv.Atoi(values.Get(k))
		case "sort":
			q.Sort = values.Get(k)
		default:
			q.Filters[k] = append([]string(nil), vals...)
		}
	}
	return q
}

type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ParentID *string    `json:"parentId"`
	Children []Category `json:"children,omitempty"`
}

type Variant struct {
	VersionName string          `json:"versionName"`
	Color       string          `json:"color"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Label is how a variant is shown on cart lines and order items.
func (v Variant) Label() string {
	parts := make([]string, 0, 2)
	if v.VersionName != "" {
		parts = append(parts, v.VersionName)
	}
	if v.Color != "" {
		parts = append(parts, v.Color)
	}
	return strings.Join(parts, " - ")
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	MainText   string          `json:"mainText"`
	Desc       string          `json:"desc"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Sold       int             `json:"sold"`
	CategoryID string          `json:"category"`
	Thumbnail  string          `json:"thumbnail"`
	Slider     []string        `json:"slider"`
	Variants   []Variant       `json:"variants"`
}

// ResolveVariant finds the variant matching label. Products without variants
// resolve the empty label to their base price and stock.
func (p *Product) ResolveVariant(label string) (Variant, error) {
	if len(p.Variants) == 0 {
		if label != "" {
			return Variant{}, fmt.Errorf("product %s has no variant %q: %w", p.ID, label, ErrNotFound)
		}
		return Variant{Price: p.Price, Quantity: p.Quantity}, nil
	}
	if label == "" && len(p.Variants) == 1 {
		return p.Variants[0], nil
	}
	for _, v := range p.Variants {
		if v.Label() == label {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("product %s has no variant %q: %w", p.ID, label, ErrNotFound)
}

// ProductInput is the create/update payload of the admin product form.
type ProductInput struct {
	Name       string          `json:"name"`
	MainText   string          `json:"mainText"`
	Desc       string          `json:"desc"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	CategoryID string          `json:"category"`
	Thumbnail  string          `json:"thumbnail"`
	Slider     []string        `json:"slider"`
	Variants   []Variant       `json:"variants"`
}

func (in ProductInput) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "name is required")
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		v.Add("category", "category is required")
	}
	if strings.TrimSpace(in.Thumbnail) == "" {
		v.Add("thumbnail", "thumbnail is required")
	}
	if in.Price.IsNegative() {
		v.Add("price", "price must not be negative")
	}
	if in.Quantity < 0 {
		v.Add("quantity", "quantity must not be negative")
	}
	for i, variant := range in.Variants {
		if variant.Price.IsNegative() || variant.Quantity < 0 {
			v.Add(fmt.Sprintf("variants[%d]", i), "price and quantity must not be negative")
		}
	}
	return v.OrNil()
}

type CategoryInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentCategory"`
}

func (in CategoryInput) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		v.Add("name", "name is required")
	}
	return v.OrNil()
}

// UploadedFile is a file accepted by the backend file service.
type UploadedFile struct {
	FileName string `json:"fileName"`
}

// --- Interfaces ---

type CatalogGateway interface {
	ListProducts(ctx context.Context, query ListQuery) (Page[Product], error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, in ProductInput) error
	UpdateProduct(ctx context.Context, id string, in ProductInput) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context, query ListQuery) (Page[Category], error)
	CategoryTree(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) error
	UpdateCategory(ctx context.Context, id string, in CategoryInput) error
	DeleteCategory(ctx context.Context, id string) error
}

// FileGateway proxies uploads to the backend file service. Folder selects the
// backend's storage folder (product, avatar, ...).
type FileGateway interface {
	UploadFile(ctx context.Context, folder, fileName string, content io.Reader) (*UploadedFile, error)
}
