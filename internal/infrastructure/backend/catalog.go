package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"storefront-console/internal/domain"
)

const (
	productsPath   = "/api/v1/product"
	categoriesPath = "/api/v1/category"
)

func (c *Client) ListProducts(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Product], error) {
	var data wirePage[wireProduct]
	err := c.do(ctx, request{method: http.MethodGet, route: productsPath, path: productsPath, query: query.Values()}, &data)
	if err != nil {
		return domain.Page[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	products := make([]domain.Product, 0, len(data.Result))
	for _, w := range data.Result {
		products = append(products, w.toDomain())
	}
	return domain.Page[domain.Product]{Meta: data.Meta, Result: products}, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var data wireProduct
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  productsPath + "/{id}",
		path:   productsPath + "/" + url.PathEscape(id),
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	p := data.toDomain()
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) error {
	if in.Variants == nil {
		in.Variants = []domain.Variant{}
	}
	if err := c.do(ctx, request{method: http.MethodPost, route: productsPath, path: productsPath, body: in}, nil); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error {
	if in.Variants == nil {
		in.Variants = []domain.Variant{}
	}
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  productsPath + "/{id}",
		path:   productsPath + "/" + url.PathEscape(id),
		body:   in,
	}, nil)
	if err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  productsPath + "/{id}",
		path:   productsPath + "/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// --- Categories ---

func (c *Client) ListCategories(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Category], error) {
	var data wirePage[wireCategory]
	err := c.do(ctx, request{method: http.MethodGet, route: categoriesPath, path: categoriesPath, query: query.Values()}, &data)
	if err != nil {
		return domain.Page[domain.Category]{}, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]domain.Category, 0, len(data.Result))
	for _, w := range data.Result {
		categories = append(categories, w.toDomain())
	}
	return domain.Page[domain.Category]{Meta: data.Meta, Result: categories}, nil
}

func (c *Client) CategoryTree(ctx context.Context) ([]domain.Category, error) {
	var data []wireCategory
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  categoriesPath + "/tree/all",
		path:   categoriesPath + "/tree/all",
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("category tree: %w", err)
	}
	tree := make([]domain.Category, 0, len(data))
	for _, w := range data {
		tree = append(tree, w.toDomain())
	}
	return tree, nil
}

func (c *Client) CreateCategory(ctx context.Context, in domain.CategoryInput) error {
	if err := c.do(ctx, request{method: http.MethodPost, route: categoriesPath, path: categoriesPath, body: in}, nil); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (c *Client) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) error {
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  categoriesPath + "/{id}",
		path:   categoriesPath + "/" + url.PathEscape(id),
		body:   in,
	}, nil)
	if err != nil {
		return fmt.Errorf("update category %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  categoriesPath + "/{id}",
		path:   categoriesPath + "/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}

// --- Files ---

// UploadFile forwards a file to the backend file service as the "fileUpload" form
// field; folder goes in the upload-type header.
func (c *Client) UploadFile(ctx context.Context, folder, fileName string, content io.Reader) (*domain.UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("fileUpload", fileName)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}

	var data domain.UploadedFile
	err = c.do(ctx, request{
		method:      http.MethodPost,
		route:       "/api/v1/files/upload",
		path:        "/api/v1/files/upload",
		header:      http.Header{"Upload-Type": []string{folder}},
		raw:         buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}
	return &data, nil
}

var (
	_ domain.OrderGateway     = (*Client)(nil)
	_ domain.AuthGateway      = (*Client)(nil)
	_ domain.UserGateway      = (*Client)(nil)
	_ domain.AccessGateway    = (*Client)(nil)
	_ domain.DashboardGateway = (*Client)(nil)
	_ domain.CatalogGateway   = (*Client)(nil)
	_ domain.FileGateway      = (*Client)(nil)
)
