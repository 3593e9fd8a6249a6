package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"storefront-console/config"
	"storefront-console/internal/domain"
	cacheimpl "storefront-console/internal/infrastructure/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	tree      []domain.Category
	getCalls  int
	treeCalls int
	lists     []domain.ListQuery
	err       error
}

func (f *fakeCatalog) ListProducts(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, q)
	if f.err != nil {
		return domain.Page[domain.Product]{}, f.err
	}
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return domain.Page[domain.Product]{Meta: domain.Meta{Total: len(out)}, Result: out}, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) CreateProduct(context.Context, domain.ProductInput) error { return f.err }
func (f *fakeCatalog) UpdateProduct(context.Context, string, domain.ProductInput) error { return f.err }
func (f *fakeCatalog) DeleteProduct(context.Context, string) error { return f.err }

func (f *fakeCatalog) ListCategories(context.Context, domain.ListQuery) (domain.Page[domain.Category], error) {
	return domain.Page[domain.Category]{}, f.err
}

func (f *fakeCatalog) CategoryTree(context.Context) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.treeCalls++
	return f.tree, f.err
}

func (f *fakeCatalog) CreateCategory(context.Context, domain.CategoryInput) error { return f.err }
func (f *fakeCatalog) UpdateCategory(context.Context, string, domain.CategoryInput) error { return f.err }
func (f *fakeCatalog) DeleteCategory(context.Context, string) error { return f.err }

type fakeFiles struct {
	folder, name string
}

func (f *fakeFiles) UploadFile(ctx context.Context, folder, fileName string, content io.Reader) (*domain.UploadedFile, error) {
	f.folder, f.name = folder, fileName
	return &domain.UploadedFile{FileName: "stored-" + fileName}, nil
}

type memoryHolder struct {
	cart    domain.Cart
	saveErr error
}

func (h *memoryHolder) Cart() (domain.Cart, error) {
	return h.cart.Clone(), nil
}

func (h *memoryHolder) UpdateCart(ctx context.Context, fn func(cart *domain.Cart) error) (domain.Cart, error) {
	next := h.cart.Clone()
	if err := fn(&next); err != nil {
		return domain.Cart{}, err
	}
	if h.saveErr != nil {
		return domain.Cart{}, h.saveErr
	}
	h.cart = next
	return next.Clone(), nil
}

func testConfig() *config.Config {
	return &config.Config{CacheProductTTL: time.Minute, CacheCategoryTTL: time.Minute}
}

func newCatalogUC(catalog *fakeCatalog) *CatalogUsecase {
	return NewCatalogUsecase(catalog, &fakeFiles{}, cacheimpl.NewMemoryCache(time.Minute, time.Minute), testConfig())
}

func teeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]domain.Product{
		"p-1": {
			ID: "p-1", Name: "Tee", Price: decimal.NewFromInt(90), Thumbnail: "tee.png",
			Variants: []domain.Variant{
				{VersionName: "M", Color: "Red", Price: decimal.NewFromInt(100), Quantity: 5},
				{VersionName: "L", Color: "Blue", Price: decimal.NewFromInt(120), Quantity: 0},
			},
		},
		"p-2": {ID: "p-2", Name: "Mug", Price: decimal.NewFromInt(30), Quantity: 50},
	}}
}

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{Name: "Ann", Phone: "0912345678", Address: "12 Market St", PaymentType: domain.PaymentTypeCOD}
}

func assertQuantityError(t *testing.T, err error) {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "quantity")
}

func TestCart_AddAccumulatesSameVariant(t *testing.T) {
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), &fakeOrders{}, 10)
	holder := &memoryHolder{}
	ctx := context.Background()

	_, err := uc.Add(ctx, holder, "p-1", "M - Red", 2)
	require.NoError(t, err)
	view, err := uc.Add(ctx, holder, "p-1", "M - Red", 1)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 3, view.Count)
	assert.NotEmpty(t, view.Lines[0].ID)

	view, err = uc.Add(ctx, holder, "p-2", "", 1)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 2)
	assert.True(t, view.Lines[1].UnitPrice.Equal(decimal.NewFromInt(30)))
}

func TestCart_AddBounds(t *testing.T) {
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), &fakeOrders{}, 10)
	holder := &memoryHolder{}
	ctx := context.Background()

	_, err := uc.Add(ctx, holder, "p-1", "M - Red", 6)
	assertQuantityError(t, err)

	_, err = uc.Add(ctx, holder, "p-1", "L - Blue", 1)
	assertQuantityError(t, err)

	_, err = uc.Add(ctx, holder, "p-2", "", 11)
	assertQuantityError(t, err)

	_, err = uc.Add(ctx, holder, "p-2", "", 0)
	assertQuantityError(t, err)

	_, err = uc.Add(ctx, holder, "p-1", "XL - Green", 1)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "variant")

	_, err = uc.Add(ctx, holder, "missing", "", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, holder.cart.Lines)
}

func TestCart_SetQuantityAndRemove(t *testing.T) {
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), &fakeOrders{}, 10)
	holder := &memoryHolder{}
	ctx := context.Background()

	view, err := uc.Add(ctx, holder, "p-1", "M - Red", 1)
	require.NoError(t, err)
	lineID := view.Lines[0].ID

	view, err = uc.SetQuantity(ctx, holder, lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Lines[0].Quantity)

	_, err = uc.SetQuantity(ctx, holder, lineID, 8)
	assertQuantityError(t, err)

	view, err = uc.SetQuantity(ctx, holder, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	_, err = uc.Remove(ctx, holder, lineID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCart_CheckoutSubmitsAndClears(t *testing.T) {
	orders := &fakeOrders{}
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), orders, 10)
	holder := &memoryHolder{}
	ctx := context.Background()

	_, err := uc.Add(ctx, holder, "p-1", "M - Red", 2)
	require.NoError(t, err)
	_, err = uc.Add(ctx, holder, "p-2", "", 3)
	require.NoError(t, err)

	created, err := uc.Checkout(ctx, holder, validForm())
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, created.Status)

	require.Len(t, orders.created, 1)
	submitted := orders.created[0]
	assert.True(t, submitted.TotalPrice.Equal(decimal.NewFromInt(290)))
	require.Len(t, submitted.Items, 2)
	assert.Equal(t, "M - Red", submitted.Items[0].Variant)
	assert.Equal(t, "Ann", submitted.Name)

	assert.Empty(t, holder.cart.Lines)
}

func TestCart_CheckoutValidationMakesNoCall(t *testing.T) {
	orders := &fakeOrders{}
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), orders, 10)
	holder := &memoryHolder{}

	_, err := uc.Checkout(context.Background(), holder, validForm())
	assert.ErrorIs(t, err, domain.ErrCartEmpty)

	_, err = uc.Add(context.Background(), holder, "p-2", "", 1)
	require.NoError(t, err)

	form := validForm()
	form.Phone = "12"
	form.PaymentType = "CARD"
	_, err = uc.Checkout(context.Background(), holder, form)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")
	assert.Contains(t, verr.Fields, "paymentType")

	assert.Empty(t, orders.created)
	assert.Len(t, holder.cart.Lines, 1)
}

func TestCart_CheckoutFailureKeepsCart(t *testing.T) {
	orders := &fakeOrders{createFn: func(domain.NewOrder) (*domain.Order, error) {
		return nil, domain.ErrBackendUnavailable
	}}
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), orders, 10)
	holder := &memoryHolder{}

	_, err := uc.Add(context.Background(), holder, "p-2", "", 1)
	require.NoError(t, err)

	_, err = uc.Checkout(context.Background(), holder, validForm())
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Len(t, holder.cart.Lines, 1)
}

func TestCart_PersistFailureLeavesCart(t *testing.T) {
	uc := NewCartUsecase(newCatalogUC(teeCatalog()), &fakeOrders{}, 10)
	holder := &memoryHolder{saveErr: errors.New("db down")}

	_, err := uc.Add(context.Background(), holder, "p-2", "", 1)
	require.Error(t, err)
	assert.Empty(t, holder.cart.Lines)
}
