package usecase

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"storefront-console/config"
	"storefront-console/internal/domain"
	"storefront-console/pkg/cache"
	"storefront-console/pkg/logger"
)

const (
	productKeyPrefix = "product:id:"
	categoryTreeKey  = "category:tree:all"
	dashboardKey     = "stats:dashboard"
)

// Folders the backend file service accepts in its upload-type header.
var uploadFolders = map[string]bool{
	"product":  true,
	"avatar":   true,
	"category": true,
	"default":  true,
}

type CatalogUsecase struct {
	catalog domain.CatalogGateway
	files   domain.FileGateway
	cache   cache.CacheService
	cfg     *config.Config
}

func NewCatalogUsecase(catalog domain.CatalogGateway, files domain.FileGateway, cache cache.CacheService, cfg *config.Config) *CatalogUsecase {
	return &CatalogUsecase{
		catalog: catalog,
		files:   files,
		cache:   cache,
		cfg:     cfg,
	}
}

// --- Products ---

func (uc *CatalogUsecase) ListProducts(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Product], error) {
	return uc.catalog.ListProducts(ctx, query)
}

// SearchProducts returns up to limit products whose name matches term.
func (uc *CatalogUsecase) SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	filters := url.Values{}
	if term != "" {
		filters.Set("name", fmt.Sprintf("/%s/i", regexp.QuoteMeta(term)))
	}
	page, err := uc.catalog.ListProducts(ctx, domain.ListQuery{Current: 1, PageSize: limit, Sort: "-sold", Filters: filters})
	if err != nil {
		return nil, err
	}
	if len(page.Result) > limit {
		page.Result = page.Result[:limit]
	}
	return page.Result, nil
}

func (uc *CatalogUsecase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	key := productKeyPrefix + id
	if val, found := uc.cache.Get(key); found {
		if p, ok := val.(domain.Product); ok {
			return &p, nil
		}
	}

	p, err := uc.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(key, *p, uc.cfg.CacheProductTTL)
	return p, nil
}

func (uc *CatalogUsecase) CreateProduct(ctx context.Context, in domain.ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := uc.catalog.CreateProduct(ctx, in); err != nil {
		return err
	}
	uc.cache.Delete(dashboardKey)
	return nil
}

func (uc *CatalogUsecase) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := uc.catalog.UpdateProduct(ctx, id, in); err != nil {
		return err
	}
	uc.cache.Delete(productKeyPrefix + id)
	return nil
}

func (uc *CatalogUsecase) DeleteProduct(ctx context.Context, id string) error {
	if err := uc.catalog.DeleteProduct(ctx, id); err != nil {
		return err
	}
	uc.cache.Delete(productKeyPrefix + id)
	uc.cache.Delete(dashboardKey)
	return nil
}

// --- Categories ---

func (uc *CatalogUsecase) ListCategories(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Category], error) {
	return uc.catalog.ListCategories(ctx, query)
}

func (uc *CatalogUsecase) CategoryTree(ctx context.Context) ([]domain.Category, error) {
	if val, found := uc.cache.Get(categoryTreeKey); found {
		if tree, ok := val.([]domain.Category); ok {
			return tree, nil
		}
	}

	tree, err := uc.catalog.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(categoryTreeKey, tree, uc.cfg.CacheCategoryTTL)
	return tree, nil
}

func (uc *CatalogUsecase) CreateCategory(ctx context.Context, in domain.CategoryInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := uc.catalog.CreateCategory(ctx, in); err != nil {
		return err
	}
	uc.invalidateCategories(ctx)
	return nil
}

func (uc *CatalogUsecase) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if in.ParentID != nil && *in.ParentID == id {
		v := domain.NewValidationError()
		v.Add("parentCategory", "a category cannot be its own parent")
		return v
	}
	if err := uc.catalog.UpdateCategory(ctx, id, in); err != nil {
		return err
	}
	uc.invalidateCategories(ctx)
	return nil
}

func (uc *CatalogUsecase) DeleteCategory(ctx context.Context, id string) error {
	if err := uc.catalog.DeleteCategory(ctx, id); err != nil {
		return err
	}
	uc.invalidateCategories(ctx)
	return nil
}

// Products embed their category, so category changes drop cached products too.
func (uc *CatalogUsecase) invalidateCategories(ctx context.Context) {
	uc.cache.Delete(categoryTreeKey)
	uc.cache.DeletePrefix(productKeyPrefix)
	logger.WithContext(ctx).Debug().Msg("Catalog cache invalidated")
}

// --- Files ---

// UploadFile proxies a file to the backend file service under folder.
func (uc *CatalogUsecase) UploadFile(ctx context.Context, folder, fileName string, content io.Reader) (*domain.UploadedFile, error) {
	if folder == "" {
		folder = "default"
	}
	v := domain.NewValidationError()
	if !uploadFolders[folder] {
		v.Add("upload-type", fmt.Sprintf("unknown upload folder %q", folder))
	}
	if strings.TrimSpace(fileName) == "" {
		v.Add("fileUpload", "a file is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return uc.files.UploadFile(ctx, folder, fileName, content)
}
