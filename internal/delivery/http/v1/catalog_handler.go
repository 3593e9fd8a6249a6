package v1

import (
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
	"storefront-console/pkg/utils"
)

const maxSearchResults = 20

// CatalogHandler serves the public storefront catalog.
type CatalogHandler struct {
	responder
	catalogUC *usecase.CatalogUsecase
}

func NewCatalogHandler(catalogUC *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{catalogUC: catalogUC}
}

// ListProducts passes current, pageSize, sort and any other filter through.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogUC.ListProducts(r.Context(), domain.ListQueryFromURL(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.catalogUC.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, p)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := min(utils.ParseInt(q.Get("limit"), 10), maxSearchResults)

	products, err := h.catalogUC.SearchProducts(r.Context(), q.Get("q"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, products)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogUC.ListCategories(r.Context(), domain.ListQueryFromURL(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

func (h *CatalogHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.catalogUC.CategoryTree(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, tree)
}
