package v1

import (
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
	"storefront-console/pkg/utils"
)

// AdminCatalogHandler serves product and category management and file uploads.
type AdminCatalogHandler struct {
	responder
	catalogUC     *usecase.CatalogUsecase
	maxUploadSize int64
}

func NewAdminCatalogHandler(catalogUC *usecase.CatalogUsecase, sessions SessionEvicter, maxUploadSizeMB int64) *AdminCatalogHandler {
	return &AdminCatalogHandler{
		responder:     responder{sessions: sessions},
		catalogUC:     catalogUC,
		maxUploadSize: maxUploadSizeMB << 20,
	}
}

func (h *AdminCatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.catalogUC.CreateProduct(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"message": "product created"})
}

func (h *AdminCatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.catalogUC.UpdateProduct(r.Context(), id, in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "product updated")
}

func (h *AdminCatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalogUC.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "product deleted")
}

func (h *AdminCatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.catalogUC.CreateCategory(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, map[string]string{"message": "category created"})
}

func (h *AdminCatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.CategoryInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := h.catalogUC.UpdateCategory(r.Context(), id, in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "category updated")
}

func (h *AdminCatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.catalogUC.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "category deleted")
}

// UploadFile forwards a multipart "file" to the backend's file store. The target
// folder comes from the upload-type header.
func (h *AdminCatalogHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "File too large or invalid format")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid file")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		utils.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	res, err := h.catalogUC.UploadFile(r.Context(), r.Header.Get("upload-type"), utils.SafeFileName(header.Filename), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, res)
}
