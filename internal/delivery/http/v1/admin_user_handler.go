package v1

import (
	"net/http"

	"storefront-console/internal/domain"
	"storefront-console/internal/usecase"
)

// AdminUserHandler serves user management, RBAC and the dashboard.
type AdminUserHandler struct {
	responder
	userUC   *usecase.UserUsecase
	accessUC *usecase.AccessUsecase
}

func NewAdminUserHandler(userUC *usecase.UserUsecase, accessUC *usecase.AccessUsecase, sessions SessionEvicter) *AdminUserHandler {
	return &AdminUserHandler{responder: responder{sessions: sessions}, userUC: userUC, accessUC: accessUC}
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.userUC.List(r.Context(), domain.ListQueryFromURL(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

func (h *AdminUserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.NewUser
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.userUC.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, user)
}

func (h *AdminUserHandler) BulkCreateUsers(w http.ResponseWriter, r *http.Request) {
	var req []domain.NewUser
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.userUC.BulkCreate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, res)
}

func (h *AdminUserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.UserUpdate
	if !h.decode(w, r, &req) {
		return
	}
	req.ID = id
	if err := h.userUC.Update(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "user updated")
}

func (h *AdminUserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	_, admin, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.userUC.Delete(r.Context(), admin, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "user deleted")
}

func (h *AdminUserHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	page, err := h.accessUC.ListPermissions(r.Context(), domain.ListQueryFromURL(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

func (h *AdminUserHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req domain.Permission
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.accessUC.CreatePermission(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.created(w, p)
}

func (h *AdminUserHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req domain.Permission
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.accessUC.UpdatePermission(r.Context(), id, req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "permission updated")
}

func (h *AdminUserHandler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.accessUC.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "permission deleted")
}

func (h *AdminUserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	page, err := h.accessUC.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, page)
}

// SetRolePermission grants (PUT) or revokes (DELETE) one permission of a role.
func (h *AdminUserHandler) SetRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r)
	if !ok {
		return
	}
	granted := r.Method == http.MethodPut
	if err := h.accessUC.SetPermission(r.Context(), roleID, r.PathValue("permissionId"), granted); err != nil {
		h.fail(w, r, err)
		return
	}
	h.message(w, "role updated")
}

func (h *AdminUserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.accessUC.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, d)
}
