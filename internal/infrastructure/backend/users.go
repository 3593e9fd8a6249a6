package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"storefront-console/internal/domain"
)

const (
	usersPath       = "/api/v1/users"
	permissionsPath = "/api/v1/permissions"
	rolesPath       = "/api/v1/roles"
)

func (c *Client) ListUsers(ctx context.Context, query domain.ListQuery) (domain.Page[domain.User], error) {
	var data wirePage[wireUser]
	err := c.do(ctx, request{method: http.MethodGet, route: usersPath, path: usersPath, query: query.Values()}, &data)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, 0, len(data.Result))
	for _, w := range data.Result {
		users = append(users, w.toDomain())
	}
	return domain.Page[domain.User]{Meta: data.Meta, Result: users}, nil
}

func (c *Client) CreateUser(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	var data wireUser
	err := c.do(ctx, request{method: http.MethodPost, route: usersPath, path: usersPath, body: user}, &data)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	u := data.toDomain()
	return &u, nil
}

func (c *Client) BulkCreateUsers(ctx context.Context, users []domain.NewUser) (*domain.BulkImportResult, error) {
	var data domain.BulkImportResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/user/bulk-create",
		path:   "/api/v1/user/bulk-create",
		body:   users,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("bulk create users: %w", err)
	}
	return &data, nil
}

func (c *Client) UpdateUser(ctx context.Context, update domain.UserUpdate) error {
	err := c.do(ctx, request{method: http.MethodPatch, route: usersPath, path: usersPath, body: update}, nil)
	if err != nil {
		return fmt.Errorf("update user %s: %w", update.ID, err)
	}
	return nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  usersPath + "/{id}",
		path:   usersPath + "/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// --- Permissions & roles ---

type permissionBody struct {
	Name    string `json:"name"`
	APIPath string `json:"apiPath"`
	Method  string `json:"method"`
	Module  string `json:"module"`
}

func newPermissionBody(p domain.Permission) permissionBody {
	return permissionBody{Name: p.Name, APIPath: p.APIPath, Method: p.Method, Module: p.Module}
}

func (c *Client) ListPermissions(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Permission], error) {
	var data wirePage[wirePermission]
	err := c.do(ctx, request{method: http.MethodGet, route: permissionsPath, path: permissionsPath, query: query.Values()}, &data)
	if err != nil {
		return domain.Page[domain.Permission]{}, fmt.Errorf("list permissions: %w", err)
	}
	perms := make([]domain.Permission, 0, len(data.Result))
	for _, w := range data.Result {
		perms = append(perms, w.toDomain())
	}
	return domain.Page[domain.Permission]{Meta: data.Meta, Result: perms}, nil
}

func (c *Client) CreatePermission(ctx context.Context, p domain.Permission) (*domain.Permission, error) {
	var data created
	err := c.do(ctx, request{method: http.MethodPost, route: permissionsPath, path: permissionsPath, body: newPermissionBody(p)}, &data)
	if err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	p.ID = data.ID
	return &p, nil
}

func (c *Client) UpdatePermission(ctx context.Context, id string, p domain.Permission) error {
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  permissionsPath + "/{id}",
		path:   permissionsPath + "/" + url.PathEscape(id),
		body:   newPermissionBody(p),
	}, nil)
	if err != nil {
		return fmt.Errorf("update permission %s: %w", id, err)
	}
	return nil
}

func (c *Client) DeletePermission(ctx context.Context, id string) error {
	err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  permissionsPath + "/{id}",
		path:   permissionsPath + "/" + url.PathEscape(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("delete permission %s: %w", id, err)
	}
	return nil
}

func (c *Client) ListRoles(ctx context.Context) (domain.Page[domain.RoleDef], error) {
	var data wirePage[wireRoleDef]
	query := domain.ListQuery{Current: 1, PageSize: 100}
	err := c.do(ctx, request{method: http.MethodGet, route: rolesPath, path: rolesPath, query: query.Values()}, &data)
	if err != nil {
		return domain.Page[domain.RoleDef]{}, fmt.Errorf("list roles: %w", err)
	}
	roles := make([]domain.RoleDef, 0, len(data.Result))
	for _, w := range data.Result {
		roles = append(roles, w.toDomain())
	}
	return domain.Page[domain.RoleDef]{Meta: data.Meta, Result: roles}, nil
}

// AttachPermission and DetachPermission use the backend's $push/$pull update
// operators on the role document.
func (c *Client) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	return c.patchRolePermissions(ctx, roleID, "$push", permissionID)
}

func (c *Client) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	return c.patchRolePermissions(ctx, roleID, "$pull", permissionID)
}

func (c *Client) patchRolePermissions(ctx context.Context, roleID, operator, permissionID string) error {
	err := c.do(ctx, request{
		method: http.MethodPatch,
		route:  rolesPath + "/{id}",
		path:   rolesPath + "/" + url.PathEscape(roleID),
		body:   map[string]any{operator: map[string]string{"permissions": permissionID}},
	}, nil)
	if err != nil {
		return fmt.Errorf("update role %s permissions: %w", roleID, err)
	}
	return nil
}

// --- Dashboard ---

func (c *Client) GetDashboard(ctx context.Context) (*domain.Dashboard, error) {
	var data domain.Dashboard
	err := c.do(ctx, request{method: http.MethodGet, route: "/api/v1/dashboard", path: "/api/v1/dashboard"}, &data)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &data, nil
}
