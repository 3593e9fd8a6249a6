package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"storefront-console/internal/domain"
	"storefront-console/pkg/cache"
)

const dashboardTTL = time.Minute

var permissionMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// AccessUsecase backs the permission, role and dashboard screens of the back office.
type AccessUsecase struct {
	access    domain.AccessGateway
	dashboard domain.DashboardGateway
	cache     cache.CacheService
}

func NewAccessUsecase(access domain.AccessGateway, dashboard domain.DashboardGateway, cache cache.CacheService) *AccessUsecase {
	return &AccessUsecase{access: access, dashboard: dashboard, cache: cache}
}

func (u *AccessUsecase) ListPermissions(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Permission], error) {
	return u.access.ListPermissions(ctx, query)
}

func (u *AccessUsecase) CreatePermission(ctx context.Context, p domain.Permission) (*domain.Permission, error) {
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	if err := validatePermission(p); err != nil {
		return nil, err
	}
	return u.access.CreatePermission(ctx, p)
}

func (u *AccessUsecase) UpdatePermission(ctx context.Context, id string, p domain.Permission) error {
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	if err := validatePermission(p); err != nil {
		return err
	}
	return u.access.UpdatePermission(ctx, id, p)
}

func (u *AccessUsecase) DeletePermission(ctx context.Context, id string) error {
	return u.access.DeletePermission(ctx, id)
}

func (u *AccessUsecase) ListRoles(ctx context.Context) (domain.Page[domain.RoleDef], error) {
	return u.access.ListRoles(ctx)
}

// SetPermission grants or revokes one permission of a role.
func (u *AccessUsecase) SetPermission(ctx context.Context, roleID, permissionID string, granted bool) error {
	if roleID == "" || permissionID == "" {
		v := domain.NewValidationError()
		v.Add("permission", "role and permission are required")
		return v
	}
	if granted {
		return u.access.AttachPermission(ctx, roleID, permissionID)
	}
	return u.access.DetachPermission(ctx, roleID, permissionID)
}

// Dashboard returns the back-office counters, cached briefly.
func (u *AccessUsecase) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	if val, found := u.cache.Get(dashboardKey); found {
		if d, ok := val.(domain.Dashboard); ok {
			return &d, nil
		}
	}

	d, err := u.dashboard.GetDashboard(ctx)
	if err != nil {
		return nil, err
	}
	u.cache.Set(dashboardKey, *d, dashboardTTL)
	return d, nil
}

func validatePermission(p domain.Permission) error {
	v := domain.NewValidationError()
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "name is required")
	}
	if !strings.HasPrefix(p.APIPath, "/") {
		v.Add("apiPath", "api path must start with /")
	}
	if !slices.Contains(permissionMethods, p.Method) {
		v.Add("method", "method must be one of GET, POST, PUT, PATCH, DELETE")
	}
	if strings.TrimSpace(p.Module) == "" {
		v.Add("module", "module is required")
	}
	return v.OrNil()
}
