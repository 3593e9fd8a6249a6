package usecase

import (
	"context"
	"testing"
	"time"

	"storefront-console/internal/domain"
	cacheimpl "storefront-console/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	logoutErr  error
	logins     int
	registered []domain.NewUser
	changed    []string
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	f.logins++
	return &domain.LoginResult{AccessToken: "tok", User: domain.User{ID: "u-1", Email: username}}, nil
}

func (f *fakeAuth) Register(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	f.registered = append(f.registered, user)
	return &domain.User{ID: "u-2", Email: user.Email}, nil
}

func (f *fakeAuth) FetchAccount(ctx context.Context) (*domain.User, error) { return nil, nil }
func (f *fakeAuth) Logout(ctx context.Context) error                      { return f.logoutErr }
func (f *fakeAuth) ForgotPassword(ctx context.Context, email string) error { return nil }

func (f *fakeAuth) ResetPassword(ctx context.Context, token, newPassword string) error {
	return nil
}

func (f *fakeAuth) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	f.changed = append(f.changed, email)
	return nil
}

type fakeEvicter struct {
	evicted []string
}

func (f *fakeEvicter) Evict(token string) {
	f.evicted = append(f.evicted, token)
}

func TestAuth_LoginValidatesFirst(t *testing.T) {
	auth := &fakeAuth{}
	uc := NewAuthUsecase(auth, &fakeEvicter{})

	_, err := uc.Login(context.Background(), " ", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Zero(t, auth.logins)

	res, err := uc.Login(context.Background(), " ann@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", res.User.Email)
}

func TestAuth_LogoutAlwaysEvicts(t *testing.T) {
	auth := &fakeAuth{logoutErr: domain.ErrBackendUnavailable}
	sessions := &fakeEvicter{}
	uc := NewAuthUsecase(auth, sessions)

	require.NoError(t, uc.Logout(context.Background(), "tok-1"))
	assert.Equal(t, []string{"tok-1"}, sessions.evicted)
}

func TestAuth_RegisterDropsRole(t *testing.T) {
	auth := &fakeAuth{}
	uc := NewAuthUsecase(auth, &fakeEvicter{})

	_, err := uc.Register(context.Background(), domain.NewUser{Name: "Ann", Email: "a@x.io", Password: "secret1", Phone: "0912345678", RoleID: "admin-role"})
	require.NoError(t, err)
	require.Len(t, auth.registered, 1)
	assert.Empty(t, auth.registered[0].RoleID)
}

func TestAuth_ChangePasswordUsesSessionEmail(t *testing.T) {
	auth := &fakeAuth{}
	uc := NewAuthUsecase(auth, &fakeEvicter{})
	user := &domain.User{ID: "u-1", Email: "ann@example.com"}

	err := uc.ChangePassword(context.Background(), user, "secret1", "secret1")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, uc.ChangePassword(context.Background(), user, "secret1", "secret2"))
	assert.Equal(t, []string{"ann@example.com"}, auth.changed)
}

type fakeUsers struct {
	updates []domain.UserUpdate
	deleted []string
	bulk    int
}

func (f *fakeUsers) ListUsers(context.Context, domain.ListQuery) (domain.Page[domain.User], error) {
	return domain.Page[domain.User]{}, nil
}

func (f *fakeUsers) CreateUser(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	return &domain.User{ID: "u-9", Name: user.Name}, nil
}

func (f *fakeUsers) BulkCreateUsers(ctx context.Context, users []domain.NewUser) (*domain.BulkImportResult, error) {
	f.bulk++
	return &domain.BulkImportResult{CountSuccess: len(users)}, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, update domain.UserUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestUsers_UpdateAccountPinsIdentity(t *testing.T) {
	users := &fakeUsers{}
	uc := NewUserUsecase(users)
	me := &domain.User{ID: "u-1", Email: "ann@example.com", RoleName: "NORMAL_USER"}

	updated, err := uc.UpdateAccount(context.Background(), me, domain.UserUpdate{ID: "u-2", Name: "Ann B", RoleID: "admin", Phone: "0911"})
	require.NoError(t, err)

	require.Len(t, users.updates, 1)
	assert.Equal(t, "u-1", users.updates[0].ID)
	assert.Empty(t, users.updates[0].RoleID)
	assert.Equal(t, "ann@example.com", users.updates[0].Email)
	assert.Equal(t, "Ann B", updated.Name)
	assert.Equal(t, "NORMAL_USER", updated.RoleName)
}

func TestUsers_BulkCreateRejectsBadRows(t *testing.T) {
	users := &fakeUsers{}
	uc := NewUserUsecase(users)

	_, err := uc.BulkCreate(context.Background(), []domain.NewUser{
		{Name: "Ann", Email: "a@x.io", Password: "secret1", Phone: "1"},
		{Name: "", Email: "nope", Password: "secret1", Phone: "1"},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "users[1].name")
	assert.Contains(t, verr.Fields, "users[1].email")
	assert.Zero(t, users.bulk)
}

func TestUsers_CannotDeleteSelf(t *testing.T) {
	users := &fakeUsers{}
	uc := NewUserUsecase(users)

	err := uc.Delete(context.Background(), &domain.User{ID: "u-1"}, "u-1")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, uc.Delete(context.Background(), &domain.User{ID: "u-1"}, "u-2"))
	assert.Equal(t, []string{"u-2"}, users.deleted)
}

type fakeAccess struct {
	attached, detached []string
	dashboards         int
}

func (f *fakeAccess) ListPermissions(context.Context, domain.ListQuery) (domain.Page[domain.Permission], error) {
	return domain.Page[domain.Permission]{}, nil
}

func (f *fakeAccess) CreatePermission(ctx context.Context, p domain.Permission) (*domain.Permission, error) {
	p.ID = "perm-1"
	return &p, nil
}

func (f *fakeAccess) UpdatePermission(context.Context, string, domain.Permission) error { return nil }
func (f *fakeAccess) DeletePermission(context.Context, string) error                   { return nil }

func (f *fakeAccess) ListRoles(context.Context) (domain.Page[domain.RoleDef], error) {
	return domain.Page[domain.RoleDef]{}, nil
}

func (f *fakeAccess) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	f.attached = append(f.attached, roleID+"/"+permissionID)
	return nil
}

func (f *fakeAccess) DetachPermission(ctx context.Context, roleID, permissionID string) error {
	f.detached = append(f.detached, roleID+"/"+permissionID)
	return nil
}

func (f *fakeAccess) GetDashboard(context.Context) (*domain.Dashboard, error) {
	f.dashboards++
	return &domain.Dashboard{TotalOrders: 7, TotalProducts: 3}, nil
}

func TestAccess_PermissionsAndDashboard(t *testing.T) {
	access := &fakeAccess{}
	uc := NewAccessUsecase(access, access, cacheimpl.NewMemoryCache(time.Minute, time.Minute))
	ctx := context.Background()

	p, err := uc.CreatePermission(ctx, domain.Permission{Name: "List orders", APIPath: "/api/v1/order", Method: "get", Module: "ORDER"})
	require.NoError(t, err)
	assert.Equal(t, "GET", p.Method)

	_, err = uc.CreatePermission(ctx, domain.Permission{Name: "x", APIPath: "api", Method: "FETCH", Module: "X"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "apiPath")
	assert.Contains(t, verr.Fields, "method")

	require.NoError(t, uc.SetPermission(ctx, "r-1", "perm-1", true))
	require.NoError(t, uc.SetPermission(ctx, "r-1", "perm-2", false))
	assert.Equal(t, []string{"r-1/perm-1"}, access.attached)
	assert.Equal(t, []string{"r-1/perm-2"}, access.detached)

	for range 3 {
		d, err := uc.Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, d.TotalOrders)
	}
	assert.Equal(t, 1, access.dashboards)
}
