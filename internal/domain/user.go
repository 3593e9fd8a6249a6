package domain

import (
	"context"
	"strings"
	"time"
)

type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Avatar   string    `json:"avatar"`
	RoleID   string    `json:"roleId"`
	RoleName string    `json:"roleName"`
	Created  time.Time `json:"createdAt"`
}

// IsAdmin compares the role name against the configured admin marker.
func (u *User) IsAdmin(adminRoleName string) bool {
	return u != nil && u.RoleName != "" && u.RoleName == adminRoleName
}

// NewUser is the admin create/bulk-create payload.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	RoleID   string `json:"role,omitempty"`
}

func (u NewUser) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(u.Name) == "" {
		v.Add("name", "name is required")
	}
	if !strings.Contains(u.Email, "@") {
		v.Add("email", "a valid email is required")
	}
	if len(u.Password) < 6 {
		v.Add("password", "password must be at least 6 characters")
	}
	if strings.TrimSpace(u.Phone) == "" {
		v.Add("phone", "phone is required")
	}
	return v.OrNil()
}

// UserUpdate is both the admin edit form and the account page form. Avatar and
// RoleID are only sent when set.
type UserUpdate struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar,omitempty"`
	RoleID string `json:"role,omitempty"`
}

// BulkImportResult reports how many rows of a bulk create were accepted.
type BulkImportResult struct {
	CountSuccess int `json:"countSuccess"`
	CountError   int `json:"countError"`
}

// LoginResult is what a successful login yields.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type Permission struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	APIPath string `json:"apiPath"`
	Method  string `json:"method"`
	Module  string `json:"module"`
}

type RoleDef struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type Dashboard struct {
	TotalOrders   int `json:"totalOrders"`
	TotalProducts int `json:"totalProducts"`
}

// --- Interfaces ---

type AuthGateway interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Register(ctx context.Context, user NewUser) (*User, error)
	FetchAccount(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
}

type UserGateway interface {
	ListUsers(ctx context.Context, query ListQuery) (Page[User], error)
	CreateUser(ctx context.Context, user NewUser) (*User, error)
	BulkCreateUsers(ctx context.Context, users []NewUser) (*BulkImportResult, error)
	UpdateUser(ctx context.Context, update UserUpdate) error
	DeleteUser(ctx context.Context, id string) error
}

type AccessGateway interface {
	ListPermissions(ctx context.Context, query ListQuery) (Page[Permission], error)
	CreatePermission(ctx context.Context, p Permission) (*Permission, error)
	UpdatePermission(ctx context.Context, id string, p Permission) error
	DeletePermission(ctx context.Context, id string) error
	ListRoles(ctx context.Context) (Page[RoleDef], error)
	AttachPermission(ctx context.Context, roleID, permissionID string) error
	DetachPermission(ctx context.Context, roleID, permissionID string) error
}

type DashboardGateway interface {
	GetDashboard(ctx context.Context) (*Dashboard, error)
}
