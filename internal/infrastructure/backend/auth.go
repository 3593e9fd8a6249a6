package backend

import (
	"context"
	"fmt"
	"net/http"

	"storefront-console/internal/domain"
)

func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	var data wireLogin
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/auth/login",
		path:   "/api/v1/auth/login",
		body:   map[string]string{"username": username, "password": password},
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &domain.LoginResult{AccessToken: data.AccessToken, User: data.User.toDomain()}, nil
}

func (c *Client) Register(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	var data wireUser
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/auth/register",
		path:   "/api/v1/auth/register",
		body: map[string]string{
			"name":     user.Name,
			"email":    user.Email,
			"password": user.Password,
			"phone":    user.Phone,
		},
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	u := data.toDomain()
	if u.Name == "" {
		u.Name = user.Name
	}
	return &u, nil
}

func (c *Client) FetchAccount(ctx context.Context) (*domain.User, error) {
	var data wireAccount
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/api/v1/auth/account",
		path:   "/api/v1/auth/account",
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch account: %w", err)
	}
	u := data.User.toDomain()
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/api/v1/auth/logout",
		path:   "/api/v1/auth/logout",
	}, nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/users/forgot-password",
		path:   "/api/v1/users/forgot-password",
		body:   map[string]string{"email": email},
	}, nil)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/users/reset-password",
		path:   "/api/v1/users/reset-password",
		body:   map[string]string{"token": token, "newPassword": newPassword},
	}, nil)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (c *Client) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/v1/users/change-password",
		path:   "/api/v1/users/change-password",
		body:   map[string]string{"email": email, "oldpass": oldPassword, "newpass": newPassword},
	}, nil)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}
