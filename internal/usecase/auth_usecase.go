package usecase

import (
	"context"
	"strings"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"
)

// SessionEvicter drops the server-side session of an access token.
type SessionEvicter interface {
	Evict(token string)
}

type AuthUsecase struct {
	auth     domain.AuthGateway
	sessions SessionEvicter
}

func NewAuthUsecase(auth domain.AuthGateway, sessions SessionEvicter) *AuthUsecase {
	return &AuthUsecase{auth: auth, sessions: sessions}
}

func (u *AuthUsecase) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	v := domain.NewValidationError()
	if strings.TrimSpace(username) == "" {
		v.Add("username", "username is required")
	}
	if password == "" {
		v.Add("password", "password is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	res, err := u.auth.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info().Str("user_id", res.User.ID).Msg("User logged in")
	return res, nil
}

func (u *AuthUsecase) Register(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	// Self registration never picks a role.
	user.RoleID = ""
	return u.auth.Register(ctx, user)
}

// Logout ends the session on the backend and always forgets it locally, even when
// the backend call fails.
func (u *AuthUsecase) Logout(ctx context.Context, token string) error {
	defer u.sessions.Evict(token)

	if err := u.auth.Logout(ctx); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Msg("Backend logout failed, session dropped locally")
	}
	return nil
}

func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	if !strings.Contains(email, "@") {
		v := domain.NewValidationError()
		v.Add("email", "a valid email is required")
		return v
	}
	return u.auth.ForgotPassword(ctx, strings.TrimSpace(email))
}

func (u *AuthUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	v := domain.NewValidationError()
	if token == "" {
		v.Add("token", "reset token is required")
	}
	if len(newPassword) < 6 {
		v.Add("newPassword", "password must be at least 6 characters")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	return u.auth.ResetPassword(ctx, token, newPassword)
}

func (u *AuthUsecase) ChangePassword(ctx context.Context, user *domain.User, oldPassword, newPassword string) error {
	v := domain.NewValidationError()
	if oldPassword == "" {
		v.Add("oldPassword", "current password is required")
	}
	if len(newPassword) < 6 {
		v.Add("newPassword", "password must be at least 6 characters")
	} else if newPassword == oldPassword {
		v.Add("newPassword", "new password must differ from the current one")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	return u.auth.ChangePassword(ctx, user.Email, oldPassword, newPassword)
}
