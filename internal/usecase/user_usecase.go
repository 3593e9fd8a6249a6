package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"
)

// UserUsecase backs the admin user screens and the account page.
type UserUsecase struct {
	users domain.UserGateway
}

func NewUserUsecase(users domain.UserGateway) *UserUsecase {
	return &UserUsecase{users: users}
}

func (u *UserUsecase) List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.User], error) {
	return u.users.ListUsers(ctx, query)
}

func (u *UserUsecase) Create(ctx context.Context, user domain.NewUser) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return u.users.CreateUser(ctx, user)
}

// BulkCreate validates every row first; one bad row rejects the whole import.
func (u *UserUsecase) BulkCreate(ctx context.Context, users []domain.NewUser) (*domain.BulkImportResult, error) {
	v := domain.NewValidationError()
	if len(users) == 0 {
		v.Add("users", "at least one user is required")
	}
	for i, user := range users {
		var rowErr *domain.ValidationError
		if errors.As(user.Validate(), &rowErr) {
			for field, msg := range rowErr.Fields {
				v.Add(fmt.Sprintf("users[%d].%s", i, field), msg)
			}
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	res, err := u.users.BulkCreateUsers(ctx, users)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info().Int("success", res.CountSuccess).Int("failed", res.CountError).Msg("Bulk user import finished")
	return res, nil
}

func (u *UserUsecase) Update(ctx context.Context, update domain.UserUpdate) error {
	if err := validateUpdate(update); err != nil {
		return err
	}
	return u.users.UpdateUser(ctx, update)
}

// UpdateAccount lets a user edit their own profile. The target is always the
// session user and the role cannot be changed from here.
func (u *UserUsecase) UpdateAccount(ctx context.Context, user *domain.User, update domain.UserUpdate) (*domain.User, error) {
	update.ID = user.ID
	update.RoleID = ""
	if update.Email == "" {
		update.Email = user.Email
	}
	if err := validateUpdate(update); err != nil {
		return nil, err
	}
	if err := u.users.UpdateUser(ctx, update); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = update.Name
	updated.Email = update.Email
	updated.Phone = update.Phone
	if update.Avatar != "" {
		updated.Avatar = update.Avatar
	}
	return &updated, nil
}

func (u *UserUsecase) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor != nil && actor.ID == id {
		v := domain.NewValidationError()
		v.Add("id", "you cannot delete your own account")
		return v
	}
	return u.users.DeleteUser(ctx, id)
}

func validateUpdate(update domain.UserUpdate) error {
	v := domain.NewValidationError()
	if update.ID == "" {
		v.Add("_id", "user id is required")
	}
	if strings.TrimSpace(update.Name) == "" {
		v.Add("name", "name is required")
	}
	if update.Email != "" && !strings.Contains(update.Email, "@") {
		v.Add("email", "a valid email is required")
	}
	return v.OrNil()
}
