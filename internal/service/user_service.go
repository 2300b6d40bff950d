package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"estate-api/internal/model"
	"estate-api/internal/security"
	"estate-api/pkg/apierror"
)

type UserService struct {
	users  UserStore
	hasher *security.Hasher
}

func NewUserService(users UserStore, hasher *security.Hasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// EnsureAdmin seeds an active admin account when none exists for email.
// An existing account is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, email string, password string) error {
	email = security.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "User",
		Role:         model.RoleAdmin,
		AccountType:  model.AccountTypeInvestor,
		Status:       model.AccountStatusActive,
		IsConfirmed:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil && !errors.Is(err, model.ErrUserAlreadyExists) {
		return err
	}

	slog.Info("bootstrap admin created", "user_id", admin.ID, "email", email)
	return nil
}

func (s *UserService) Me(ctx context.Context, identity model.Identity) (model.UserSummary, error) {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.UserSummary{}, apierror.NotFound(apierror.CodeNotFound, "User not found")
	}
	if err != nil {
		return model.UserSummary{}, err
	}
	return user.Summary(), nil
}

// UpdateRole changes a user's role. Tokens already issued keep their claims;
// the next refresh picks up the new role.
func (s *UserService) UpdateRole(ctx context.Context, userID string, role model.Role) (model.UserSummary, error) {
	role = model.Role(strings.ToLower(strings.TrimSpace(string(role))))
	if !role.Valid() {
		return model.UserSummary{}, apierror.BadRequest(apierror.CodeBadRequest, "Invalid role", string(role))
	}

	user, err := s.users.UpdateRole(ctx, strings.TrimSpace(userID), role)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.UserSummary{}, apierror.NotFound(apierror.CodeNotFound, "User not found")
	}
	if err != nil {
		return model.UserSummary{}, err
	}

	slog.Info("user role updated", "user_id", user.ID, "role", role)
	return user.Summary(), nil
}
