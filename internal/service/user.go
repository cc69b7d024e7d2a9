package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/notify"
	"github.com/assetgate/assetgate/internal/repository"
)

// User management errors.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// Username: 3-30 chars, alphanumeric plus underscore.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// UserService handles user account management.
type UserService struct {
	repo     *repository.Repository
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, notifier *notify.Notifier, logger *slog.Logger) *UserService {
	return &UserService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With("component", "service.user"),
	}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser creates a new account with a hashed password.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if !usernameRegex.MatchString(input.Username) {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidInput
	}
	if err := auth.ValidatePasswordPolicy(input.Password); err != nil {
		return nil, ErrInvalidInput
	}

	role := model.RoleUser
	if input.Role != "" {
		role = model.Role(input.Role)
		if !role.IsValid() {
			return nil, ErrInvalidInput
		}
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           model.NewID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListUsersInput defines input for listing users.
type ListUsersInput struct {
	Username string
	Email    string
	Page     int
	PerPage  int
}

// ListUsers retrieves a filtered, paginated user list.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]*model.User, int, error) {
	filter := repository.UserFilter{
		Username: input.Username,
		Email:    input.Email,
	}
	return s.repo.ListUsers(ctx, filter, normalizePage(input.Page, input.PerPage))
}

// UpdateUserInput defines input for updating a user. Nil fields are
// left unchanged.
type UpdateUserInput struct {
	ID       string
	Email    *string
	Password *string
	Role     *string
	Status   *string
}

// UpdateUser applies partial updates to a user account.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if input.Email != nil {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			return nil, ErrInvalidInput
		}
		user.Email = *input.Email
	}

	if input.Password != nil {
		if err := auth.ValidatePasswordPolicy(*input.Password); err != nil {
			return nil, ErrInvalidInput
		}
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if input.Role != nil {
		role := model.Role(*input.Role)
		if !role.IsValid() {
			return nil, ErrInvalidInput
		}
		user.Role = role
	}

	banned := false
	if input.Status != nil {
		status := model.UserStatus(*input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidInput
		}
		banned = status == model.UserStatusBanned && user.Status != model.UserStatusBanned
		user.Status = status
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if banned {
		// End the session immediately; the next rotation attempt fails.
		if err := s.repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
			s.logger.Warn("failed to clear refresh token for banned user",
				"user_id", user.ID, "error", err)
		}
		s.notifier.Notify(notify.EventUserBanned, fmt.Sprintf("user %s banned", user.Username))
	}

	s.logger.Info("user updated", "user_id", user.ID)

	return user, nil
}

// DeleteUser soft-deletes a user account.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// normalizePage clamps pagination to sane bounds. Page size is capped
// at 25 entries.
func normalizePage(page, perPage int) repository.Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 25 {
		perPage = 25
	}
	return repository.Page{Number: page, PerPage: perPage}
}
