package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/notify"
	"github.com/assetgate/assetgate/internal/repository"
)

// AuthService handles login, logout and credential rotation.
type AuthService struct {
	repo     *repository.Repository
	tokens   *auth.TokenIssuer
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *repository.Repository, tokens *auth.TokenIssuer, notifier *notify.Notifier, logger *slog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger.With("component", "service.auth"),
	}
}

// LoginOutput carries the authenticated user and both credentials.
type LoginOutput struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

// Login verifies a username/password pair and issues a fresh token
// pair. The refresh token is persisted as the user's single live
// refresh credential, superseding any previous session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginOutput, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned() {
		return nil, ErrUserBanned
	}

	identity := model.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Status:   user.Status,
	}

	access, err := s.tokens.MintAccess(identity)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.tokens.MintRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	if err := s.repo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	s.notifier.Notify(notify.EventSystemMessage, fmt.Sprintf("user %s logged in", user.Username))

	return &LoginOutput{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Check returns the current user row for an authenticated identity.
// Used by clients to refresh their view of role and status.
func (s *AuthService) Check(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout clears the stored refresh credential, ending the session.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.SetRefreshToken(ctx, userID, ""); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user_id", userID)
	return nil
}

// Rotate exchanges a presented refresh credential for a fresh access
// token. The credential must verify and byte-match the single stored
// value; any mismatch, including reuse after rotation, is a hard
// reject. The new identity comes from the current user row, not from
// any stale claims.
func (s *AuthService) Rotate(ctx context.Context, rawRefresh string) (*model.Identity, string, error) {
	userID, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	// Compare-on-read is the sole revocation mechanism.
	if user.RefreshToken == "" || user.RefreshToken != rawRefresh {
		return nil, "", ErrInvalidCredentials
	}

	identity := model.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Status:   user.Status,
	}

	access, err := s.tokens.MintAccess(identity)
	if err != nil {
		return nil, "", fmt.Errorf("mint access token: %w", err)
	}

	return &identity, access, nil
}
