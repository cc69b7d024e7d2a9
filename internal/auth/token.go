package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/assetgate/assetgate/internal/model"
)

// Token errors.
var (
	// ErrTokenInvalid covers malformed, mis-signed and expired tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// accessClaims embeds the caller identity in the short-lived access token
// so it can be verified without a store lookup.
type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	jwt.RegisteredClaims
}

// refreshClaims carries only the user id. The presented value must also
// match the single refresh token stored on the user row to be accepted.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the two bearer credentials.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer creates a TokenIssuer with separate signing secrets
// for access and refresh tokens.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// MintAccess issues a signed access token for the given identity.
func (t *TokenIssuer) MintAccess(id model.Identity) (string, error) {
	now := time.Now().UTC()
	claims := accessClaims{
		Username: id.Username,
		Role:     string(id.Role),
		Status:   string(id.Status),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// MintRefresh issues a signed refresh token for the given user id.
func (t *TokenIssuer) MintRefresh(userID string) (string, error) {
	now := time.Now().UTC()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns the embedded identity.
func (t *TokenIssuer) VerifyAccess(raw string) (*model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(token *jwt.Token) (any, error) {
		return t.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &model.Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     model.Role(claims.Role),
		Status:   model.UserStatus(claims.Status),
	}, nil
}

// VerifyRefresh validates a refresh token signature and expiry and
// returns the subject user id. Matching against the stored value is the
// caller's responsibility.
func (t *TokenIssuer) VerifyRefresh(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &refreshClaims{}, func(token *jwt.Token) (any, error) {
		return t.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*refreshClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
