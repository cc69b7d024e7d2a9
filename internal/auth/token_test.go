package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

func newTestIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 2*time.Minute, 168*time.Hour)
}

func testIdentity() model.Identity {
	return model.Identity{
		UserID:   "user-1",
		Username: "alice",
		Role:     model.RoleUser,
		Status:   model.UserStatusActive,
	}
}

func TestTokenIssuer_AccessRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.MintAccess(testIdentity())
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	id, err := issuer.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}

	if id.UserID != "user-1" {
		t.Errorf("UserID mismatch: got %q", id.UserID)
	}
	if id.Username != "alice" {
		t.Errorf("Username mismatch: got %q", id.Username)
	}
	if id.Role != model.RoleUser {
		t.Errorf("Role mismatch: got %q", id.Role)
	}
	if id.Status != model.UserStatusActive {
		t.Errorf("Status mismatch: got %q", id.Status)
	}
}

func TestTokenIssuer_RefreshRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.MintRefresh("user-1")
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}

	userID, err := issuer.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("subject mismatch: got %q", userID)
	}
}

func TestTokenIssuer_ExpiredAccessRejected(t *testing.T) {
	issuer := NewTokenIssuer("access-secret", "refresh-secret", -time.Minute, time.Hour)

	token, err := issuer.MintAccess(testIdentity())
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	if _, err := issuer.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestTokenIssuer_WrongSecretRejected(t *testing.T) {
	issuer := newTestIssuer()
	other := NewTokenIssuer("different", "different", 2*time.Minute, time.Hour)

	token, err := issuer.MintAccess(testIdentity())
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	if _, err := other.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}
}

func TestTokenIssuer_CrossTypeRejected(t *testing.T) {
	issuer := newTestIssuer()

	access, err := issuer.MintAccess(testIdentity())
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}
	refresh, err := issuer.MintRefresh("user-1")
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}

	// Access and refresh use separate secrets; neither verifies as the other.
	if _, err := issuer.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := issuer.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token accepted as access: %v", err)
	}
}

func TestTokenIssuer_GarbageRejected(t *testing.T) {
	issuer := newTestIssuer()

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.VerifyAccess(raw); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("VerifyAccess(%q) = %v, want ErrTokenInvalid", raw, err)
		}
	}
}
