package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/assetgate/assetgate/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates one numbered migration for tests.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool, name string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", name+".down.sql")
	upPath := filepath.Join(root, "migrations", name+".up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// ResetAllSchemas rebuilds every table in dependency order. Downloads,
// notifications and vouchers reference users, so users go last on the
// way down and first on the way up.
func ResetAllSchemas(ctx context.Context, pool *pgxpool.Pool) error {
	down := []string{"000004_notifications", "000003_downloads", "000002_vouchers", "000001_users"}
	up := []string{"000001_users", "000002_vouchers", "000003_downloads", "000004_notifications"}

	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for _, name := range down {
		sql, err := os.ReadFile(filepath.Join(root, "migrations", name+".down.sql"))
		if err != nil {
			return fmt.Errorf("read %s down migration: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s down migration: %w", name, err)
		}
	}

	for _, name := range up {
		sql, err := os.ReadFile(filepath.Join(root, "migrations", name+".up.sql"))
		if err != nil {
			return fmt.Errorf("read %s up migration: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s up migration: %w", name, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, username string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           UniqueID("user"),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestVoucher creates an unredeemed test voucher.
func NewTestVoucher(t testing.TB, code string, limit int) *model.Voucher {
	t.Helper()
	now := time.Now().UTC()
	return &model.Voucher{
		ID:        UniqueID("vch"),
		Code:      code,
		Name:      "Test Voucher",
		Limit:     limit,
		Remaining: limit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestVoucherOwned creates a voucher already bound to a user.
func NewTestVoucherOwned(t testing.TB, code string, limit int, ownerID string) *model.Voucher {
	t.Helper()
	v := NewTestVoucher(t, code, limit)
	v.OwnerID = &ownerID
	return v
}

// NewTestDownload creates a waiting download request.
func NewTestDownload(t testing.TB, userID, sourceURL string) *model.Download {
	t.Helper()
	now := time.Now().UTC()
	return &model.Download{
		ID:        UniqueID("dl"),
		UserID:    userID,
		SourceURL: sourceURL,
		Filename:  model.PlaceholderFilename,
		Status:    model.DownloadStatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueCode generates a unique voucher-sized code for tests. The
// result is always 10 characters.
func UniqueCode() string {
	return fmt.Sprintf("%010d", time.Now().UnixNano()%1e10)
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
