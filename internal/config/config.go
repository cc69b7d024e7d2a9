// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache and mirror queue (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing secrets. Access and refresh tokens use separate keys
	// so either can be rotated independently.
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"2m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Marketplace providers
	FreepikAPIKey  string `env:"FREEPIK_API_KEY,required"`
	FreepikBaseURL string `env:"FREEPIK_BASE_URL" envDefault:"https://api.freepik.com"`

	// Archive storage backend (Drive-style REST API)
	ArchiveBaseURL     string `env:"ARCHIVE_BASE_URL" envDefault:"https://www.googleapis.com"`
	ArchiveAccessToken string `env:"ARCHIVE_ACCESS_TOKEN,required"`
	ArchiveFolderID    string `env:"ARCHIVE_FOLDER_ID,required"`

	// Event webhook for operational notifications. Empty disables fan-out.
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	// System credentials for the notification intake endpoint.
	SystemUser     string `env:"SYSTEM_USER" envDefault:"admin"`
	SystemPassword string `env:"SYSTEM_PASSWORD,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	// Per-user budget on authenticated API routes. 0 disables the
	// per-user limit while keeping the login limit active.
	RateLimitUserRPM   int `env:"RATE_LIMIT_USER_RPM" envDefault:"60"`
	RateLimitUserBurst int `env:"RATE_LIMIT_USER_BURST" envDefault:"10"`
	// Per-IP budget on the unauthenticated login endpoint.
	RateLimitLoginRPS   int `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"2"`
	RateLimitLoginBurst int `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
