// Package main is the entrypoint for the Assetgate API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/assetgate/assetgate/internal/archive"
	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/cache"
	"github.com/assetgate/assetgate/internal/config"
	"github.com/assetgate/assetgate/internal/handler"
	"github.com/assetgate/assetgate/internal/middleware"
	"github.com/assetgate/assetgate/internal/mirror"
	"github.com/assetgate/assetgate/internal/notify"
	"github.com/assetgate/assetgate/internal/repository"
	"github.com/assetgate/assetgate/internal/resolver"
	"github.com/assetgate/assetgate/internal/server"
	"github.com/assetgate/assetgate/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Shared infrastructure
	tokens := auth.NewTokenIssuer(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL,
	)
	notifier := notify.New(cfg.NotifyWebhookURL, logger)
	resolvers := resolver.NewRegistry(
		resolver.NewFreepikResolver(cfg.FreepikBaseURL, cfg.FreepikAPIKey),
		resolver.NewEnvatoResolver(),
	)
	archiveSvc := archive.NewService(
		archive.NewClient(cfg.ArchiveBaseURL, cfg.ArchiveAccessToken, cfg.ArchiveFolderID),
		logger,
		cacheClient,
	)
	publisher := mirror.NewPublisher(cacheClient.Client(), logger)

	// Services
	authSvc := service.NewAuthService(repo, tokens, notifier, logger)
	userSvc := service.NewUserService(repo, notifier, logger)
	voucherSvc := service.NewVoucherService(repo, notifier, logger)
	downloadSvc := service.NewDownloadService(repo, logger)
	notificationSvc := service.NewNotificationService(repo, logger)
	fulfillmentSvc := service.NewFulfillmentService(
		repo, resolvers, archiveSvc, publisher, notifier, logger,
	)

	// Handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(
		authSvc, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.IsProduction(), logger,
	)
	userHandler := handler.NewUserHandler(userSvc, logger)
	voucherHandler := handler.NewVoucherHandler(voucherSvc, logger)
	downloadHandler := handler.NewDownloadHandler(fulfillmentSvc, downloadSvc, logger)
	archiveHandler := handler.NewArchiveHandler(archiveSvc, logger)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, logger)

	r := setupRouter(routerDeps{
		cfg:           cfg,
		logger:        logger,
		tokens:        tokens,
		cache:         cacheClient,
		authSvc:       authSvc,
		health:        healthHandler,
		auth:          authHandler,
		users:         userHandler,
		vouchers:      voucherHandler,
		downloads:     downloadHandler,
		archive:       archiveHandler,
		notifications: notificationHandler,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Mirror worker: consumes cache-miss jobs and populates the
	// archive in the background. Registered before the other hooks so
	// it drains last.
	worker := mirror.NewWorker(
		cacheClient.Client(), archiveSvc, notifier, logger,
		"mirror-"+uuid.NewString(),
	)
	workerCtx, workerCancel := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil {
			logger.Error("mirror worker stopped", "error", err)
		}
	}()
	srv.OnShutdown("mirror-worker", func(ctx context.Context) error {
		defer workerCancel()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	cfg     *config.Config
	logger  *slog.Logger
	tokens  *auth.TokenIssuer
	cache   *cache.Cache
	authSvc *service.AuthService

	health        *handler.HealthHandler
	auth          *handler.AuthHandler
	users         *handler.UserHandler
	vouchers      *handler.VoucherHandler
	downloads     *handler.DownloadHandler
	archive       *handler.ArchiveHandler
	notifications *handler.NotificationHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = d.cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = d.cfg.MaxRequestBodySize

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)

	authCfg := middleware.AuthConfig{
		Logger:         d.logger,
		Tokens:         d.tokens,
		Auth:           d.authSvc,
		AccessTokenTTL: d.cfg.AccessTokenTTL,
		SecureCookies:  d.cfg.IsProduction(),
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:                d.logger,
		Cache:                 d.cache,
		Enabled:               d.cfg.RateLimitEnabled,
		UserRequestsPerMinute: d.cfg.RateLimitUserRPM,
		UserBurst:             d.cfg.RateLimitUserBurst,
		LoginRPS:              d.cfg.RateLimitLoginRPS,
		LoginBurst:            d.cfg.RateLimitLoginBurst,
	}

	systemCfg := middleware.SystemAuthConfig{
		Logger:   d.logger,
		Username: d.cfg.SystemUser,
		Password: d.cfg.SystemPassword,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Login is the only unauthenticated endpoint, throttled per IP.
		r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/auth/login", d.auth.Login)

		// System intake: basic auth, not user tokens.
		r.Route("/system", func(r chi.Router) {
			r.Use(middleware.SystemAuth(systemCfg))
			r.Post("/notifications", d.notifications.Create)
		})

		// Everything below needs a valid session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RequireActive())
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Get("/auth/check", d.auth.Check)
			r.Post("/auth/logout", d.auth.Logout)

			r.Route("/downloads", func(r chi.Router) {
				r.Post("/", d.downloads.Submit)
				r.Get("/", d.downloads.List)
				r.Get("/{id}", d.downloads.Get)
				r.With(middleware.RequireSuperadmin()).Patch("/{id}", d.downloads.Update)
				r.With(middleware.RequireSuperadmin()).Delete("/{id}", d.downloads.Delete)
			})

			r.Post("/fulfillments", d.downloads.Fulfill)

			r.Route("/vouchers", func(r chi.Router) {
				r.Get("/mine", d.vouchers.ListOwn)
				r.Post("/redeem", d.vouchers.Redeem)
				r.With(middleware.RequireSuperadmin()).Post("/", d.vouchers.Create)
				r.With(middleware.RequireSuperadmin()).Get("/", d.vouchers.List)
				r.With(middleware.RequireSuperadmin()).Get("/{code}", d.vouchers.Get)
				r.With(middleware.RequireSuperadmin()).Put("/{code}", d.vouchers.Update)
				r.With(middleware.RequireSuperadmin()).Delete("/{code}", d.vouchers.Delete)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", d.notifications.List)
				r.Patch("/{id}/read", d.notifications.MarkRead)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin())
				r.Post("/", d.users.Create)
				r.Get("/", d.users.List)
				r.Get("/{id}", d.users.Get)
				r.Patch("/{id}", d.users.Update)
				r.Delete("/{id}", d.users.Delete)
			})

			r.Route("/archive", func(r chi.Router) {
				r.Use(middleware.RequireSuperadmin())
				r.Get("/files", d.archive.Search)
				r.Get("/quota", d.archive.Quota)
			})
		})
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
