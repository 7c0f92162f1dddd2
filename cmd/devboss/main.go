package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/imbhaskarn/devboss-blog/internal/app"
	"github.com/imbhaskarn/devboss-blog/internal/auth"
	"github.com/imbhaskarn/devboss-blog/internal/mail"
	"github.com/imbhaskarn/devboss-blog/internal/observability"
	"github.com/imbhaskarn/devboss-blog/internal/platform/cache"
	"github.com/imbhaskarn/devboss-blog/internal/platform/db"
	"github.com/imbhaskarn/devboss-blog/internal/token"
	"github.com/imbhaskarn/devboss-blog/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	renderer, err := mail.NewRenderer()
	if err != nil {
		logger.Error("parse mail templates", slog.Any("error", err))
		os.Exit(1)
	}

	mailQueue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	tokenManager := token.NewManager(cfg.Secret, "devboss")
	tokenStore := token.NewStore(redisClient, cfg.CacheTTL)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenManager, tokenStore, renderer, mailQueue, logger, auth.Config{
		APIURL:           cfg.APIURL,
		RefreshTokenTTL:  cfg.RefreshTokenTTL,
		SignupAccessTTL:  cfg.SignupAccessTTL,
		SigninAccessTTL:  cfg.SigninAccessTTL,
		RefreshAccessTTL: cfg.RefreshAccessTTL,
	})
	authHandler := auth.NewHandler(logger, authService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
