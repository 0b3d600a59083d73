package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"go.uber.org/zap"

	httptransport "github.com/meditrack/staffcore/internal/api/http"
	"github.com/meditrack/staffcore/internal/api/http/handlers"
	"github.com/meditrack/staffcore/internal/auth"
	"github.com/meditrack/staffcore/internal/config"
	"github.com/meditrack/staffcore/internal/events"
	"github.com/meditrack/staffcore/internal/observability"
	"github.com/meditrack/staffcore/internal/persistence"
	"github.com/meditrack/staffcore/internal/repository"
	"github.com/meditrack/staffcore/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg := persistence.NewPostgres(cfg.Postgres, logger)
	if err := pg.Initialize(ctx); err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	db := persistence.NewDatabase(pg, logger)
	staffRepo := repository.NewStaffRepository(db)

	var limiter auth.LoginLimiter = auth.NoopLimiter{}
	if redis.Enabled() && cfg.Auth.LoginMaxAttempts > 0 {
		limiter = auth.NewRedisLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
		logger.Info("login throttling enabled",
			zap.Int("max_attempts", cfg.Auth.LoginMaxAttempts),
			zap.Duration("window", cfg.Auth.LoginWindow),
		)
	}

	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterAuditLog(dispatcher, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(service.AuthDependencies{
		StaffRepo: staffRepo,
		Tx:        db,
		Hasher:    auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency, logger),
		Tokens:    tokens,
		Limiter:   limiter,
		Events:    dispatcher,
		TokenTTL:  cfg.Auth.TokenTTL,
		Logger:    logger,
	})

	validate, err := handlers.NewRequestValidator()
	if err != nil {
		logger.Fatal("failed to init request validator", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.HTTP.CORSOrigins, ","),
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization",
	}))
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout)

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.HealthDependencies{
		Postgres:  pg,
		Redis:     redis,
		PoolStats: pg.Stats,
		Metrics:   metrics,
		Logger:    logger,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           handlers.NewAuthHandler(authService, validate),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
