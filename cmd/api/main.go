package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/forms-service/internal/access"
	httptransport "github.com/spec-kit/forms-service/internal/api/http"
	"github.com/spec-kit/forms-service/internal/api/http/handlers"
	"github.com/spec-kit/forms-service/internal/auth"
	"github.com/spec-kit/forms-service/internal/config"
	"github.com/spec-kit/forms-service/internal/events"
	"github.com/spec-kit/forms-service/internal/observability"
	"github.com/spec-kit/forms-service/internal/persistence"
	"github.com/spec-kit/forms-service/internal/repository"
	"github.com/spec-kit/forms-service/internal/service"
	"github.com/spec-kit/forms-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	tenantRepo := repository.NewTenantRepository(pool)
	tenantSettingsRepo := repository.NewTenantSettingsRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	formRepo := repository.NewFormRepository(pool)
	definitionRepo := repository.NewFormDefinitionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	fileRepo := repository.NewSubmissionFileRepository(pool)

	capabilityService, err := access.NewCapabilityTokenService(cfg.Access.CapabilitySigningSecret)
	if err != nil {
		logger.Fatal("failed to init capability token service", zap.Error(err))
	}
	continuationStore := access.NewContinuationTokenStore(submissionRepo, tenantSettingsRepo, cfg.Access.DefaultContinuationExpiryHrs)
	resolver := access.NewResolver(formRepo, continuationStore)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		TenantRepo:        tenantRepo,
		PasswordResetRepo: resetRepo,
	})
	formService := service.NewFormService(service.FormDependencies{
		FormRepo:       formRepo,
		DefinitionRepo: definitionRepo,
		Dispatcher:     dispatcher,
	})
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		SubmissionRepo: submissionRepo,
		FileRepo:       fileRepo,
		FormRepo:       formRepo,
		Resolver:       resolver,
		TokenStore:     continuationStore,
		Dispatcher:     dispatcher,
	})
	exportService := service.NewExportService(formRepo, definitionRepo, submissionRepo, capabilityService, dispatcher)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	principalCache := auth.NewPrincipalCache(redis.Client, time.Duration(cfg.Auth.PrincipalCacheTTLSec)*time.Second)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, principalCache)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Forms:          handlers.NewFormsHandler(formService),
		Submissions:    handlers.NewSubmissionsHandler(submissionService),
		Tokens:         handlers.NewTokensHandler(capabilityService, continuationStore, submissionService, cfg.Access.MaxCapabilityExpiryMinutes),
		Export:         handlers.NewExportHandler(exportService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
