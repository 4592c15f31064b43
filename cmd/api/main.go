package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/claimdesk/claims-service/internal/api/http"
	"github.com/claimdesk/claims-service/internal/api/http/handlers"
	"github.com/claimdesk/claims-service/internal/auth"
	"github.com/claimdesk/claims-service/internal/config"
	"github.com/claimdesk/claims-service/internal/events"
	"github.com/claimdesk/claims-service/internal/observability"
	"github.com/claimdesk/claims-service/internal/persistence"
	"github.com/claimdesk/claims-service/internal/repository"
	"github.com/claimdesk/claims-service/internal/service"
	"github.com/claimdesk/claims-service/internal/worker"
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

	claimCache := persistence.NewClaimCache(redis, cfg.Redis.ClaimCacheTTL())

	pool := pg.PoolHandle()
	claimRepo := repository.NewClaimRepository(pool)
	historyRepo := repository.NewClaimHistoryRepository(pool)
	commentRepo := repository.NewClaimCommentRepository(pool)
	clientRepo := repository.NewClientRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		ClientRepo:        clientRepo,
		AgentRepo:         agentRepo,
		PasswordResetRepo: resetRepo,
	})
	claimService := service.NewClaimService(service.ClaimDependencies{
		ClaimRepo:   claimRepo,
		CommentRepo: commentRepo,
		ProjectRepo: projectRepo,
		ClientRepo:  clientRepo,
		Dispatcher:  dispatcher,
		Cache:       claimCache,
	})
	projectService := service.NewProjectService(projectRepo)
	lifecycleService := service.NewClaimLifecycleService(service.LifecycleDependencies{
		ClaimRepo:   claimRepo,
		HistoryRepo: historyRepo,
		AgentRepo:   agentRepo,
		Dispatcher:  dispatcher,
		Cache:       claimCache,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), clientRepo, agentRepo)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Claims:         handlers.NewClaimsHandler(claimService, lifecycleService),
		AgentClaims:    handlers.NewAgentClaimsHandler(claimService, lifecycleService),
		Projects:       handlers.NewProjectsHandler(projectService),
		AuthMiddleware: authMiddleware,
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
