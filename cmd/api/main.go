package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/techmax/helpdesk-service/internal/api/http"
	"github.com/techmax/helpdesk-service/internal/api/http/handlers"
	"github.com/techmax/helpdesk-service/internal/auth"
	"github.com/techmax/helpdesk-service/internal/authz"
	"github.com/techmax/helpdesk-service/internal/config"
	"github.com/techmax/helpdesk-service/internal/events"
	"github.com/techmax/helpdesk-service/internal/observability"
	"github.com/techmax/helpdesk-service/internal/persistence"
	"github.com/techmax/helpdesk-service/internal/repository"
	"github.com/techmax/helpdesk-service/internal/service"
	"github.com/techmax/helpdesk-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(redis.Client)

	registry := authz.NewDefaultRegistry()
	guard := authz.NewGuard(registry)

	dispatcher := events.NewRedisDispatcher(events.NewInMemoryDispatcher(logger), redis.Client, logger)

	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		RoleRepo:          roleRepo,
		PasswordResetRepo: resetRepo,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		UserRepo:       userRepo,
		Guard:          guard,
		Dispatcher:     dispatcher,
	})
	commentService := service.NewCommentService(ticketRepo, commentRepo, guard, dispatcher)
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		RoleRepo:   roleRepo,
		Guard:      guard,
		Dispatcher: dispatcher,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	bootstrapService := service.NewBootstrapService(userRepo, roleRepo, registry, cfg.Auth.BcryptCost, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	if pool != nil {
		if err := bootstrapService.SeedRoles(ctx); err != nil {
			logger.Fatal("failed to seed roles", zap.Error(err))
		}
		if err := bootstrapService.EnsureFirstAdmin(ctx, cfg.Bootstrap); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	usersHandler := handlers.NewUsersHandler(authService, userService)
	ticketsHandler := handlers.NewTicketsHandler(lifecycleService, commentService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		Tickets:        ticketsHandler,
		AuthMiddleware: authMiddleware,
		Guard:          guard,
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
