package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// bootstrap loads configuration and the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore connects to postgres when configured and applies migrations if
// enabled. Without a DSN the in-memory store is used.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, *persistence.Postgres, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if !pg.Enabled() {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), pg, nil
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return repository.NewPostgresStore(pg.PoolHandle()), pg, nil
}

func runServer(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pg, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	denylist := auth.NewMemoryDenylist()
	if redis.Enabled() {
		denylist = auth.NewRedisDenylist(redis.Client)
	}

	if !pg.Enabled() {
		// The in-memory store starts empty; give it the default accounts.
		if _, err := service.NewSeedService(store, cfg.Auth.BcryptCost, logger, nil).Run(ctx); err != nil {
			return fmt.Errorf("seed in-memory store: %w", err)
		}
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	mailQueue := worker.NewMailQueue(mail.NewSMTPSender(cfg.Mail), logger, metrics, cfg.Worker.NotifyWorkers, cfg.Worker.NotifyQueueSize)
	stopNotifications := worker.StartNotificationWorker(ctx, mailQueue,
		service.NewNotificationService(dispatcher, mailQueue, metrics, logger, cfg.Mail))
	defer stopNotifications()

	repos := store.Repositories()
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		Store:      store,
		Blobs:      storage.NewDiskStore(cfg.Storage.UploadDir),
		Dispatcher: dispatcher,
		Logger:     logger,
		MaxBytes:   cfg.Storage.MaxUploadBytes,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Attachments: attachmentService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repos.Users,
		Denylist: denylist,
		Logger:   logger,
	})
	catalogService := service.NewCatalogService(store)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             cfg.App.BodyLimit(),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, assignmentService),
		Files:          handlers.NewTicketFilesHandler(attachmentService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, authService.Denylist()),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func runMigrate(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := contextOrBackground(parent)
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to run migrations")
	}
	return persistence.RunMigrations(ctx, pg.PoolHandle(), logger)
}

func runSeed(parent context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := contextOrBackground(parent)
	store, pg, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to seed")
	}

	result, err := service.NewSeedService(store, cfg.Auth.BcryptCost, logger, nil).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Int("companies", result.Companies),
		zap.Int("service_types", result.ServiceTypes),
		zap.Int("users", result.Users),
	)
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
