package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/worklist-service/internal/api/http"
	"github.com/spec-kit/worklist-service/internal/api/http/handlers"
	"github.com/spec-kit/worklist-service/internal/auth"
	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/events"
	"github.com/spec-kit/worklist-service/internal/export"
	"github.com/spec-kit/worklist-service/internal/notification"
	"github.com/spec-kit/worklist-service/internal/observability"
	"github.com/spec-kit/worklist-service/internal/persistence"
	"github.com/spec-kit/worklist-service/internal/queue"
	"github.com/spec-kit/worklist-service/internal/service"
	"github.com/spec-kit/worklist-service/internal/storage"
	"github.com/spec-kit/worklist-service/internal/worker"
)

const notificationQueueSize = 256

func serveCommand(rt *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt.cfg, rt.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be set")
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, cfg.Notification.Queue, logger)
	defer redis.Close()

	photos, err := storage.NewLocalStore(cfg.Storage.UploadFolder, int64(cfg.Storage.MaxContentLength))
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var jobs queue.Queue
	if redis.Enabled() {
		jobs = queue.NewRedisQueue(redis.Client, cfg.Redis.QueueKey)
	} else {
		jobs = queue.NewMemoryQueue(notificationQueueSize)
	}
	defer jobs.Close()

	var notifier notification.Notifier = notification.NewShoutrrrNotifier(cfg.Notification.Timeout())
	if !cfg.Notification.Enabled {
		notifier = notification.NewLogNotifier(logger)
	}
	pool := worker.NewNotificationPool(jobs, notifier, worker.PoolConfig{
		Workers:     cfg.Notification.Workers,
		MaxAttempts: cfg.Notification.MaxAttempts,
		Backoff:     cfg.Notification.RetryBackoff(),
		Timeout:     cfg.Notification.Timeout(),
	}, logger, metrics)
	pool.Start(ctx)
	defer pool.Stop()

	service.NewNotificationService(dispatcher, jobs,
		notification.NewResolver(cfg.Workflow.Crew, cfg.Notification.SMSURLTemplate),
		metrics, logger, cfg.Notification,
	).RegisterHandlers()

	items := service.NewWorkItemService(service.WorkItemDependencies{
		Store:      pg.Store(),
		Photos:     photos,
		Exporter:   export.NewDocxExporter(photos, logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Workflow:   cfg.Workflow,
	})

	credentials, err := auth.NewCredentials(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to hash credentials: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(credentials, tokens, cfg.Workflow, logger)
	authMiddleware := auth.NewAuthMiddleware(tokens, func(name string) bool {
		_, ok := cfg.Workflow.Member(name)
		return ok
	})

	app := httptransport.NewApp(httptransport.ServerOptions{
		Name:           cfg.App.Name,
		BodyLimit:      cfg.Storage.MaxContentLength,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	}, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
			handlers.Dependency{Name: "photos", Pinger: photos},
		),
		Auth:           handlers.NewAuthHandler(authService),
		CrewItems:      handlers.NewCrewItemsHandler(items),
		AdminItems:     handlers.NewAdminItemsHandler(items),
		AuthMiddleware: authMiddleware,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Int("crew_members", len(cfg.Workflow.Crew)))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	return app.Shutdown()
}
