package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/marketplace-bot/internal/api/http"
	"github.com/spec-kit/marketplace-bot/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-bot/internal/auth"
	"github.com/spec-kit/marketplace-bot/internal/chat"
	"github.com/spec-kit/marketplace-bot/internal/config"
	"github.com/spec-kit/marketplace-bot/internal/events"
	"github.com/spec-kit/marketplace-bot/internal/intake"
	"github.com/spec-kit/marketplace-bot/internal/observability"
	"github.com/spec-kit/marketplace-bot/internal/persistence"
	"github.com/spec-kit/marketplace-bot/internal/repository"
	"github.com/spec-kit/marketplace-bot/internal/service"
	"github.com/spec-kit/marketplace-bot/internal/worker"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := repository.NewMemorySet()
	readiness := map[string]handlers.Pinger{}
	if pg.Enabled() {
		repos = repository.NewPostgresSet(pg.PoolHandle())
		readiness["postgres"] = pg
	}
	if redis.Reachable() {
		readiness["redis"] = redis
	}

	catalog, err := chat.LoadCatalog(cfg.Chat.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	renderer := chat.NewRenderer(catalog)

	var messenger chat.Messenger = chat.NewLogMessenger(logger)
	if cfg.Notification.WebhookURL != "" {
		messenger = chat.NewWebhookMessenger(cfg.Notification.WebhookURL, cfg.Notification.WebhookToken, cfg.Notification.SendTimeout())
	} else {
		logger.Warn("NOTIFY_WEBHOOK_URL not provided; outbound chat messages are only logged")
	}

	notifyWorker := worker.NewNotificationWorker(events.NewInMemoryDispatcher(), cfg.Notification, logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: notifyWorker,
		UserRepo:   repos.Users,
		Sender:     chat.NewNotifier(messenger, renderer),
		Logger:     logger,
		Metrics:    metrics,
	}, cfg.Notification)
	worker.StartNotificationWorker(notifyWorker, notifications)

	listingService := service.NewListingService(service.ListingDependencies{
		UserRepo:       repos.Users,
		ListingRepo:    repos.Listings,
		ModerationRepo: repos.ModerationLog,
		Dispatcher:     notifyWorker,
		Logger:         logger,
		Metrics:        metrics,
	})
	userService := service.NewUserService(repos.Users, logger)
	if err := userService.SeedAdmins(ctx, cfg.Bootstrap.AdminIDs); err != nil {
		logger.Fatal("failed to seed admins", zap.Error(err))
	}

	intakeOpts := []intake.Option{
		intake.WithCategoryResolver(catalog.Resolve),
		intake.WithLogger(logger),
		intake.WithMetrics(metrics),
	}
	var store intake.Store
	if redis.Reachable() {
		store = intake.NewRedisStore(redis.Client,
			intake.WithTTL(cfg.Intake.SessionTTL()),
			intake.WithPrefix(redis.Prefix))
		if cfg.Intake.DistributedLocking {
			intakeOpts = append(intakeOpts, intake.WithLocker(intake.NewRedisLocker(redis.Client, redis.Prefix), cfg.Intake.LockTTL()))
		}
	} else {
		memStore := intake.NewMemoryStore(cfg.Intake.SessionTTL())
		go memStore.RunJanitor(ctx, cfg.Intake.SweepInterval(), metrics.SetIntakeSessions)
		store = memStore
	}
	intakeManager := intake.NewManager(store, listingService, intakeOpts...)

	chatRouter := chat.NewRouter(chat.RouterDependencies{
		Users:     userService,
		Listings:  listingService,
		Intake:    intakeManager,
		Messenger: messenger,
		Renderer:  renderer,
		Logger:    logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.Users)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Users:             handlers.NewUsersHandler(),
		Listings:          handlers.NewListingsHandler(listingService),
		Moderation:        handlers.NewModerationHandler(listingService),
		Admin:             handlers.NewAdminHandler(listingService),
		Chat:              handlers.NewChatHandler(chatRouter, cfg.Chat.InboundSecret),
		AuthMiddleware:    authMiddleware,
		Gatherer:          registry,
		ChatRatePerMinute: cfg.Chat.InboundRatePerMin,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := notifyWorker.Stop(drainCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
