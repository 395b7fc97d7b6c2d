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

	httptransport "github.com/spec-kit/ticket-router/internal/api/http"
	"github.com/spec-kit/ticket-router/internal/api/http/handlers"
	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/ingestion"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/persistence"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/repository/memory"
	"github.com/spec-kit/ticket-router/internal/service"
	"github.com/spec-kit/ticket-router/internal/worker"
)

const ingestionLeaseKey = "ticket-router:ingestion-lease"

type repositories struct {
	tickets  repository.TicketRepository
	comments repository.TicketCommentRepository
	history  repository.TicketHistoryRepository
	units    repository.OrgUnitRepository
	agents   repository.AgentRepository
	catalog  repository.CatalogRepository
	slas     repository.SLARepository
}

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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := newRepositories(pg)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		AgentRepo: repos.agents,
		Logger:    logger,
		Metrics:   metrics,
	})
	routing := service.NewRoutingService(service.RoutingDependencies{
		CatalogRepo: repos.catalog,
		UnitRepo:    repos.units,
		SLAResolver: service.NewSLAResolver(repos.slas),
		Assignment:  assignment,
		Logger:      logger,
		Metrics:     metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		HistoryRepo: repos.history,
		Routing:     routing,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	directory := service.NewOrgEmailDirectory(repos.units)

	var (
		ingestionWorker *worker.IngestionWorker
		poller          handlers.Poller
	)
	if cfg.Mail.Enabled {
		var locker ingestion.Locker
		if redis != nil {
			locker = ingestion.NewRedisLocker(redis.Client, ingestionLeaseKey, cfg.Mail.LeaseTTL())
		}
		pipeline := ingestion.NewPipeline(ingestion.PipelineDependencies{
			Mailbox:   ingestion.NewIMAPMailbox(cfg.Mail, ingestion.WithIMAPLogger(logger)),
			Tickets:   tickets,
			Directory: directory,
			Locker:    locker,
			OrgID:     cfg.Routing.DefaultOrgID,
			Logger:    logger,
			Metrics:   metrics,
		})
		poller = pipeline
		ingestionWorker = worker.NewIngestionWorker(pipeline, cfg.Mail.PollInterval(), logger)
		if err := ingestionWorker.Start(ctx); err != nil {
			logger.Fatal("failed to start ingestion worker", zap.Error(err))
		}
	} else {
		logger.Info("MAIL_ENABLED is false; email ingestion disabled")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:  handlers.NewTicketsHandler(tickets, cfg.Routing.DefaultOrgID),
		OrgUnits: handlers.NewOrgUnitsHandler(directory, cfg.Routing.DefaultOrgID),
		Routing:  handlers.NewRoutingHandler(poller),
		Gatherer: registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if ingestionWorker != nil {
		select {
		case <-ingestionWorker.Stop().Done():
		case <-time.After(30 * time.Second):
			logger.Warn("ingestion poll still running at shutdown")
		}
	}
	_ = app.ShutdownWithTimeout(10 * time.Second)
}

func newRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := memory.NewStore()
		return repositories{
			tickets:  store,
			comments: store.Comments(),
			history:  store.History(),
			units:    store,
			agents:   store,
			catalog:  store,
			slas:     store,
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:  repository.NewTicketRepository(pool),
		comments: repository.NewTicketCommentRepository(pool),
		history:  repository.NewTicketHistoryRepository(pool),
		units:    repository.NewOrgUnitRepository(pool),
		agents:   repository.NewAgentRepository(pool),
		catalog:  repository.NewCatalogRepository(pool),
		slas:     repository.NewSLARepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
