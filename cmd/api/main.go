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

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/sla"
	"github.com/spec-kit/helpdesk/internal/textgen"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("helpdesk")

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

	repos := buildRepositories(pg)
	policyRepo := repository.NewCachedSLAPolicyRepository(repos.policies, redis.Universal(), cfg.Redis.PolicyCacheTTL(), logger, metrics)

	dispatcher := events.NewInMemoryDispatcher(logger)
	historyService := service.NewHistoryService(dispatcher, repos.history, repos.tickets, logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), historyService)

	slaService := service.NewSLAService(service.SLADependencies{
		PolicyRepo: policyRepo,
		TicketRepo: repos.tickets,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if cfg.SLA.SeedDefaultPolicies {
		if _, err := slaService.SeedDefaults(ctx); err != nil {
			logger.Fatal("failed to seed sla policies", zap.Error(err))
		}
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.tickets,
		ReplyRepo:  repos.replies,
		Resolver:   sla.NewResolver(policyRepo),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	suggestionDeps := service.SuggestionDependencies{
		TicketRepo:     repos.tickets,
		ReplyRepo:      repos.replies,
		SuggestionRepo: repos.suggestions,
		Recorder:       metrics,
		Logger:         logger,
	}
	if client := textgen.NewClient(cfg.Textgen); client != nil {
		suggestionDeps.Generator = client
		logger.Info("text generation enabled", zap.String("provider", cfg.Textgen.Provider), zap.String("model", client.Model()))
	}
	suggestionService := service.NewSuggestionService(suggestionDeps)
	reportService := service.NewReportService(repos.tickets, metrics, logger, nil)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, historyService),
		SLA:            handlers.NewSLAHandler(slaService),
		Dashboard:      handlers.NewDashboardHandler(reportService),
		Suggestions:    handlers.NewSuggestionsHandler(suggestionService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

type repositories struct {
	tickets     repository.TicketRepository
	replies     repository.TicketReplyRepository
	policies    repository.SLAPolicyRepository
	suggestions repository.SuggestionRepository
	history     repository.TicketHistoryRepository
}

func buildRepositories(pg *persistence.Postgres) repositories {
	if !pg.Enabled() {
		store := repository.NewMemoryStore()
		return repositories{
			tickets:     store.Tickets(),
			replies:     store.Replies(),
			policies:    store.Policies(),
			suggestions: store.Suggestions(),
			history:     store.History(),
		}
	}
	pool := pg.PoolHandle()
	return repositories{
		tickets:     repository.NewTicketRepository(pool),
		replies:     repository.NewTicketReplyRepository(pool),
		policies:    repository.NewSLAPolicyRepository(pool),
		suggestions: repository.NewSuggestionRepository(pool),
		history:     repository.NewTicketHistoryRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
