package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lnup/eventscout/internal/api"
	"github.com/lnup/eventscout/internal/config"
	"github.com/lnup/eventscout/internal/database"
	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/inference"
	"github.com/lnup/eventscout/internal/ingestion"
	"github.com/lnup/eventscout/internal/logging"
	"github.com/lnup/eventscout/internal/metrics"
	"github.com/lnup/eventscout/internal/scheduler"
	"github.com/lnup/eventscout/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting eventscout", "llm_provider", cfg.LLM.Provider, "ai_enabled", cfg.LLM.AIEnabled())

	collector, err := metrics.New()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Without a database the service keeps scan records in memory and serves
	// only live sources.
	var (
		db         *sql.DB
		scanStore  ingestion.ScanStore = ingestion.NewMemoryScanStore()
		eventStore ingestion.EventStore
		logStore   inference.Store
		logLister  api.InferenceLogLister
		health     func(ctx context.Context) error
	)
	dbURL, err := database.BuildURL(cfg.Database)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		logger.Warn("no database configured, using in-memory stores")
	case err != nil:
		logger.Error("invalid database configuration", "error", err)
		os.Exit(1)
	default:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = dbURL
		logger.Info("connecting to database", "url", database.RedactURL(dbURL))
		db, err = database.Connect(ctx, dbCfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		logger.Info("database connected")

		// Non-fatal so the API can still serve live sources.
		if err := database.RunMigrations(ctx, db, database.Migrations(), logger); err != nil {
			logger.Warn("failed to run migrations, continuing anyway", "error", err)
		}

		scanStore = database.NewScanRepository(db)
		eventStore = database.NewEventRepository(db)
		logRepo := database.NewInferenceLogRepository(db)
		logStore = logRepo
		logLister = logRepo
		health = func(ctx context.Context) error { return database.HealthCheck(ctx, db) }
	}

	var calls *inference.Logger
	if logStore != nil {
		calls = inference.NewLogger(logStore, logger)
		defer calls.Wait()
	}

	generator := enrichment.NewGenerator(cfg.LLM, logger, collector, calls)
	apiKey := cfg.LLM.APIKey()

	discoveryCfg := enrichment.DefaultDiscoveryConfig()
	discoveryCfg.WindowDays = int(cfg.Discovery.Window.Hours() / 24)
	discoveryCfg.MinConfidence = cfg.Discovery.MinConfidence
	discoveryCfg.GroundingPenalty = cfg.Discovery.GroundingPenalty

	discoverer := enrichment.NewDiscoverer(generator, apiKey, enrichment.NewMemoryDiscoveryCache(), discoveryCfg, logger, collector)
	extractor := enrichment.NewExtractor(generator, apiKey, logger)

	ticketmaster := ingestion.NewTicketmasterConnector(ingestion.TicketmasterConfig{
		APIKey:      cfg.Ticketmaster.APIKey,
		BaseURL:     cfg.Ticketmaster.BaseURL,
		CountryCode: cfg.Ticketmaster.CountryCode,
		PageSize:    cfg.Ticketmaster.PageSize,
		Timeout:     cfg.Ticketmaster.Timeout,
	}, logger)

	gate := ingestion.NewCooldownGate(scanStore, cfg.Discovery.ScanCooldown, cfg.LLM.AIEnabled(), logger, collector)

	aggCfg := ingestion.DefaultAggregatorConfig()
	aggCfg.LocalWindow = cfg.Discovery.Window
	aggregator := ingestion.NewAggregator(
		[]ingestion.Connector{ticketmaster},
		discoverer,
		gate,
		eventStore,
		aggCfg,
		logger,
		collector,
	)

	if cfg.Scheduler.Enabled {
		cities, err := config.LoadCities(cfg.Scheduler.CitiesFile)
		if err != nil {
			logger.Error("failed to load city catalog", "error", err)
			os.Exit(1)
		}
		names := make([]string, 0, len(cities))
		for _, c := range cities {
			names = append(names, c.Name)
		}
		scanScheduler := scheduler.NewScanScheduler(aggregator, names, cfg.Scheduler.Interval, logger)
		go scanScheduler.Start(ctx)
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:   api.NewHandler(aggregator, extractor, health, logger),
		Admin:     api.NewAdminHandler(discoverer, logLister, logger),
		JWTSecret: cfg.Auth.JWTSecret,
		Metrics:   collector,
	})

	srv := server.New(cfg.Server, logger, router)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
