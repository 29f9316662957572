package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"log/slog"

	"github.com/prensa-app/prensa/internal/api"
	"github.com/prensa-app/prensa/internal/config"
	"github.com/prensa-app/prensa/internal/database"
	"github.com/prensa-app/prensa/internal/logging"
	"github.com/prensa-app/prensa/internal/metrics"
	"github.com/prensa-app/prensa/internal/pipeline"
	"github.com/prensa-app/prensa/internal/scheduler"
	"github.com/prensa-app/prensa/internal/server"
	"github.com/prensa-app/prensa/internal/summarize"
)

func main() {
	// Local development convenience; env vars win in deployment.
	_ = godotenv.Load()

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

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting prensa pipeline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	if cfg.Database.MaxConnections > 0 {
		dbCfg.MaxConnections = cfg.Database.MaxConnections
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbCfg.MaxIdleConnections = cfg.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}

	logger.Info("connecting to database")
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	itemRepo := database.NewPostgresItemRepository(db)
	sourceRepo := database.NewPostgresSourceRepository(db)
	topicRepo := database.NewPostgresTopicRepository(db)
	storyRepo := database.NewPostgresStoryRepository(db)
	errorRepo := database.NewPostgresErrorRepository(db)

	registry := metrics.NewRegistry()
	pipelineCollector, err := metrics.NewPipelineCollector(registry)
	if err != nil {
		logger.Error("failed to init pipeline metrics", "error", err)
		os.Exit(1)
	}
	httpCollector, err := metrics.NewHTTPCollector(registry)
	if err != nil {
		logger.Error("failed to init http metrics", "error", err)
		os.Exit(1)
	}

	var summarizer summarize.Summarizer
	if client, err := summarize.NewClient(cfg.OpenAI, logger); err != nil {
		logger.Warn("no summarization provider configured, using mock summarizer", "error", err)
		summarizer = summarize.NewMockSummarizer()
	} else {
		logger.Info("using OpenAI summarizer",
			"premium_model", cfg.OpenAI.PremiumModel,
			"standard_model", cfg.OpenAI.StandardModel,
		)
		summarizer = client
	}

	pacer := pipeline.NewIntervalPacer(cfg.Pipeline.ItemInterval)
	processor := pipeline.NewProcessor(
		itemRepo,
		sourceRepo,
		topicRepo,
		storyRepo,
		errorRepo,
		summarizer,
		pacer,
		cfg.Pipeline,
		pipelineCollector,
		logger,
	)

	mux := http.NewServeMux()
	api.SetupRoutes(mux, api.Deps{
		DB:         db,
		Runner:     processor,
		Items:      itemRepo,
		Inserter:   itemRepo,
		ProcErrors: errorRepo,
		Stories:    storyRepo,
		Sources:    sourceRepo,
		Topics:     topicRepo,
		MaxRetries: cfg.Pipeline.MaxRetries,
		Metrics:    metrics.Handler(registry),
		Logger:     logger,
	})

	if cfg.Pipeline.RunInterval > 0 {
		sched := scheduler.NewPipelineScheduler(processor, cfg.Pipeline.RunInterval, cfg.Pipeline.DefaultBatchSize, logger)
		go sched.Start(ctx)
		defer sched.Stop()
	} else {
		logger.Info("internal scheduler disabled, runs start via POST /api/pipeline/run")
	}

	srv := server.New(cfg.Server, logger, httpCollector.InstrumentHandler(mux))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	cancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("prensa pipeline stopped")
}
