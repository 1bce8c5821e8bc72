package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vizbot/vizbot/internal/api"
	"github.com/vizbot/vizbot/internal/audit"
	"github.com/vizbot/vizbot/internal/config"
	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/export"
	historypostgres "github.com/vizbot/vizbot/internal/history/postgres"
	"github.com/vizbot/vizbot/internal/insight"
	"github.com/vizbot/vizbot/internal/llm"
	"github.com/vizbot/vizbot/internal/nl2sql"
	"github.com/vizbot/vizbot/internal/observability"
	"github.com/vizbot/vizbot/internal/schema"
	schemapostgres "github.com/vizbot/vizbot/internal/schema/postgres"
	s3store "github.com/vizbot/vizbot/internal/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("skipping .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("vizbot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := schemapostgres.Open(context.Background(), schemapostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	introspector := schemapostgres.NewIntrospector(db)
	schemaCache := schema.NewCache(introspector, cfg.Schema.CacheTTL)

	completer, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:      cfg.AI.BaseURL,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		Timeout:      cfg.AI.Timeout,
		RateLimitRPS: cfg.AI.RateLimitRPS,
	})
	if err != nil {
		logger.Error("failed to initialize completion client", slog.Any("error", err))
		os.Exit(1)
	}

	translator, err := nl2sql.NewTranslator(completer, nl2sql.TranslatorConfig{
		MaxRetries:         cfg.Translator.MaxRetries,
		MaxRowLimit:        cfg.Translator.MaxRowLimit,
		SchemaPromptBudget: cfg.Translator.SchemaPromptBudget,
		HistoryPromptTurns: cfg.Translator.HistoryPromptTurns,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize translator", slog.Any("error", err))
		os.Exit(1)
	}

	queryExecutor, err := executor.New(db, executor.Config{StatementTimeout: cfg.Executor.StatementTimeout}, logger)
	if err != nil {
		logger.Error("failed to initialize executor", slog.Any("error", err))
		os.Exit(1)
	}

	historyRepo := historypostgres.NewRepository(db)

	deps := api.Dependencies{
		Logger:             logger,
		Schema:             schemaCache,
		Translator:         translator,
		Executor:           queryExecutor,
		History:            historyRepo,
		HistoryPromptTurns: cfg.Translator.HistoryPromptTurns,
		DependencyTimeout:  time.Second,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatabaseDSN(cfg),
			historyRepo.HealthCheck,
		),
	}

	if cfg.Insight.Enabled {
		summarizer, err := insight.New(completer, logger)
		if err != nil {
			logger.Error("failed to initialize insight summarizer", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Insight = summarizer
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var background sync.WaitGroup
	if cfg.Artifacts.Enabled {
		store, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Artifacts.Endpoint,
			Region:           cfg.Artifacts.Region,
			Bucket:           cfg.Artifacts.Bucket,
			AccessKeyID:      cfg.Artifacts.AccessKeyID,
			SecretAccessKey:  cfg.Artifacts.SecretAccessKey,
			UseSSL:           cfg.Artifacts.UseSSL,
			Prefix:           cfg.Artifacts.Prefix,
			AutoCreateBucket: cfg.Artifacts.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize artifact store", slog.Any("error", err))
			os.Exit(1)
		}

		exporter, err := export.New(store, logger)
		if err != nil {
			logger.Error("failed to initialize exporter", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Exporter = exporter

		recorder, err := audit.NewRecorder(store, cfg.Artifacts.AuditFlushEvery, logger)
		if err != nil {
			logger.Error("failed to initialize audit recorder", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Audit = recorder
		deps.Readiness = api.CombineReadinessChecks(deps.Readiness, api.CheckArtifactStoreConfig(cfg))

		background.Add(1)
		go func() {
			defer background.Done()
			recorder.Run(ctx)
		}()
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
	}
	background.Wait()
}
