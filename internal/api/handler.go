// Package api exposes the question-to-chart pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vizbot/vizbot/internal/audit"
	"github.com/vizbot/vizbot/internal/config"
	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/history"
	"github.com/vizbot/vizbot/internal/nl2sql"
	"github.com/vizbot/vizbot/internal/observability"
	"github.com/vizbot/vizbot/internal/schema"
	"github.com/vizbot/vizbot/internal/storage"
)

const sessionHeader = "X-Session-ID"

type ReadinessCheck func(ctx context.Context) error

// SchemaProvider serves cached snapshots and refreshes them on demand.
type SchemaProvider interface {
	Get(ctx context.Context) (*schema.Snapshot, error)
	Refresh(ctx context.Context) (*schema.Snapshot, error)
}

type Translator interface {
	Translate(ctx context.Context, req nl2sql.Request) (nl2sql.CandidateSQL, error)
}

type QueryExecutor interface {
	Execute(ctx context.Context, candidate nl2sql.CandidateSQL) (executor.ResultSet, error)
}

type InsightSummarizer interface {
	Summarize(ctx context.Context, result executor.ResultSet, question string) string
}

type ResultExporter interface {
	ExportCSV(ctx context.Context, result executor.ResultSet, sessionID string) (storage.ObjectInfo, error)
}

type AuditRecorder interface {
	Record(record audit.Record)
}

type Dependencies struct {
	Logger             *slog.Logger
	Readiness          ReadinessCheck
	DependencyTimeout  time.Duration
	Schema             SchemaProvider
	Translator         Translator
	Executor           QueryExecutor
	Insight            InsightSummarizer
	History            history.Store
	Exporter           ResultExporter
	Audit              AuditRecorder
	HistoryPromptTurns int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleGetSchema(deps, w, r)
	})
	mux.HandleFunc("POST /v1/schema/refresh", func(w http.ResponseWriter, r *http.Request) {
		handleRefreshSchema(deps, w, r)
	})
	mux.HandleFunc("POST /v1/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslate(deps, w, r)
	})
	mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	mux.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.DSN == "" {
			return errors.New("database dsn is not configured")
		}
		return nil
	}
}

func CheckArtifactStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Artifacts.Endpoint == "" {
			return errors.New("artifact store endpoint is not configured")
		}
		if cfg.Artifacts.Bucket == "" {
			return errors.New("artifact store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func sessionID(r *http.Request) string {
	return r.Header.Get(sessionHeader)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
