package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vizbot/vizbot/internal/audit"
	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/history"
	"github.com/vizbot/vizbot/internal/nl2sql"
	"github.com/vizbot/vizbot/internal/viz"
)

type turnPayload struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

type translateRequest struct {
	Question string        `json:"question"`
	History  []turnPayload `json:"history,omitempty"`
}

type translateResponse struct {
	SQL       string `json:"sql"`
	Validated bool   `json:"validated"`
}

type askRequest struct {
	Question string `json:"question"`
	Export   bool   `json:"export"`
}

type columnPayload struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Kind string `json:"kind"`
}

type askResponse struct {
	SQL       string          `json:"sql"`
	Columns   []columnPayload `json:"columns"`
	Rows      [][]any         `json:"rows"`
	RowCount  int             `json:"row_count"`
	Chart     viz.ChartSpec   `json:"chart"`
	Insight   string          `json:"insight,omitempty"`
	ExportKey string          `json:"export_key,omitempty"`
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil || deps.Translator == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "translator not configured", false, nil)
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "question is required", false, nil)
		return
	}

	snap, err := deps.Schema.Get(r.Context())
	if err != nil {
		writeSchemaError(r.Context(), w, err)
		return
	}

	turns := make([]nl2sql.Turn, 0, len(req.History))
	for _, turn := range req.History {
		turns = append(turns, nl2sql.Turn{Question: turn.Question, SQL: turn.SQL})
	}

	candidate, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		Question: req.Question,
		Snapshot: snap,
		History:  turns,
	})
	if err != nil {
		writePipelineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{SQL: candidate.SQL(), Validated: candidate.Validated()})
}

// handleAsk runs the full turn: translate the question, execute the validated
// statement, pick a chart, and attach best-effort insight and artifacts.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil || deps.Translator == nil || deps.Executor == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "pipeline not configured", false, nil)
		return
	}

	session := sessionID(r)
	if session == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_SESSION", "X-Session-ID header is required", false, nil)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "question is required", false, nil)
		return
	}

	ctx := r.Context()
	snap, err := deps.Schema.Get(ctx)
	if err != nil {
		writeSchemaError(ctx, w, err)
		return
	}

	turns := recentTurns(deps, r, session)

	candidate, err := deps.Translator.Translate(ctx, nl2sql.Request{
		Question: req.Question,
		Snapshot: snap,
		History:  turns,
	})
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	result, err := deps.Executor.Execute(ctx, candidate)
	if err != nil {
		writePipelineError(ctx, w, err)
		return
	}

	chart := viz.ChooseChart(result, req.Question)

	var insightText string
	if deps.Insight != nil {
		insightText = deps.Insight.Summarize(ctx, result, req.Question)
	}

	var exportKey string
	if req.Export && deps.Exporter != nil {
		info, err := deps.Exporter.ExportCSV(ctx, result, session)
		if err != nil {
			logWarn(deps.Logger, ctx, "csv export failed", err)
		} else {
			exportKey = info.Key
		}
	}

	if deps.History != nil {
		if _, err := deps.History.Record(ctx, history.RecordInput{
			SessionID: session,
			Question:  req.Question,
			SQL:       candidate.SQL(),
			Summary:   insightText,
			ChartKind: string(chart.Kind),
		}); err != nil {
			logWarn(deps.Logger, ctx, "record chat turn failed", err)
		}
	}

	if deps.Audit != nil {
		deps.Audit.Record(audit.Record{
			SessionID:  session,
			Question:   req.Question,
			SQL:        candidate.SQL(),
			RowCount:   len(result.Rows),
			DurationMs: result.Duration.Milliseconds(),
			ChartKind:  string(chart.Kind),
		})
	}

	writeJSON(w, http.StatusOK, askResponse{
		SQL:       candidate.SQL(),
		Columns:   columnPayloads(result),
		Rows:      result.Rows,
		RowCount:  len(result.Rows),
		Chart:     chart,
		Insight:   insightText,
		ExportKey: exportKey,
	})
}

func recentTurns(deps Dependencies, r *http.Request, session string) []nl2sql.Turn {
	if deps.History == nil || deps.HistoryPromptTurns <= 0 {
		return nil
	}
	entries, err := deps.History.Recent(r.Context(), session, deps.HistoryPromptTurns)
	if err != nil {
		logWarn(deps.Logger, r.Context(), "load chat history failed", err)
		return nil
	}
	turns := make([]nl2sql.Turn, 0, len(entries))
	for _, entry := range entries {
		turns = append(turns, nl2sql.Turn{Question: entry.Question, SQL: entry.SQL})
	}
	return turns
}

func columnPayloads(result executor.ResultSet) []columnPayload {
	columns := make([]columnPayload, 0, len(result.Columns))
	for _, column := range result.Columns {
		columns = append(columns, columnPayload{
			Name: column.Name,
			Type: column.TypeName,
			Kind: string(column.Kind),
		})
	}
	return columns
}

func logWarn(logger *slog.Logger, ctx context.Context, message string, err error) {
	if logger == nil {
		return
	}
	logger.WarnContext(ctx, message, slog.String("error", err.Error()))
}
