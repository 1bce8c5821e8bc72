package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vizbot/vizbot/internal/llm"
	"github.com/vizbot/vizbot/internal/observability"
)

type TranslatorConfig struct {
	MaxRetries         int
	MaxRowLimit        int
	SchemaPromptBudget int
	HistoryPromptTurns int
}

// Translator turns a natural-language question plus schema context into a
// validated CandidateSQL via the completion service.
type Translator struct {
	completer          llm.Completer
	maxRetries         int
	maxRowLimit        int
	schemaPromptBudget int
	historyPromptTurns int
	logger             *slog.Logger
}

func NewTranslator(completer llm.Completer, cfg TranslatorConfig, logger *slog.Logger) (*Translator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxRowLimit := cfg.MaxRowLimit
	if maxRowLimit <= 0 {
		maxRowLimit = 500
	}
	schemaBudget := cfg.SchemaPromptBudget
	if schemaBudget <= 0 {
		schemaBudget = 6000
	}
	historyTurns := cfg.HistoryPromptTurns
	if historyTurns < 0 {
		historyTurns = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		completer:          completer,
		maxRetries:         maxRetries,
		maxRowLimit:        maxRowLimit,
		schemaPromptBudget: schemaBudget,
		historyPromptTurns: historyTurns,
		logger:             logger,
	}, nil
}

// Translate runs a bounded retry loop: a response that does not parse as a
// single SELECT gets one corrective follow-up per remaining attempt, with the
// rejection reason embedded. Unsafe statements and schema mismatches fail
// immediately and are never re-prompted or executed.
func (t *Translator) Translate(ctx context.Context, req Request) (CandidateSQL, error) {
	if strings.TrimSpace(req.Question) == "" {
		return CandidateSQL{}, fmt.Errorf("question is required")
	}
	if req.Snapshot == nil {
		return CandidateSQL{}, fmt.Errorf("schema snapshot is required")
	}

	messages := buildMessages(req, t.schemaPromptBudget, t.historyPromptTurns)
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		observability.ObserveTranslationAttempt(attempt > 0)

		raw, err := t.completer.Complete(ctx, messages)
		if err != nil {
			return CandidateSQL{}, fmt.Errorf("%w: %v", ErrTranslation, err)
		}

		sqlText := stripMarkdownSQL(raw)
		candidate, err := Validate(sqlText, req.Snapshot, t.maxRowLimit)
		if err == nil {
			t.logger.DebugContext(ctx, "translation accepted",
				slog.Int("attempt", attempt+1),
				slog.Int("sql_len", len(candidate.SQL())),
			)
			return candidate, nil
		}

		var mismatch *SchemaMismatchError
		switch {
		case errors.Is(err, ErrUnsafeStatement):
			observability.IncrementTranslationRejection("unsafe")
			return CandidateSQL{}, err
		case errors.As(err, &mismatch):
			observability.IncrementTranslationRejection("schema_mismatch")
			return CandidateSQL{}, err
		}

		observability.IncrementTranslationRejection("parse")
		t.logger.DebugContext(ctx, "translation rejected, retrying",
			slog.Int("attempt", attempt+1),
			slog.String("reason", err.Error()),
		)
		lastErr = err
		messages = append(messages,
			llm.Message{Role: "assistant", Content: raw},
			llm.Message{Role: "user", Content: correctivePrompt(err.Error())},
		)
	}
	return CandidateSQL{}, fmt.Errorf("%w after %d attempts: %v", ErrTranslation, t.maxRetries+1, lastErr)
}
