package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/nl2sql"
	"github.com/vizbot/vizbot/internal/schema"
)

// writePipelineError maps the pipeline error taxonomy onto HTTP responses.
// Every case is recoverable at this boundary; nothing here panics or crashes.
func writePipelineError(ctx context.Context, w http.ResponseWriter, err error) {
	var mismatch *nl2sql.SchemaMismatchError
	switch {
	case errors.Is(err, schema.ErrEmptySchema):
		writeError(ctx, w, http.StatusServiceUnavailable, "EMPTY_SCHEMA", err.Error(), true, nil)
	case errors.Is(err, nl2sql.ErrUnsafeStatement):
		writeError(ctx, w, http.StatusUnprocessableEntity, "UNSAFE_STATEMENT", err.Error(), false, nil)
	case errors.As(err, &mismatch):
		writeError(ctx, w, http.StatusUnprocessableEntity, "SCHEMA_MISMATCH", err.Error(), false, map[string]any{
			"identifier": mismatch.Identifier,
			"kind":       mismatch.Kind,
		})
	case errors.Is(err, nl2sql.ErrTranslation):
		writeError(ctx, w, http.StatusBadGateway, "TRANSLATION_FAILED", err.Error(), true, nil)
	case errors.Is(err, executor.ErrNotValidated):
		writeError(ctx, w, http.StatusInternalServerError, "INVALID_STATE", err.Error(), false, nil)
	case errors.Is(err, executor.ErrQueryTimeout):
		writeError(ctx, w, http.StatusGatewayTimeout, "QUERY_TIMEOUT", err.Error(), true, nil)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", err.Error(), true, nil)
	}
}
