package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vizbot/vizbot/internal/schema"
)

type schemaColumnPayload struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

type schemaTablePayload struct {
	Name    string                `json:"name"`
	Columns []schemaColumnPayload `json:"columns"`
}

type schemaPayload struct {
	FetchedAt string               `json:"fetched_at"`
	Tables    []schemaTablePayload `json:"tables"`
}

func handleGetSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "schema provider not configured", false, nil)
		return
	}
	snap, err := deps.Schema.Get(r.Context())
	if err != nil {
		writeSchemaError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotPayload(snap))
}

func handleRefreshSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "schema provider not configured", false, nil)
		return
	}
	snap, err := deps.Schema.Refresh(r.Context())
	if err != nil {
		writeSchemaError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotPayload(snap))
}

func writeSchemaError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, schema.ErrEmptySchema) {
		writeError(ctx, w, http.StatusServiceUnavailable, "EMPTY_SCHEMA", err.Error(), true, nil)
		return
	}
	writeError(ctx, w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true, nil)
}

func snapshotPayload(snap *schema.Snapshot) schemaPayload {
	tables := snap.Tables()
	payload := schemaPayload{
		FetchedAt: snap.FetchedAt().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Tables:    make([]schemaTablePayload, 0, len(tables)),
	}
	for _, table := range tables {
		columns := make([]schemaColumnPayload, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, schemaColumnPayload{
				Name:     column.Name,
				DataType: column.DataType,
				Nullable: column.Nullable,
			})
		}
		payload.Tables = append(payload.Tables, schemaTablePayload{Name: table.Name, Columns: columns})
	}
	return payload
}
