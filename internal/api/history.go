package api

import (
	"net/http"
	"strconv"

	"github.com/vizbot/vizbot/internal/history"
)

const defaultHistoryLimit = 20

type historyResponse struct {
	Entries []history.Entry `json:"entries"`
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "history store not configured", false, nil)
		return
	}

	session := sessionID(r)
	if session == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_SESSION", "X-Session-ID header is required", false, nil)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	entries, err := deps.History.Recent(r.Context(), session, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Entries: entries})
}
