package handlers

import (
	"net/http"
	"strconv"

	"media-forensics/internal/database"
	"media-forensics/internal/logging"
)

const defaultHistoryLimit = 50

// GetHistory returns the most recent persisted analyses, newest first.
// The limit query parameter caps the page size (default 50, max 500).
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSONError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if parsed > 500 {
			parsed = 500
		}
		limit = parsed
	}

	entries, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		logging.Error("History query failed: %v", err)
		writeJSONError(w, "history query failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []database.HistoryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}
