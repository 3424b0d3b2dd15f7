package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/spignelon/roadvision-assignment/internal/models"
)

// GetDetectionsHandler returns the latest detection record for a stream.
// A known stream without a record yet gets an empty record, never a 404.
func (h *Handlers) GetDetectionsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	if _, ok := h.roster.Get(streamID); !ok {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}

	rec, ok := h.detections.Get(streamID)
	if !ok {
		rec = models.EmptyRecord()
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetHistoryHandler обработчик для получения архивных детекций по потоку
func (h *Handlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "History is not enabled", http.StatusNotImplemented)
		return
	}

	vars := mux.Vars(r)
	streamID := vars["stream_id"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.history.RecentDetections(r.Context(), streamID, limit)
	if err != nil {
		log.Warn().Msgf("History %s: query error: %v", streamID, err)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}
