package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func encodeJSON(w io.Writer, payload any) {
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Debug().Msgf("Error writing response: %v", err)
	}
}

// GetStreamsHandler обработчик для получения текущего ростера
func (h *Handlers) GetStreamsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.roster.All())
}

// AddStreamHandler proxies stream creation to the upstream service and
// requests an immediate roster refresh so the new stream shows up without
// waiting for the next roster tick.
func (h *Handlers) AddStreamHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
		ID  string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return
	}

	id, err := h.upstream.AddStream(r.Context(), body.URL, body.ID)
	if err != nil {
		log.Warn().Msgf("Add stream failed: %v", err)
		http.Error(w, "Failed to add stream", http.StatusBadGateway)
		return
	}

	h.refresher.Refresh()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": "started"})
}

// GetStreamStatusHandler проксирует живой статус одного потока: для
// локальных файлов там есть progress, которого нет в кэшированном ростере
func (h *Handlers) GetStreamStatusHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	if _, ok := h.roster.Get(streamID); !ok {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}

	status, err := h.upstream.StreamStatus(r.Context(), streamID)
	if err != nil {
		log.Warn().Msgf("Status %s: fetch error: %v", streamID, err)
		http.Error(w, "Failed to fetch stream status", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DeleteStreamHandler proxies stream deletion and releases the local
// resources for the removed id right away.
func (h *Handlers) DeleteStreamHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	if err := h.upstream.DeleteStream(r.Context(), streamID); err != nil {
		log.Warn().Msgf("Delete stream %s failed: %v", streamID, err)
		http.Error(w, "Failed to delete stream", http.StatusBadGateway)
		return
	}

	// Освобождаем ресурсы сразу, не дожидаясь следующего roster-тика
	h.cache.Remove(streamID)
	h.detections.Remove(streamID)
	h.gate.UnfocusIf(streamID)
	h.refresher.Refresh()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
