package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// GetConfigHandler проксирует текущий конфиг детекции внешнего сервиса
func (h *Handlers) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.upstream.Config(r.Context())
	if err != nil {
		log.Warn().Msgf("Config: fetch error: %v", err)
		http.Error(w, "Failed to fetch config", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateConfigHandler proxies a detection/motion tuning update upstream. The
// body may carry only the sections being changed; the service merges them
// and applies the result to every running stream.
func (h *Handlers) UpdateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || len(patch) == 0 {
		http.Error(w, "No data provided", http.StatusBadRequest)
		return
	}

	cfg, err := h.upstream.UpdateConfig(r.Context(), patch)
	if err != nil {
		log.Warn().Msgf("Config: update error: %v", err)
		http.Error(w, "Failed to update config", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
