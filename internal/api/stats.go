package api

import (
	"net/http"
)

// GetStatsHandler returns the last fetched aggregate statistics snapshot.
func (h *Handlers) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Latest())
}
