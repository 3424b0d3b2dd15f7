package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GetSnapshotHandler serves the cached preview frame for a stream. The grid
// polls this endpoint; the bytes come from the resource cache, never from a
// direct upstream fetch.
func (h *Handlers) GetSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	handle := h.cache.Get(streamID)
	if handle == nil {
		http.Error(w, "No snapshot available", http.StatusNotFound)
		return
	}

	data := handle.Bytes()
	if data == nil {
		// Handle освобождён между Get и Bytes
		http.Error(w, "No snapshot available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
