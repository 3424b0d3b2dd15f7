package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// VideoFeedHandler proxies the upstream multipart JPEG feed for the focused
// full-screen view. For the lifetime of the connection the stream is focused
// on the ViewGate, which drops it from background snapshot sweeps; the feed
// itself is the uncapped path and bypasses the scheduler entirely.
func (h *Handlers) VideoFeedHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID := vars["stream_id"]

	if _, ok := h.roster.Get(streamID); !ok {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}

	body, contentType, err := h.upstream.VideoFeed(r.Context(), streamID)
	if err != nil {
		log.Warn().Msgf("Feed %s: open error: %v", streamID, err)
		http.Error(w, "Failed to open video feed", http.StatusBadGateway)
		return
	}
	defer body.Close()

	h.gate.Focus(streamID)
	defer h.gate.UnfocusIf(streamID)
	log.Info().Msgf("Feed %s: focused view opened", streamID)

	if contentType == "" {
		contentType = "multipart/x-mixed-replace; boundary=frame"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	// Копируем фид пока клиент не отключится или upstream не закроет поток
	if _, err := io.Copy(newFlushWriter(w), body); err != nil && r.Context().Err() == nil {
		log.Debug().Msgf("Feed %s: copy ended: %v", streamID, err)
	}
	log.Info().Msgf("Feed %s: focused view closed", streamID)
}

// flushWriter flushes after every frame chunk so the browser renders frames
// as they arrive instead of buffering the multipart stream.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushWriter(w http.ResponseWriter) io.Writer {
	f, _ := w.(http.Flusher)
	return &flushWriter{w: w, f: f}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}
