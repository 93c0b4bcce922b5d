package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-remote/internal/domain/model"
	"github.com/edumarques81/stellar-remote/internal/infra/cache"
	"github.com/edumarques81/stellar-remote/internal/transport/socketio"
	"github.com/edumarques81/stellar-remote/internal/version"
)

// statsSource reports the image index size.
type statsSource interface {
	GetStats() (*cache.Stats, error)
}

// imageStore drops every cached image.
type imageStore interface {
	Clear() error
}

type routes struct {
	socket   http.Handler
	model    *model.Model
	stats    statsSource
	images   imageStore
	imageDir string
}

// newMux builds the HTTP surface: the Socket.io endpoint, a few read-only
// JSON endpoints and the cached images.
func newMux(r routes) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/socket.io/", r.socket)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		connected := r.model.Connected.Get()
		status, code := "ok", http.StatusOK
		if !connected {
			status, code = "disconnected", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": status, "connected": connected})
	})

	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.GetInfo())
	})

	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, socketio.State(r.model))
	})

	mux.HandleFunc("DELETE /api/v1/images", func(w http.ResponseWriter, _ *http.Request) {
		if err := r.images.Clear(); err != nil {
			log.Error().Err(err).Msg("Failed to clear image cache")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/v1/images/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats, err := r.stats.GetStats()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	mux.Handle(socketio.ImagePrefix, http.StripPrefix(socketio.ImagePrefix, http.FileServer(http.Dir(r.imageDir))))

	return corsMiddleware(mux)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
