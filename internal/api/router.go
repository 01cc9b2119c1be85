package api

import (
	"net/http"

	"github.com/triage-ai/phishguard/internal/engine"
	"github.com/triage-ai/phishguard/internal/storage"
	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Engine       *engine.Engine
	Writer       storage.EventWriter
	Logger       *zap.Logger
	MaxBodyBytes int64 // 0 = unlimited
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /detect", deps.handleDetect)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
