package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/heizer23/Atlas/pkg/gateway"
	"github.com/heizer23/Atlas/pkg/util"
)

func NewRouter(h *gateway.Handler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", healthCheckHandler)

	// MCP endpoint: POST carries envelopes, DELETE terminates a session.
	r.Post("/mcp", h.ServeRPC)
	r.Delete("/mcp", h.Terminate)

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, map[string]string{"status": "ok"})
}
