package server

import (
	"net/http"
	"time"

	"github.com/matt653/high-life-auto-sub000/internal/server/handlers"
	"github.com/matt653/high-life-auto-sub000/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux, s.handlers)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Probes
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Vehicles
	mux.HandleFunc("GET "+prefix+"/vehicles", h.HandleListVehicles)
	mux.HandleFunc("GET "+prefix+"/vehicles/{id}", h.HandleGetVehicle)
	mux.HandleFunc("GET "+prefix+"/vehicles/{id}/watch", h.HandleWatchVehicle)
	mux.HandleFunc("GET "+prefix+"/vehicles/{id}/enhancement", h.HandleGetEnhancement)
	mux.HandleFunc("PUT "+prefix+"/vehicles/{id}/enhancement", h.HandlePutEnhancement)

	// Enhancements
	mux.HandleFunc("GET "+prefix+"/enhancements/orphans", h.HandleOrphans)

	// Admin
	limiter := middleware.NewRateLimiter(s.config.IngestRateLimit, time.Minute, s.logger)
	mux.Handle("POST "+prefix+"/ingest", limiter.Middleware(http.HandlerFunc(h.HandleIngest)))
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Real-time
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)
}

// applyMiddleware wraps handler with the middleware chain. Recovery is
// outermost.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logger(s.logger),
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		}
		chain = append(chain, middleware.CORS(corsConfig))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		chain = append(chain, middleware.Auth(authConfig, s.logger))
	}

	return middleware.Chain(chain...)(handler)
}
