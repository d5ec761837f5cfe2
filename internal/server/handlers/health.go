package handlers

import (
	"net/http"

	"github.com/matt653/high-life-auto-sub000/internal/server/response"
)

// HandleHealth handles GET /health (liveness probe).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "inventory-api",
		"version": h.app.Version(),
	})
}

// HandleReady handles GET /ready. The service is ready once at least one
// ingestion has completed.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	c, ok := h.client(w)
	if !ok {
		return
	}

	stats := c.Stats()
	if stats.Ingests == 0 {
		response.ServiceUnavailable(w, "No ingestion has completed yet")
		return
	}

	response.OK(w, map[string]any{
		"status":      "ready",
		"vehicles":    stats.Vehicles,
		"last_ingest": stats.LastIngest,
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
