// Package handlers provides HTTP request handlers for the inventory API.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	inventory "github.com/matt653/high-life-auto-sub000"
	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cache"
	"github.com/matt653/high-life-auto-sub000/internal/server/events"
	"github.com/matt653/high-life-auto-sub000/internal/server/response"
	"github.com/matt653/high-life-auto-sub000/internal/server/sse"
	ws "github.com/matt653/high-life-auto-sub000/internal/server/websocket"
)

// Cache key prefixes. Every key a handler stores starts with one of these so
// writes can invalidate precisely.
const (
	vehiclesKeyPrefix = "vehicles:"
	statsKey          = "stats"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	app            application.Application
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
}

// New creates a new Handlers instance.
func New(
	app application.Application,
	cache *cache.Cache,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		app:            app,
		cache:          cache,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
	}
}

// Invalidate drops every cached response derived from inventory state.
func (h *Handlers) Invalidate() {
	h.cache.DeletePrefix(vehiclesKeyPrefix)
	h.cache.Delete(statsKey)
}

// client returns the inventory client or writes a 503.
func (h *Handlers) client(w http.ResponseWriter) (inventory.Client, bool) {
	c, err := h.app.Client()
	if err != nil {
		h.logger.Error().Err(err).Msg("Inventory client unavailable")
		response.ServiceUnavailable(w, "Inventory not available")
		return nil, false
	}
	return c, true
}

// pathID returns the trimmed {id} path value or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		response.BadRequest(w, "Vehicle identity required", "")
		return "", false
	}
	return id, true
}
