package handlers

import (
	"net/http"

	"github.com/matt653/high-life-auto-sub000/internal/server/events"
	ws "github.com/matt653/high-life-auto-sub000/internal/server/websocket"
)

// HandleWebSocket handles WebSocket connections at /updates/ws. Repeated
// id query parameters restrict vehicle events to those identities.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, r.URL.Query()["id"]...)
	h.wsHub.Register(client)

	h.broker.Publish(events.ClientConnected, map[string]any{
		"client_id": client.ID(),
		"transport": "websocket",
		"watching":  r.URL.Query()["id"],
	})

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles Server-Sent Events at /updates/stream.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sseBroadcaster.ServeHTTP(w, r)
}
