// Package events provides the broker that fans inventory events out to the
// realtime transports (WebSocket and SSE).
package events

import "time"

// EventType represents the type of inventory event.
type EventType string

// Event types.
const (
	// Vehicle events (from client hooks).
	VehicleAdded   EventType = "vehicle.added"
	VehicleUpdated EventType = "vehicle.updated"
	VehicleRemoved EventType = "vehicle.removed"

	// Ingestion events.
	IngestStarted   EventType = "ingest.started"
	IngestCompleted EventType = "ingest.completed"
	IngestFailed    EventType = "ingest.failed"

	// EnhancementStored is published when the editing surface writes a record.
	EnhancementStored EventType = "enhancement.stored"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event represents an inventory event with type, timestamp, and data.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Identity  string    `json:"identity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
