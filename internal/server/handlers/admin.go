package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/matt653/high-life-auto-sub000/internal/server/events"
	"github.com/matt653/high-life-auto-sub000/internal/server/response"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
)

// HandleIngest handles POST /ingest. It runs one full ingestion pass and
// returns its result. On failure the previous inventory keeps being served.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w)
	if !ok {
		return
	}

	h.broker.Publish(events.IngestStarted, map[string]any{
		"trigger": "api",
	})

	ctx, cancel := context.WithTimeout(r.Context(), constants.UpdateContextTimeout)
	defer cancel()

	result, err := c.Ingest(ctx)
	if err != nil {
		h.broker.Publish(events.IngestFailed, map[string]any{
			"error": err.Error(),
		})
		response.ErrorFromType(w, err)
		return
	}

	h.Invalidate()
	h.broker.Publish(events.IngestCompleted, map[string]any{
		"batch":    result.Batch.ID,
		"vehicles": result.Merge.Merged,
		"added":    result.Changeset.Summary.Added,
		"updated":  result.Changeset.Summary.Updated,
		"removed":  result.Changeset.Summary.Removed,
		"summary":  result.Summary(),
	})

	response.OK(w, result)
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	c, ok := h.client(w)
	if !ok {
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	response.OK(w, map[string]any{
		"inventory": c.Stats(),
		"runtime": map[string]any{
			"goroutines":   runtime.NumGoroutine(),
			"heap_alloc":   mem.HeapAlloc,
			"num_gc":       mem.NumGC,
			"generated_at": time.Now().UTC(),
		},
		"events": map[string]any{
			"subscribers": h.broker.SubscriberCount(),
			"published":   h.broker.EventsPublished(),
			"dropped":     h.broker.EventsDropped(),
			"queue_depth": h.broker.QueueDepth(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
		"cache": h.cache.GetStats(),
	})
}

// HandleOrphans handles GET /enhancements/orphans: enhancement records whose
// vehicle is no longer in any feed.
func (h *Handlers) HandleOrphans(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w)
	if !ok {
		return
	}

	orphans, err := c.Orphans(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if orphans == nil {
		orphans = []string{}
	}
	response.OK(w, map[string]any{
		"orphans": orphans,
		"count":   len(orphans),
	})
}
