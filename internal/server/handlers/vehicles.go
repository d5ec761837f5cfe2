package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/matt653/high-life-auto-sub000/internal/server/events"
	"github.com/matt653/high-life-auto-sub000/internal/server/filter"
	"github.com/matt653/high-life-auto-sub000/internal/server/response"
	"github.com/matt653/high-life-auto-sub000/internal/server/sse"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// VehicleList is the payload of GET /vehicles.
type VehicleList struct {
	Vehicles []vehicles.View `json:"vehicles"`
	Total    int             `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// HandleListVehicles handles GET /vehicles.
func (h *Handlers) HandleListVehicles(w http.ResponseWriter, r *http.Request) {
	f, err := filter.ParseVehicleFilter(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	key := vehiclesKeyPrefix + r.URL.Query().Encode()
	if cached, found := h.cache.Get(key); found {
		response.OK(w, cached)
		return
	}

	c, ok := h.client(w)
	if !ok {
		return
	}

	matched := f.Apply(c.Vehicles())
	result := VehicleList{
		Vehicles: f.Page(matched),
		Total:    len(matched),
		Limit:    f.Limit,
		Offset:   f.Offset,
	}

	h.cache.Set(key, result)
	response.OK(w, result)
}

// HandleGetVehicle handles GET /vehicles/{id}. The vehicle is resolved
// through the load-order controller; the response carries the terminal
// state and the transitions taken.
func (h *Handlers) HandleGetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, ok := h.client(w)
	if !ok {
		return
	}

	res, err := c.Vehicle(r.Context(), id)
	if err != nil && !(errors.IsSuperseded(err) && res != nil) {
		response.ErrorFromType(w, err)
		return
	}
	if res.NotFound {
		response.NotFound(w, "Vehicle not found", "No feed, cache or snapshot knows "+id)
		return
	}
	response.OK(w, res)
}

// HandleWatchVehicle handles GET /vehicles/{id}/watch. Each state the
// load-order controller enters is streamed as one SSE event; the stream ends
// when resolution reaches a terminal state.
func (h *Handlers) HandleWatchVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, ok := h.client(w)
	if !ok {
		return
	}

	updates, err := c.Watch(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	flusher, ok := sse.Stream(w)
	if !ok {
		response.InternalError(w, errors.New("streaming unsupported"))
		return
	}

	for u := range updates {
		if err := sse.Write(w, sse.Event{
			Event: string(u.State),
			ID:    strconv.FormatUint(u.Seq, 10),
			Data:  u,
		}); err != nil {
			h.logger.Debug().Err(err).Str("identity", id).Msg("Watch stream closed")
			return
		}
		flusher.Flush()
	}
}

// HandleGetEnhancement handles GET /vehicles/{id}/enhancement.
func (h *Handlers) HandleGetEnhancement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, ok := h.client(w)
	if !ok {
		return
	}

	e, err := c.Enhancement(r.Context(), id)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if e == nil {
		response.NotFound(w, "Enhancement not found", "No enhancement is stored for "+id)
		return
	}
	response.OK(w, e)
}

// HandlePutEnhancement handles PUT /vehicles/{id}/enhancement. The path
// identity is authoritative; a body identity, if present, must agree.
func (h *Handlers) HandlePutEnhancement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var e vehicles.Enhancement
	body := http.MaxBytesReader(w, r.Body, constants.MaxEnhancementBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "Enhancement too large", err.Error())
			return
		}
		response.BadRequest(w, "Invalid enhancement body", err.Error())
		return
	}

	ident := vehicles.ParseIdentity(id)
	if !e.Identity.IsZero() && e.Identity.Key != ident.Key {
		response.ErrorFromType(w, errors.NewValidationError("identity", e.Identity.Key, "does not match path identity "+ident.Key))
		return
	}
	if e.Identity.Kind == "" || e.Identity.IsZero() {
		e.Identity = ident
	}

	c, ok := h.client(w)
	if !ok {
		return
	}
	if err := c.PutEnhancement(r.Context(), &e); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	h.Invalidate()
	h.broker.PublishVehicle(events.EnhancementStored, e.Identity.Key, map[string]any{
		"identity": e.Identity.Key,
	})

	stored, err := c.Enhancement(r.Context(), e.Identity.Key)
	if err != nil || stored == nil {
		response.OK(w, e)
		return
	}
	response.OK(w, stored)
}
