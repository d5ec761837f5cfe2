package inventory

import (
	"sync"

	"github.com/matt653/high-life-auto-sub000/pkg/differ"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for vehicle events
type (
	// VehicleAddedHook is called when an ingestion adds a vehicle
	VehicleAddedHook func(view vehicles.View)

	// VehicleUpdatedHook is called when a vehicle's base data or enhancement changes
	VehicleUpdatedHook func(old, new vehicles.View)

	// VehicleRemovedHook is called when a vehicle disappears from the feeds
	VehicleRemovedHook func(view vehicles.View)
)

// Hooks provides event callback registration.
type Hooks interface {
	// OnVehicleAdded registers a callback for when vehicles are added
	OnVehicleAdded(VehicleAddedHook)

	// OnVehicleUpdated registers a callback for when vehicles are updated
	OnVehicleUpdated(VehicleUpdatedHook)

	// OnVehicleRemoved registers a callback for when vehicles are removed
	OnVehicleRemoved(VehicleRemovedHook)
}

// hooks manages event callbacks for inventory changes
type hooks struct {
	mu               sync.RWMutex
	onVehicleAdded   []VehicleAddedHook
	onVehicleUpdated []VehicleUpdatedHook
	onVehicleRemoved []VehicleRemovedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnVehicleAdded registers a callback for when vehicles are added.
func (c *client) OnVehicleAdded(fn VehicleAddedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onVehicleAdded = append(c.hooks.onVehicleAdded, fn)
}

// OnVehicleUpdated registers a callback for when vehicles are updated.
func (c *client) OnVehicleUpdated(fn VehicleUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onVehicleUpdated = append(c.hooks.onVehicleUpdated, fn)
}

// OnVehicleRemoved registers a callback for when vehicles are removed.
func (c *client) OnVehicleRemoved(fn VehicleRemovedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onVehicleRemoved = append(c.hooks.onVehicleRemoved, fn)
}

// triggerChangeset fires hooks for a base changeset. Views are looked up in
// the merged sets before and after the ingestion.
func (h *hooks) triggerChangeset(changes *differ.Changeset, before, after map[string]vehicles.View) {
	if changes == nil || changes.IsEmpty() {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, v := range changes.Added {
		view := after[v.Identity.Key]
		for _, hook := range h.onVehicleAdded {
			hook(view.Clone())
		}
	}

	for _, u := range changes.Updated {
		oldView, newView := before[u.ID], after[u.ID]
		for _, hook := range h.onVehicleUpdated {
			hook(oldView.Clone(), newView.Clone())
		}
	}

	for _, v := range changes.Removed {
		view := before[v.Identity.Key]
		for _, hook := range h.onVehicleRemoved {
			hook(view.Clone())
		}
	}
}

// triggerUpdated fires update hooks for a single view.
func (h *hooks) triggerUpdated(old, new vehicles.View) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onVehicleUpdated {
		hook(old.Clone(), new.Clone())
	}
}
