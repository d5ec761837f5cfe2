package inventory

import (
	"context"
	"time"

	"github.com/matt653/high-life-auto-sub000/pkg/identity"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Compile-time interface check to ensure proper implementation.
var _ Inventory = (*client)(nil)

// Inventory provides read access to the merged inventory.
type Inventory interface {
	// Vehicles returns a copy of every merged view, in feed order.
	Vehicles() []vehicles.View

	// Base returns a copy of the current base set.
	Base() []vehicles.Vehicle

	// Lookup returns the merged view from the last ingestion without
	// consulting any source.
	Lookup(id string) (vehicles.View, bool)

	// Vehicle resolves one vehicle through the load-order controller.
	Vehicle(ctx context.Context, id string) (*loader.Resolution, error)

	// Watch streams every state change while resolving one vehicle.
	Watch(ctx context.Context, id string) (<-chan loader.Update, error)

	// Stats reports on the current inventory.
	Stats() Stats
}

// Stats describes the inventory held by a client.
type Stats struct {
	Vehicles   int            `json:"vehicles"`
	Enhanced   int            `json:"enhanced"`
	Synthetic  int            `json:"synthetic"`
	Orphaned   int            `json:"orphaned"`
	Ingests    int            `json:"ingests"`
	LastBatch  identity.Batch `json:"lastBatch"`
	LastIngest time.Time      `json:"lastIngest"`
	Resolve    identity.Stats `json:"resolve"`
	Feeds      []string       `json:"feeds"`
	Protected  []string       `json:"protected"`
}

// Vehicles returns a copy of every merged view.
func (c *client) Vehicles() []vehicles.View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]vehicles.View, len(c.views))
	for i, v := range c.views {
		out[i] = v.Clone()
	}
	return out
}

// Base returns a copy of the current base set.
func (c *client) Base() []vehicles.Vehicle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]vehicles.Vehicle, len(c.base))
	for i, v := range c.base {
		out[i] = v.Clone()
	}
	return out
}

// Lookup returns the merged view held from the last ingestion.
func (c *client) Lookup(id string) (vehicles.View, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, key := range vehicles.LookupKeys(id) {
		if i, ok := c.index[key]; ok {
			return c.views[i].Clone(), true
		}
	}
	return vehicles.View{}, false
}

// Vehicle resolves one vehicle. The result always carries a terminal state
// unless the context is canceled first. A superseded resolution is returned
// alongside an error matching errors.ErrSuperseded.
func (c *client) Vehicle(ctx context.Context, id string) (*loader.Resolution, error) {
	return c.loader.Resolve(ctx, id)
}

// Watch streams the state changes of one resolution.
func (c *client) Watch(ctx context.Context, id string) (<-chan loader.Update, error) {
	return c.loader.Watch(ctx, id)
}

// Stats reports on the current inventory.
func (c *client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Vehicles:   len(c.views),
		Orphaned:   len(c.orphaned),
		Ingests:    c.ingests,
		LastBatch:  c.lastBatch,
		LastIngest: c.lastAt,
		Resolve:    c.lastStats,
		Feeds:      c.pipeline.names(),
		Protected:  c.reconciler.Table().Protected(),
	}
	for _, v := range c.views {
		if v.Enhanced {
			s.Enhanced++
		}
		if !v.Stable() {
			s.Synthetic++
		}
	}
	return s
}
