package loader

import (
	"context"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// NavState is the in-memory navigation state: views the current process has
// already shown. Lookups must not block.
type NavState interface {
	Get(id string) (vehicles.View, bool)
	Put(view vehicles.View)
}

// SnapshotStore is the persisted local snapshot cache. Load returns nil, nil
// when there is no snapshot for id.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*vehicles.View, error)
	Save(ctx context.Context, view vehicles.View) error
}

// BaseSource produces the fresh base record for one identity by running a
// full fetch, parse, normalize and resolve pass. It returns nil, nil when the
// feed was read and the identity is not in it.
type BaseSource interface {
	Base(ctx context.Context, id string) (*vehicles.Vehicle, error)
}

// BaseFunc adapts a function to BaseSource.
type BaseFunc func(ctx context.Context, id string) (*vehicles.Vehicle, error)

// Base calls f.
func (f BaseFunc) Base(ctx context.Context, id string) (*vehicles.Vehicle, error) {
	return f(ctx, id)
}

// IndexSource serves base records from an already resolved batch.
type IndexSource map[string]vehicles.Vehicle

// Base returns a copy of the indexed record.
func (s IndexSource) Base(_ context.Context, id string) (*vehicles.Vehicle, error) {
	v, ok := s[id]
	if !ok {
		return nil, nil
	}
	v = v.Clone()
	return &v, nil
}
