// Package enhancer defines the capability the core needs from whatever keeps
// enhancement records, plus in-process implementations.
//
// An adapter may be slow, remote or flaky. Callers wrap it with Guard so a
// failure or timeout degrades to "absent" and the merged view falls back to
// base-only data.
package enhancer

import (
	"context"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Adapter fetches enhancement records by identity.
type Adapter interface {
	// FetchOne returns the record for id. A nil record with a nil error
	// means the identity has no enhancement.
	FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error)

	// FetchAll returns every known record keyed by identity key.
	FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error)
}

// Store is an Adapter that can also be written to by the editing surface.
type Store interface {
	Adapter

	// Put inserts or replaces the record for e.Identity.
	Put(ctx context.Context, e *vehicles.Enhancement) error
}

// Nop returns an adapter that never has data.
func Nop() Adapter {
	return nop{}
}

type nop struct{}

func (nop) FetchOne(context.Context, vehicles.Identity) (*vehicles.Enhancement, error) {
	return nil, nil
}

func (nop) FetchAll(context.Context) (map[string]*vehicles.Enhancement, error) {
	return map[string]*vehicles.Enhancement{}, nil
}

// Funcs adapts plain functions to Adapter. A nil function behaves like Nop.
type Funcs struct {
	One func(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error)
	All func(ctx context.Context) (map[string]*vehicles.Enhancement, error)
}

// FetchOne calls f.One.
func (f Funcs) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	if f.One == nil {
		return nil, nil
	}
	return f.One(ctx, id)
}

// FetchAll calls f.All.
func (f Funcs) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	if f.All == nil {
		return map[string]*vehicles.Enhancement{}, nil
	}
	return f.All(ctx)
}

// Ensure implementations satisfy the interfaces.
var (
	_ Adapter = nop{}
	_ Adapter = Funcs{}
	_ Store   = (*Memory)(nil)
	_ Adapter = (*Guarded)(nil)
	_ Adapter = (*Chain)(nil)
)
