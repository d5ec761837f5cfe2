package enhancer

import (
	"context"
	"fmt"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

var _ Store = (*Chain)(nil)

// Layer gives an adapter a name inside a Chain.
type Layer struct {
	Name    string
	Adapter Adapter
}

// Chain consults several adapters in order. The first layer that has a
// record for an identity wins; later layers are only asked on a miss.
// Writes go to the first layer only.
type Chain struct {
	layers []Layer
}

// NewChain creates a chain. Nil adapters are skipped.
func NewChain(layers ...Layer) *Chain {
	c := &Chain{}
	for _, l := range layers {
		if l.Adapter != nil {
			c.layers = append(c.layers, l)
		}
	}
	return c
}

// Name returns "chain(a,b)".
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.layers))
	for _, l := range c.layers {
		names = append(names, l.Name)
	}
	return fmt.Sprintf("chain(%s)", strings.Join(names, ","))
}

// FetchOne returns the first layer's record for id. A failing layer is
// logged and skipped; an error is returned only when every layer failed.
func (c *Chain) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	var failed int
	var last error
	for _, l := range c.layers {
		e, err := l.Adapter.FetchOne(ctx, id)
		if err != nil {
			logging.FromContext(ctx).Debug().
				Err(err).
				Str("layer", l.Name).
				Str("identity", id.Key).
				Msg("Enhancement layer failed")
			failed++
			last = err
			continue
		}
		if e != nil {
			return e, nil
		}
	}
	if failed > 0 && failed == len(c.layers) {
		return nil, errors.WrapResource("fetch", "enhancement", id.Key, last)
	}
	return nil, nil
}

// FetchAll combines every layer. Earlier layers take precedence on key
// collisions.
func (c *Chain) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	out := make(map[string]*vehicles.Enhancement)
	var failed int
	var last error
	for i := len(c.layers) - 1; i >= 0; i-- {
		l := c.layers[i]
		all, err := l.Adapter.FetchAll(ctx)
		if err != nil {
			failed++
			last = err
			continue
		}
		for k, e := range all {
			out[k] = e
		}
	}
	if failed > 0 && failed == len(c.layers) {
		return nil, errors.WrapResource("fetch", "enhancements", c.Name(), last)
	}
	return out, nil
}

// Put writes e to the first layer. It fails with errors.ErrReadOnly when
// that layer cannot store records.
func (c *Chain) Put(ctx context.Context, e *vehicles.Enhancement) error {
	if len(c.layers) > 0 {
		if s, ok := c.layers[0].Adapter.(Store); ok {
			return s.Put(ctx, e)
		}
	}
	return fmt.Errorf("put enhancement via %s: %w", c.Name(), errors.ErrReadOnly)
}
