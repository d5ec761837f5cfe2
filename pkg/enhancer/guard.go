package enhancer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Guarded wraps an adapter so that it never fails. Errors and timeouts are
// logged and reported as absent data.
type Guarded struct {
	inner   Adapter
	timeout time.Duration
	logger  *zerolog.Logger
}

// Guard wraps adapter with a per-call timeout. A zero timeout uses
// constants.EnhancementTimeout; a nil adapter behaves like Nop.
func Guard(adapter Adapter, timeout time.Duration) *Guarded {
	if adapter == nil {
		adapter = Nop()
	}
	if g, ok := adapter.(*Guarded); ok {
		adapter = g.inner
	}
	if timeout <= 0 {
		timeout = constants.EnhancementTimeout
	}
	return &Guarded{inner: adapter, timeout: timeout}
}

// WithLogger sets the logger used for swallowed failures. By default the
// logger carried by the call context is used.
func (g *Guarded) WithLogger(logger *zerolog.Logger) *Guarded {
	g.logger = logger
	return g
}

// Unwrap returns the guarded adapter.
func (g *Guarded) Unwrap() Adapter {
	return g.inner
}

func (g *Guarded) log(ctx context.Context) *zerolog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return logging.FromContext(ctx)
}

// failure reports an expired call as a TimeoutError.
func (g *Guarded) failure(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(operation, g.timeout.String(), err.Error())
	}
	return err
}

// FetchOne returns the record for id, or nil on any failure. Synthetic
// identities are never looked up.
func (g *Guarded) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	if !id.Stable() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	e, err := g.inner.FetchOne(ctx, id)
	if err != nil {
		g.log(ctx).Warn().
			Err(g.failure("enhancement fetch", err)).
			Str("identity", id.Key).
			Dur("timeout", g.timeout).
			Msg("Enhancement fetch failed, continuing with base data")
		return nil, nil
	}
	if e == nil {
		return nil, nil
	}

	// the key we asked for is authoritative
	e = e.Clone()
	e.Identity = id
	return e, nil
}

// FetchAll returns every record keyed by a stable identity. On failure it
// returns an empty map.
func (g *Guarded) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	all, err := g.inner.FetchAll(ctx)
	if err != nil {
		g.log(ctx).Warn().
			Err(g.failure("enhancement bulk fetch", err)).
			Dur("timeout", g.timeout).
			Msg("Enhancement bulk fetch failed, continuing with base data")
		return map[string]*vehicles.Enhancement{}, nil
	}

	out := make(map[string]*vehicles.Enhancement, len(all))
	skipped := 0
	for key, e := range all {
		if e == nil {
			continue
		}
		id := e.Identity
		if id.IsZero() {
			id = vehicles.ParseIdentity(key)
		}
		if !id.Stable() {
			skipped++
			continue
		}
		out[key] = e
	}
	if skipped > 0 {
		g.log(ctx).Debug().
			Int("skipped", skipped).
			Msg("Ignored enhancements keyed by synthetic identities")
	}
	return out, nil
}
