package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Compile-time interface check to ensure proper implementation.
var _ Enhancements = (*client)(nil)

// Enhancements provides access to the enhancement records.
type Enhancements interface {
	// Enhancement returns the record stored for id, or nil when none exists.
	// Store errors are returned, unlike during merging.
	Enhancement(ctx context.Context, id string) (*vehicles.Enhancement, error)

	// PutEnhancement stores a record and re-merges the held view.
	// Returns ErrReadOnly when the configured adapter cannot write.
	PutEnhancement(ctx context.Context, e *vehicles.Enhancement) error

	// Orphans lists enhancement identities with no vehicle in the base set.
	// Orphans are never deleted.
	Orphans(ctx context.Context) ([]string, error)
}

// Enhancement returns the stored record for id.
func (c *client) Enhancement(ctx context.Context, id string) (*vehicles.Enhancement, error) {
	ident := vehicles.ParseIdentity(id)
	if ident.IsZero() {
		return nil, errors.NewValidationError("identity", id, "is empty")
	}
	if !ident.Stable() {
		return nil, fmt.Errorf("identity %s: %w: %w", ident.Key, errors.ErrUnstableIdentity, errors.ErrInvalidInput)
	}
	e, err := c.enh.FetchOne(ctx, ident)
	if err != nil {
		return nil, errors.WrapStore("enhancements", "get", ident.Key, err)
	}
	return e, nil
}

// PutEnhancement stores e and, when its vehicle is held, re-merges the view
// and fires the updated hooks.
func (c *client) PutEnhancement(ctx context.Context, e *vehicles.Enhancement) error {
	store, ok := c.enh.(enhancer.Store)
	if !ok {
		return fmt.Errorf("put enhancement: %w", errors.ErrReadOnly)
	}
	if err := enhancer.Validate(e); err != nil {
		return err
	}
	e = e.Clone()
	e.Identity = e.Identity.Normalize()
	if err := store.Put(ctx, e); err != nil {
		return errors.WrapStore("enhancements", "put", e.Identity.Key, err)
	}

	c.logger.Info().Str("identity", e.Identity.Key).Msg("Enhancement stored")

	c.mu.Lock()
	i, held := c.index[e.Identity.Key]
	if !held {
		c.mu.Unlock()
		return nil
	}
	before := c.views[i]
	after := c.reconciler.Merge(c.base[i], e)
	c.views = slices.Clone(c.views)
	c.views[i] = after
	for field, p := range after.Provenance {
		c.tracker.Track(after.Identity.Key, field, p)
	}
	c.mu.Unlock()

	if ignored := after.Provenance.Protected(); len(ignored) > 0 {
		c.logger.Warn().
			Str("identity", e.Identity.Key).
			Strs("fields", ignored).
			Msg("Enhancement overrides protected fields, feed values kept")
	}

	c.persist(ctx, []vehicles.View{after})
	c.hooks.triggerUpdated(before, after)
	return nil
}

// Orphans lists enhancement identities with no vehicle in the base set.
func (c *client) Orphans(ctx context.Context) ([]string, error) {
	all, err := c.enh.FetchAll(ctx)
	if err != nil {
		return nil, errors.WrapStore("enhancements", "list", "", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var orphans []string
	for key, e := range all {
		if e == nil {
			continue
		}
		if _, ok := c.index[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}
