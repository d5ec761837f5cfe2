package inventory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/differ"
	"github.com/matt653/high-life-auto-sub000/pkg/identity"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
	"github.com/matt653/high-life-auto-sub000/pkg/reconciler"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Compile-time interface check to ensure proper implementation.
var _ Ingester = (*client)(nil)

// Ingester runs full ingestion passes.
type Ingester interface {
	// Ingest fetches every feed, resolves identities, merges enhancements
	// and replaces the held inventory. On any feed failure the held
	// inventory is left unchanged.
	Ingest(ctx context.Context) (*IngestResult, error)

	// ProvenanceReport lists, per held vehicle, which fields came from the
	// feed and which from its enhancement.
	ProvenanceReport() *provenance.Report
}

// BatchSaver is implemented by snapshot stores that can persist a whole
// ingestion at once.
type BatchSaver interface {
	SaveAll(ctx context.Context, views []vehicles.View) error
}

// IngestResult describes one completed ingestion.
type IngestResult struct {
	Batch     identity.Batch              `json:"batch"`
	Feeds     []FeedReport                `json:"feeds"`
	Resolve   identity.Stats              `json:"resolve"`
	Dropped   []identity.Drop             `json:"dropped,omitempty"`
	Merge     reconciler.ResultStatistics `json:"merge"`
	Orphaned  []string                    `json:"orphaned,omitempty"`
	Changeset *differ.Changeset           `json:"changeset"`
	Duration  time.Duration               `json:"duration"`
}

// Summary returns a one-line description of the ingestion.
func (r *IngestResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ingested %d vehicles from %d feeds in %v", r.Merge.Merged, len(r.Feeds), r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, " (%d enhanced, %d duplicates, %d discarded, %d orphaned)",
		r.Merge.Enhanced, r.Resolve.Duplicates, r.Resolve.Discarded, r.Merge.Orphaned)
	if r.Changeset != nil {
		b.WriteString(": ")
		b.WriteString(r.Changeset.String())
	}
	return b.String()
}

// Ingest runs one full pass and swaps in the new inventory.
func (c *client) Ingest(ctx context.Context) (*IngestResult, error) {
	c.ingestMu.Lock()
	defer c.ingestMu.Unlock()

	start := time.Now()
	ctx = logging.WithLogger(ctx, c.logger)

	resolved, reports, err := c.pipeline.run(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Ingestion failed, keeping previous inventory")
		return nil, err
	}

	// Enhancement failures never fail the ingestion.
	enhancements, _ := c.guard.FetchAll(ctx)
	tracker := provenance.NewTracker(true)
	merger := reconciler.New(append(slices.Clone(c.recOpts), reconciler.WithTracker(tracker))...)
	merged := merger.MergeAll(resolved.Vehicles, enhancements)

	index := make(map[string]int, len(merged.Views))
	for i, v := range merged.Views {
		index[v.Identity.Key] = i
	}

	c.mu.Lock()
	previousBase := c.base
	previousViews := c.views
	c.base = resolved.Vehicles
	c.views = merged.Views
	c.index = index
	c.lastBatch = resolved.Batch
	c.lastStats = resolved.Stats
	c.orphaned = merged.Orphaned
	c.tracker = tracker
	c.ingests++
	c.lastAt = time.Now().UTC()
	c.mu.Unlock()

	changes := c.differ.Vehicles(previousBase, resolved.Vehicles)

	result := &IngestResult{
		Batch:     resolved.Batch,
		Feeds:     reports,
		Resolve:   resolved.Stats,
		Dropped:   resolved.Dropped,
		Merge:     merged.Stats,
		Orphaned:  merged.Orphaned,
		Changeset: changes,
		Duration:  time.Since(start),
	}

	c.persist(ctx, merged.Views)

	before := viewIndex(previousViews)
	after := merged.Index()
	c.hooks.triggerChangeset(changes, before, after)
	c.triggerEnhancementChanges(changes, before, merged.Views)

	c.logger.Info().
		Str("batch", resolved.Batch.ID).
		Int("vehicles", merged.Stats.Merged).
		Int("enhanced", merged.Stats.Enhanced).
		Int("orphaned", merged.Stats.Orphaned).
		Int("added", changes.Summary.Added).
		Int("updated", changes.Summary.Updated).
		Int("removed", changes.Summary.Removed).
		Dur("duration", result.Duration).
		Msg("Ingestion complete")

	return result, nil
}

// ProvenanceReport summarizes field provenance for the held inventory.
func (c *client) ProvenanceReport() *provenance.Report {
	c.mu.RLock()
	tracker := c.tracker
	c.mu.RUnlock()
	return provenance.GenerateReport(tracker)
}

// triggerEnhancementChanges fires update hooks for views whose base record
// is unchanged but whose merged view differs, i.e. the enhancement changed
// between ingestions.
func (c *client) triggerEnhancementChanges(changes *differ.Changeset, before map[string]vehicles.View, after []vehicles.View) {
	updated := make(map[string]bool, len(changes.Updated))
	for _, u := range changes.Updated {
		updated[u.ID] = true
	}
	for _, v := range after {
		old, ok := before[v.Identity.Key]
		if !ok || updated[v.Identity.Key] {
			continue
		}
		if !reflect.DeepEqual(stripProvenance(old), stripProvenance(v)) {
			c.hooks.triggerUpdated(old, v)
		}
	}
}

// persist writes views to the navigation state and the snapshot store.
// Persistence failures are logged; the in-memory inventory is authoritative.
func (c *client) persist(ctx context.Context, views []vehicles.View) {
	if nav := c.options.nav; nav != nil {
		for _, v := range views {
			nav.Put(v.Clone())
		}
	}

	store := c.options.snapshots
	if store == nil || len(views) == 0 {
		return
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultTimeout)
	defer cancel()

	if bs, ok := store.(BatchSaver); ok {
		if err := bs.SaveAll(saveCtx, views); err != nil {
			c.logger.Warn().Err(err).Int("views", len(views)).Msg("Snapshot batch save failed")
		}
		return
	}
	for _, v := range views {
		if err := store.Save(saveCtx, v); err != nil {
			c.logger.Warn().Err(err).Str("identity", v.Identity.Key).Msg("Snapshot save failed")
		}
	}
}

func viewIndex(views []vehicles.View) map[string]vehicles.View {
	m := make(map[string]vehicles.View, len(views))
	for _, v := range views {
		m[v.Identity.Key] = v
	}
	return m
}

func stripProvenance(v vehicles.View) vehicles.View {
	v.Provenance = nil
	return v
}
