// Package inventory reconciles dealer inventory feeds with separately
// maintained enhancement data and serves the merged vehicle views.
//
// A Client ingests one or more comma-delimited feeds, normalizes their
// inconsistent headers into canonical vehicle records, assigns each vehicle
// a stable identity and merges it with its enhancement record under a fixed
// precedence table. Price, stock number, year, make, model, VIN and base
// comments always come from the feed.
//
// Features:
// - Concurrent multi-feed ingestion with wholesale base replacement
// - Per-vehicle resolution through a forward-only load-order state machine
// - Event hooks for vehicles added, updated and removed
// - Periodic background re-ingestion
//
// Example usage:
//
//	client, err := inventory.New(
//	    inventory.WithFeeds(inventory.Feed{Name: "main-lot", URL: "https://dealer.example/feed.csv"}),
//	    inventory.WithEnhancements(enhancer.NewMemory()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.AutoUpdatesOff()
//
//	client.OnVehicleAdded(func(v vehicles.View) {
//	    log.Printf("New vehicle: %s %s", v.Identity, v.Make)
//	})
//
//	if _, err := client.Ingest(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Vehicle(ctx, "1G1JC12345")
//	if err == nil && !res.NotFound {
//	    fmt.Println(res.State, res.View.Price)
//	}
package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/pkg/differ"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/identity"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
	"github.com/matt653/high-life-auto-sub000/pkg/reconciler"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Client manages the merged inventory with automatic updates and event hooks.
type Client interface {

	// Inventory provides copy-on-read access to merged views
	Inventory

	// Ingester runs feed ingestion
	Ingester

	// Enhancements provides access to enhancement records
	Enhancements

	// AutoUpdater provides access to automatic update controls
	AutoUpdater

	// Hooks provides access to event callback registration
	Hooks
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options
	logger  *zerolog.Logger

	// pipeline stages
	pipeline   *pipeline
	enh        enhancer.Adapter // raw adapter, errors visible
	guard      *enhancer.Guarded
	reconciler *reconciler.Reconciler
	recOpts    []reconciler.Option
	differ     differ.Differ
	loader     *loader.Controller

	// current state, replaced wholesale by each ingestion
	mu        sync.RWMutex
	base      []vehicles.Vehicle
	views     []vehicles.View
	index     map[string]int
	lastBatch identity.Batch
	lastStats identity.Stats
	orphaned  []string
	tracker   provenance.Tracker
	ingests   int
	lastAt    time.Time

	// serializes ingestions
	ingestMu sync.Mutex

	// auto update state
	updateTicker *time.Ticker       // update ticker to trigger auto-updates
	stopCh       chan struct{}      // stop channel to stop auto-updates
	updateCancel context.CancelFunc // Cancel function for update goroutine
	autoMu       sync.Mutex
	hooks        *hooks // Event hooks for inventory changes
}

// New creates a new Client instance with the given options.
func New(opts ...Option) (Client, error) {
	o := defaults().apply(opts...)

	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}

	sources, err := compileFeeds(o.feeds, o.httpClient)
	if err != nil {
		return nil, err
	}

	enh := o.enhancements
	if enh == nil {
		enh = enhancer.Nop()
	}

	recOpts := []reconciler.Option{reconciler.WithTable(o.table)}

	c := &client{
		options: o,
		logger:  logger,
		pipeline: &pipeline{
			sources:  sources,
			resolver: identity.NewResolver(identity.WithLogger(logger)),
		},
		enh:        enh,
		guard:      enhancer.Guard(enh, o.enhancementTimeout).WithLogger(logger),
		reconciler: reconciler.New(recOpts...),
		recOpts:    recOpts,
		differ:     differ.New(),
		tracker:    provenance.NewTracker(true),
		index:      make(map[string]int),
		stopCh:     make(chan struct{}),
		hooks:      newHooks(),
	}

	c.loader = loader.New(
		loader.BaseFunc(c.pipeline.lookup),
		enh,
		loader.WithNavState(o.nav),
		loader.WithSnapshots(o.snapshots),
		loader.WithDeadline(o.deadline),
		loader.WithEnhancementTimeout(o.enhancementTimeout),
		loader.WithReconcilerOptions(recOpts...),
		loader.WithLogger(logger),
	)

	logger.Debug().
		Strs("feeds", c.pipeline.names()).
		Dur("deadline", o.deadline).
		Msg("Inventory client created")

	// start auto-updates if enabled
	if o.autoUpdatesEnabled {
		if err := c.AutoUpdatesOn(); err != nil {
			return nil, errors.WrapResource("start", "auto-updates", "", err)
		}
	}

	return c, nil
}
