package loader

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/reconciler"
)

// options configures a Controller.
type options struct {
	nav                NavState
	snapshots          SnapshotStore
	deadline           time.Duration
	enhancementTimeout time.Duration
	reconcilerOpts     []reconciler.Option
	logger             *zerolog.Logger
	now                func() time.Time
}

func defaultOptions() *options {
	return &options{
		deadline:           constants.ResolveDeadline,
		enhancementTimeout: constants.EnhancementTimeout,
		now:                time.Now,
	}
}

// Option is a function that configures a Controller.
type Option func(*options)

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithNavState sets the in-memory navigation state consulted first.
func WithNavState(nav NavState) Option {
	return func(o *options) {
		o.nav = nav
	}
}

// WithSnapshots sets the persisted snapshot store.
func WithSnapshots(store SnapshotStore) Option {
	return func(o *options) {
		o.snapshots = store
	}
}

// WithDeadline bounds a single resolution. Non-positive values keep the default.
func WithDeadline(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// WithEnhancementTimeout sets the per-call timeout for enhancement lookups.
func WithEnhancementTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.enhancementTimeout = d
		}
	}
}

// WithReconcilerOptions configures the merge step.
func WithReconcilerOptions(opts ...reconciler.Option) Option {
	return func(o *options) {
		o.reconcilerOpts = append(o.reconcilerOpts, opts...)
	}
}

// WithLogger sets the logger. By default the logger carried by the
// resolution context is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
