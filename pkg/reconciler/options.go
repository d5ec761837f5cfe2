package reconciler

import (
	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
)

// options configures a reconciler.
type options struct {
	table    *authority.Table
	tracking bool
	tracker  provenance.Tracker
}

func defaultOptions() *options {
	return &options{
		table:    authority.Default(),
		tracking: true,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options)

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithTable sets the precedence table. A nil table keeps the default.
func WithTable(table *authority.Table) Option {
	return func(o *options) {
		if table != nil {
			o.table = table
		}
	}
}

// WithProvenance enables or disables the per-view provenance map.
func WithProvenance(enabled bool) Option {
	return func(o *options) {
		o.tracking = enabled
	}
}

// WithTracker records every merged view's provenance into tracker during
// MergeAll.
func WithTracker(tracker provenance.Tracker) Option {
	return func(o *options) {
		o.tracker = tracker
	}
}
