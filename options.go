package inventory

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/internal/transport"
	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
)

// options holds the configuration of a client.
type options struct {
	feeds              []Feed
	enhancements       enhancer.Adapter
	snapshots          loader.SnapshotStore
	nav                loader.NavState
	table              *authority.Table
	httpClient         *transport.Client
	deadline           time.Duration
	enhancementTimeout time.Duration
	autoUpdatesEnabled bool
	autoUpdateInterval time.Duration
	logger             *zerolog.Logger
}

func defaults() *options {
	return &options{
		deadline:           constants.ResolveDeadline,
		enhancementTimeout: constants.EnhancementTimeout,
		autoUpdatesEnabled: false,
		autoUpdateInterval: constants.DefaultUpdateInterval,
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Option is a function that configures a Client.
type Option func(*options)

// WithFeeds sets the inventory feeds, in precedence order: when two feeds
// list the same vehicle the later one wins.
func WithFeeds(feeds ...Feed) Option {
	return func(o *options) {
		o.feeds = append(o.feeds, feeds...)
	}
}

// WithEnhancements sets where enhancement records come from. A Store also
// enables PutEnhancement.
func WithEnhancements(adapter enhancer.Adapter) Option {
	return func(o *options) {
		o.enhancements = adapter
	}
}

// WithSnapshots sets the persisted snapshot store used by the loader and
// written after every ingestion.
func WithSnapshots(store loader.SnapshotStore) Option {
	return func(o *options) {
		o.snapshots = store
	}
}

// WithNavState sets the in-memory navigation state.
func WithNavState(nav loader.NavState) Option {
	return func(o *options) {
		o.nav = nav
	}
}

// WithAuthorityTable replaces the default field precedence table.
func WithAuthorityTable(table *authority.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// WithHTTPClient sets the client used for feeds that carry no credential
// of their own.
func WithHTTPClient(client *transport.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithResolveDeadline bounds how long Vehicle may take.
func WithResolveDeadline(d time.Duration) Option {
	return func(o *options) {
		o.deadline = d
	}
}

// WithEnhancementTimeout sets the per-call enhancement timeout.
func WithEnhancementTimeout(d time.Duration) Option {
	return func(o *options) {
		o.enhancementTimeout = d
	}
}

// WithAutoUpdates configures whether periodic re-ingestion starts with the client.
func WithAutoUpdates(enabled bool) Option {
	return func(o *options) {
		o.autoUpdatesEnabled = enabled
	}
}

// WithAutoUpdateInterval configures how often to re-ingest the feeds.
func WithAutoUpdateInterval(interval time.Duration) Option {
	return func(o *options) {
		o.autoUpdateInterval = interval
	}
}

// WithLogger sets the client logger. Defaults to the package default logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
