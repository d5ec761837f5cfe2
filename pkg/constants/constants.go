// Package constants provides shared constants used throughout the inventory
// codebase: timeouts, limits, file permissions, and defaults that must agree
// between the library, the server, and the CLI.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the timeout for fetching a feed over HTTP
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// ResolveDeadline bounds how long a single vehicle resolution may take
	// before it is declared degraded
	ResolveDeadline = 10 * time.Second

	// EnhancementTimeout is the per-call timeout for enhancement lookups
	EnhancementTimeout = 5 * time.Second

	// UpdateContextTimeout is the timeout for each automatic re-ingestion
	UpdateContextTimeout = 5 * time.Minute

	// DefaultUpdateInterval is the default interval between automatic re-ingestions
	DefaultUpdateInterval = 15 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Minute

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 10 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentFeeds is the maximum number of feeds fetched at once
	MaxConcurrentFeeds = 4

	// MaxFeedBytes caps the size of a fetched feed (32 MiB)
	MaxFeedBytes = 32 << 20

	// MaxEnhancementBytes caps an enhancement payload accepted over HTTP (1 MiB)
	MaxEnhancementBytes = 1 << 20

	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 100
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached views
	CacheTTL = 15 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)

// Path constants
const (
	// DefaultDataPath is the default directory for local state
	DefaultDataPath = "~/.inventory"

	// DefaultSnapshotFile is the default SQLite snapshot database
	DefaultSnapshotFile = "snapshots.db"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)
