package server

import "time"

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Authentication guards the editing surface (PUT enhancement, POST ingest).
	// Reads stay public.
	AuthEnabled bool
	AuthHeader  string
	APIKey      string

	// IngestRateLimit caps manual ingestions per minute per client (0 to disable).
	IngestRateLimit int

	// CacheTTL bounds how long list responses are cached. Every ingestion
	// and enhancement write invalidates the cache regardless.
	CacheTTL time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		PathPrefix:      "/api/v1",
		CORSEnabled:     false,
		CORSOrigins:     []string{},
		AuthEnabled:     false,
		AuthHeader:      "X-API-Key",
		IngestRateLimit: 6,
		CacheTTL:        time.Minute,
		ReadTimeout:     10 * time.Second,
		// streaming endpoints hold the connection open; they manage their own deadlines
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
}
