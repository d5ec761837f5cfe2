// Package application provides the application interface for inventory
// commands and the HTTP server.
//
// Commands accept the Application interface rather than the concrete App
// type so they can be tested with a Mock:
//
//	mock := &application.Mock{
//	    ClientFunc: func() (inventory.Client, error) {
//	        return testClient, nil
//	    },
//	}
//	cmd := NewCommand(mock)
package application

import (
	"github.com/rs/zerolog"

	inventory "github.com/matt653/high-life-auto-sub000"
)

// Application provides what commands need from the running process.
//
// Thread Safety: All methods must be safe for concurrent access.
type Application interface {
	// Client returns the shared inventory client, created on first use from
	// the loaded configuration.
	Client() (inventory.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, etc).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
