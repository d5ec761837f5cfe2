package application

import (
	"errors"

	"github.com/rs/zerolog"

	inventory "github.com/matt653/high-life-auto-sub000"
)

var _ Application = (*Mock)(nil)

// Mock is an Application for tests. A nil ClientFunc makes Client fail;
// other nil funcs fall back to zero values.
type Mock struct {
	ClientFunc   func() (inventory.Client, error)
	LoggerFunc   func() *zerolog.Logger
	Format       string
	VersionValue string
}

// Client implements Application.
func (m *Mock) Client() (inventory.Client, error) {
	if m.ClientFunc == nil {
		return nil, errors.New("mock: no client configured")
	}
	return m.ClientFunc()
}

// Logger implements Application.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc == nil {
		l := zerolog.Nop()
		return &l
	}
	return m.LoggerFunc()
}

// OutputFormat implements Application.
func (m *Mock) OutputFormat() string { return m.Format }

// Version implements Application.
func (m *Mock) Version() string {
	if m.VersionValue == "" {
		return "dev"
	}
	return m.VersionValue
}

// Commit implements Application.
func (m *Mock) Commit() string { return "none" }

// Date implements Application.
func (m *Mock) Date() string { return "unknown" }

// BuiltBy implements Application.
func (m *Mock) BuiltBy() string { return "test" }
