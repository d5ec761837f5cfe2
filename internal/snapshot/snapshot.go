// Package snapshot provides persisted local snapshot stores for merged
// vehicle views: a SQLite database for long-running processes and a YAML
// directory that is easy to inspect and check in.
package snapshot

import (
	"context"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Store is a snapshot store that can persist a whole ingestion at once.
type Store interface {
	loader.SnapshotStore
	SaveAll(ctx context.Context, views []vehicles.View) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*YAML)(nil)
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverYAML   = "yaml"
	DriverNone   = "none"
)

// Open opens the store named by driver at path. DriverNone returns nil.
func Open(driver, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3", "":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverYAML:
		y, err := OpenYAML(path)
		if err != nil {
			return nil, err
		}
		return y, nil
	case DriverNone:
		return nil, nil
	default:
		return nil, errors.NewConfigError("snapshot", "unknown driver "+driver, nil)
	}
}
