package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	identity   TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

const upsert = `
INSERT INTO snapshots (identity, kind, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE SET
	kind = excluded.kind,
	payload = excluded.payload,
	updated_at = excluded.updated_at`

// SQLite stores one JSON-encoded view per identity.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("mkdir", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapStore("sqlite", "open", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA busy_timeout = 5000;`, schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.WrapStore("sqlite", "init", path, err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapStore("sqlite", "ping", path, err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Load returns the snapshot for id, or nil, nil when there is none.
func (s *SQLite) Load(ctx context.Context, id string) (*vehicles.View, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE identity = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("sqlite", "load", id, err)
	}

	var view vehicles.View
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		return nil, errors.WrapParse("json", id, err)
	}
	return &view, nil
}

// Save upserts one view.
func (s *SQLite) Save(ctx context.Context, view vehicles.View) error {
	payload, err := encode(view)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsert, view.Identity.Key, string(view.Identity.Kind), payload, s.now().UnixMilli()); err != nil {
		return errors.WrapStore("sqlite", "save", view.Identity.Key, err)
	}
	return nil
}

// SaveAll upserts views in a single transaction.
func (s *SQLite) SaveAll(ctx context.Context, views []vehicles.View) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("sqlite", "begin", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return errors.WrapStore("sqlite", "prepare", "", err)
	}
	defer stmt.Close()

	at := s.now().UnixMilli()
	for _, view := range views {
		payload, err := encode(view)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, view.Identity.Key, string(view.Identity.Kind), payload, at); err != nil {
			return errors.WrapStore("sqlite", "save", view.Identity.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapStore("sqlite", "commit", "", err)
	}
	return nil
}

// Delete removes the snapshot for id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE identity = ?`, id); err != nil {
		return errors.WrapStore("sqlite", "delete", id, err)
	}
	return nil
}

// Len returns the number of stored snapshots.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, errors.WrapStore("sqlite", "count", "", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func encode(view vehicles.View) (string, error) {
	if view.Identity.Key == "" {
		return "", errors.NewValidationError("identity", "", "is empty")
	}
	data, err := json.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("encode view %s: %w", view.Identity.Key, err)
	}
	return string(data), nil
}
