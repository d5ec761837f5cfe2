package enhancements

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

const createTable = `
CREATE TABLE IF NOT EXISTS vehicle_enhancements (
	identity   TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Postgres stores enhancement records in a single table.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres opens a pool and creates the table if needed. maxConns <= 0
// keeps a small default.
func NewPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewConfigError("postgres", "invalid dsn", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.WrapStore("postgres", "connect", cfg.ConnConfig.Host, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.WrapStore("postgres", "ping", cfg.ConnConfig.Host, err)
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, errors.WrapStore("postgres", "migrate", "vehicle_enhancements", err)
	}

	return &Postgres{pool: pool, now: time.Now}, nil
}

// FetchOne returns the record for id, or nil when none exists.
func (p *Postgres) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM vehicle_enhancements WHERE identity = $1`, id.Key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("postgres", "select", id.Key, err)
	}
	return decode(id.Key, data)
}

// FetchAll returns every record keyed by identity.
func (p *Postgres) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	rows, err := p.pool.Query(ctx, `SELECT identity, payload FROM vehicle_enhancements`)
	if err != nil {
		return nil, errors.WrapStore("postgres", "select", "", err)
	}
	defer rows.Close()

	out := make(map[string]*vehicles.Enhancement)
	for rows.Next() {
		var (
			key  string
			data []byte
		)
		if err := rows.Scan(&key, &data); err != nil {
			return nil, errors.WrapStore("postgres", "scan", "", err)
		}
		e, err := decode(key, data)
		if err != nil {
			return nil, err
		}
		out[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("postgres", "select", "", err)
	}
	return out, nil
}

// Put upserts e.
func (p *Postgres) Put(ctx context.Context, e *vehicles.Enhancement) error {
	now := p.now().UTC()
	id, data, err := prepare(e, now)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO vehicle_enhancements (identity, kind, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE SET
			kind = EXCLUDED.kind,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`,
		id.Key, string(id.Kind), data, now)
	if err != nil {
		return errors.WrapStore("postgres", "upsert", id.Key, err)
	}
	return nil
}

// Delete removes the record for id. Orphaned records are never deleted
// automatically; this exists for operators.
func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM vehicle_enhancements WHERE identity = $1`, id); err != nil {
		return errors.WrapStore("postgres", "delete", id, err)
	}
	return nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
