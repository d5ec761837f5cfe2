// Package enhancements provides enhancement stores backed by a YAML file,
// Redis and PostgreSQL. All satisfy enhancer.Store; wrap them with enhancer.Guard
// before merging so outages degrade to base data.
package enhancements

import (
	"encoding/json"
	"time"

	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

var (
	_ enhancer.Store = (*Redis)(nil)
	_ enhancer.Store = (*Postgres)(nil)
)

// Driver names.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// prepare validates e and returns its normalized identity and the payload
// to store.
func prepare(e *vehicles.Enhancement, now time.Time) (vehicles.Identity, []byte, error) {
	if err := enhancer.Validate(e); err != nil {
		return vehicles.Identity{}, nil, err
	}
	rec := e.Clone()
	rec.Identity = rec.Identity.Normalize()
	rec.UpdatedAt = now.UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return vehicles.Identity{}, nil, errors.WrapParse("json", rec.Identity.Key, err)
	}
	return rec.Identity, data, nil
}

func decode(key string, data []byte) (*vehicles.Enhancement, error) {
	var e vehicles.Enhancement
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WrapParse("json", key, err)
	}
	if e.Identity.IsZero() {
		e.Identity = vehicles.ParseIdentity(key)
	}
	return &e, nil
}
