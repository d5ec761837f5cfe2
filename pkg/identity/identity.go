// Package identity derives stable per-vehicle keys and filters and
// deduplicates a normalized batch.
//
// Key priority is VIN, then stock number, then a synthetic
// "{batchTimestamp}-{rowIndex}" key that is never linked to enhancements.
// Within a batch the later of two rows sharing a key wins. A stock number
// equal to another row's VIN is a collision: the VIN-keyed row is kept
// because every store is keyed by the bare key. Rows whose make
// or model is still the "Unknown" sentinel are discarded.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Batch identifies one ingestion pass.
type Batch struct {
	ID        string    `json:"id"`
	Feed      string    `json:"feed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBatch starts a batch for feed at the current time.
func NewBatch(feed string) Batch {
	return Batch{
		ID:        uuid.NewString(),
		Feed:      feed,
		Timestamp: time.Now(),
	}
}

// Millis returns the batch timestamp used in synthetic keys.
func (b Batch) Millis() int64 {
	return b.Timestamp.UnixMilli()
}

// DropReason explains why a row did not survive resolution.
type DropReason string

// Drop reasons.
const (
	DropDuplicate DropReason = "duplicate"
	DropCollision DropReason = "collision"
	DropUnknown   DropReason = "unknown"
)

// Drop records one discarded row.
type Drop struct {
	Identity vehicles.Identity `json:"identity"`
	Row      int               `json:"row"`
	Reason   DropReason        `json:"reason"`
}

// Stats summarizes a resolution pass.
type Stats struct {
	Total      int `json:"total"`
	Retained   int `json:"retained"`
	Duplicates int `json:"duplicates"`
	Collisions int `json:"collisions"`
	Discarded  int `json:"discarded"`
	Synthetic  int `json:"synthetic"`
}

// Result is the resolved batch.
type Result struct {
	Batch    Batch              `json:"batch"`
	Vehicles []vehicles.Vehicle `json:"vehicles"`
	Stats    Stats              `json:"stats"`
	Dropped  []Drop             `json:"dropped,omitempty"`
}

// Index returns the retained vehicles keyed by identity.
func (r *Result) Index() map[string]vehicles.Vehicle {
	m := make(map[string]vehicles.Vehicle, len(r.Vehicles))
	for _, v := range r.Vehicles {
		m[v.Identity.Key] = v
	}
	return m
}

// Resolver assigns identities and deduplicates batches.
type Resolver struct {
	logger *zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: logging.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Derive computes the identity for v in batch. rowIndex is the 0-based
// position of the row in the batch.
func Derive(v vehicles.Vehicle, batch Batch, rowIndex int) vehicles.Identity {
	if vin := vehicles.NormalizeVIN(v.VIN); vin != "" {
		return vehicles.Identity{Key: vin, Kind: vehicles.IdentityVIN}
	}
	if stock := strings.TrimSpace(v.StockNumber); stock != "" {
		return vehicles.Identity{Key: stock, Kind: vehicles.IdentityStock}
	}
	return vehicles.SyntheticIdentity(batch.Millis(), rowIndex)
}

// Resolve assigns identities, drops corrupt rows, and keeps the last row for
// each identity. Output keeps the file order of the surviving rows. Input
// records are not modified.
func (r *Resolver) Resolve(records []vehicles.Vehicle, batch Batch) *Result {
	res := &Result{Batch: batch}
	res.Stats.Total = len(records)

	type candidate struct {
		vehicle vehicles.Vehicle
		dropped bool
	}
	candidates := make([]candidate, 0, len(records))
	seen := make(map[string]int, len(records))

	for i, rec := range records {
		v := rec.Clone()
		v.Identity = Derive(v, batch, i)
		if v.Identity.Kind == vehicles.IdentityVIN {
			v.VIN = v.Identity.Key
		}
		if v.Feed == "" {
			v.Feed = batch.Feed
		}

		if v.IsUnknown() {
			res.Stats.Discarded++
			res.Dropped = append(res.Dropped, Drop{Identity: v.Identity, Row: v.Row, Reason: DropUnknown})
			continue
		}

		if prev, ok := seen[v.Identity.Key]; ok {
			earlier := candidates[prev].vehicle
			if earlier.Identity.Kind != v.Identity.Kind {
				keepEarlier := earlier.Identity.Kind == vehicles.IdentityVIN
				kept, dropped := v, earlier
				if keepEarlier {
					kept, dropped = earlier, v
				}
				res.Stats.Collisions++
				res.Dropped = append(res.Dropped, Drop{Identity: dropped.Identity, Row: dropped.Row, Reason: DropCollision})
				r.logger.Warn().
					Str("batch_id", batch.ID).
					Str("identity", v.Identity.Key).
					Str("dropped_kind", dropped.Identity.Kind.String()).
					Int("dropped_row", dropped.Row).
					Int("kept_row", kept.Row).
					Msg("Stock number collides with a VIN, keeping the VIN row")
				if keepEarlier {
					continue
				}
			} else {
				res.Stats.Duplicates++
				res.Dropped = append(res.Dropped, Drop{Identity: earlier.Identity, Row: earlier.Row, Reason: DropDuplicate})
				r.logger.Debug().
					Str("batch_id", batch.ID).
					Str("identity", v.Identity.Key).
					Int("dropped_row", earlier.Row).
					Int("kept_row", v.Row).
					Msg("Duplicate identity in batch, keeping later row")
			}
			candidates[prev].dropped = true
		}
		seen[v.Identity.Key] = len(candidates)
		candidates = append(candidates, candidate{vehicle: v})
	}

	res.Vehicles = make([]vehicles.Vehicle, 0, len(candidates))
	for _, c := range candidates {
		if c.dropped {
			continue
		}
		if c.vehicle.Identity.Kind == vehicles.IdentitySynthetic {
			res.Stats.Synthetic++
		}
		res.Vehicles = append(res.Vehicles, c.vehicle)
	}
	res.Stats.Retained = len(res.Vehicles)

	if res.Stats.Discarded > 0 || res.Stats.Duplicates > 0 || res.Stats.Collisions > 0 {
		r.logger.Info().
			Str("batch_id", batch.ID).
			Str("feed", batch.Feed).
			Int("total", res.Stats.Total).
			Int("retained", res.Stats.Retained).
			Int("duplicates", res.Stats.Duplicates).
			Int("collisions", res.Stats.Collisions).
			Int("discarded", res.Stats.Discarded).
			Msg("Batch resolved with drops")
	}

	return res
}
