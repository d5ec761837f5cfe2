package enhancer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Memory is an in-process Store. Records are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*vehicles.Enhancement
	now     func() time.Time
}

// NewMemory creates an empty in-memory store, optionally seeded.
func NewMemory(seed ...*vehicles.Enhancement) *Memory {
	m := &Memory{
		records: make(map[string]*vehicles.Enhancement),
		now:     time.Now,
	}
	for _, e := range seed {
		if e != nil && !e.Identity.IsZero() {
			c := e.Clone()
			c.Identity = c.Identity.Normalize()
			m.records[c.Identity.Key] = c
		}
	}
	return m
}

// FetchOne returns a copy of the record for id.
func (m *Memory) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id.Key].Clone(), nil
}

// FetchAll returns copies of every record.
func (m *Memory) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*vehicles.Enhancement, len(m.records))
	for k, e := range m.records {
		out[k] = e.Clone()
	}
	return out, nil
}

// Put stores a copy of e, stamping UpdatedAt when it is unset.
func (m *Memory) Put(ctx context.Context, e *vehicles.Enhancement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(e); err != nil {
		return err
	}
	c := e.Clone()
	c.Identity = c.Identity.Normalize()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = m.now().UTC()
	}
	m.mu.Lock()
	m.records[c.Identity.Key] = c
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Validate checks that e can be written to a store. Records keyed by a
// synthetic identity are refused since they could never be linked again.
func Validate(e *vehicles.Enhancement) error {
	if e == nil {
		return errors.NewValidationError("enhancement", nil, "is nil")
	}
	if e.Identity.IsZero() {
		return errors.NewValidationError("identity", "", "is required")
	}
	if !e.Identity.Stable() {
		return fmt.Errorf("identity %s: %w: %w", e.Identity.Key, errors.ErrUnstableIdentity, errors.ErrInvalidInput)
	}
	return nil
}
