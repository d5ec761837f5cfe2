// Package provenance records which source supplied each field of a merged
// vehicle view.
package provenance

import (
	"sort"
	"sync"
)

// Source identifies where a field value came from.
type Source string

// Known sources.
const (
	SourceBase        Source = "base"
	SourceEnhancement Source = "enhancement"
)

// ReasonProtected marks a base field that an enhancement tried to override.
const ReasonProtected = "protected field"

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// Provenance describes the origin of a single field value.
type Provenance struct {
	Source Source `json:"source" yaml:"source"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Map is field name → provenance for one view.
type Map map[string]Provenance

// Clone returns a copy of the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Protected returns the fields an enhancement supplied but the base kept,
// sorted.
func (m Map) Protected() []string {
	var fields []string
	for field, p := range m {
		if p.Source == SourceBase && p.Reason == ReasonProtected {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Fields returns the field names supplied by source, sorted.
func (m Map) Fields(source Source) []string {
	var fields []string
	for field, p := range m {
		if p.Source == source {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Tracker accumulates provenance for many identities during a batch merge.
type Tracker interface {
	// Track records provenance for one field of one identity
	Track(identity, field string, p Provenance)

	// FindByField returns provenance for a field, if tracked
	FindByField(identity, field string) (Provenance, bool)

	// FindByIdentity returns all tracked fields for an identity
	FindByIdentity(identity string) Map

	// Identities returns every tracked identity, sorted
	Identities() []string

	// Clear removes all tracked data
	Clear()
}

type tracker struct {
	mu      sync.RWMutex
	entries map[string]Map
	enabled bool
}

// NewTracker creates a tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		entries: make(map[string]Map),
		enabled: enabled,
	}
}

// Track records provenance for one field of one identity.
func (t *tracker) Track(identity, field string, p Provenance) {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.entries[identity]
	if !ok {
		m = make(Map)
		t.entries[identity] = m
	}
	m[field] = p
}

// FindByField returns provenance for a field.
func (t *tracker) FindByField(identity, field string) (Provenance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.entries[identity][field]
	return p, ok
}

// FindByIdentity returns a copy of the tracked fields for an identity.
func (t *tracker) FindByIdentity(identity string) Map {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[identity].Clone()
}

// Identities returns every tracked identity, sorted.
func (t *tracker) Identities() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear removes all tracked data.
func (t *tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]Map)
}

// Report is a summary of which fields each source won.
type Report struct {
	Identities []IdentityReport `json:"identities" yaml:"identities"`
}

// IdentityReport summarizes one identity.
type IdentityReport struct {
	Identity     string   `json:"identity" yaml:"identity"`
	FromBase     []string `json:"fromBase" yaml:"fromBase"`
	FromEnhanced []string `json:"fromEnhancement,omitempty" yaml:"fromEnhancement,omitempty"`
	Protected    []string `json:"protected,omitempty" yaml:"protected,omitempty"`
}

// Enhanced returns the number of identities with at least one field from
// an enhancement.
func (r *Report) Enhanced() int {
	n := 0
	for _, ir := range r.Identities {
		if len(ir.FromEnhanced) > 0 {
			n++
		}
	}
	return n
}

// GenerateReport builds a report from a tracker.
func GenerateReport(t Tracker) *Report {
	report := &Report{}
	for _, id := range t.Identities() {
		m := t.FindByIdentity(id)
		report.Identities = append(report.Identities, IdentityReport{
			Identity:     id,
			FromBase:     m.Fields(SourceBase),
			FromEnhanced: m.Fields(SourceEnhancement),
			Protected:    m.Protected(),
		})
	}
	return report
}
