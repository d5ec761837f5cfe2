// Package reconciler merges base vehicles with their enhancement records.
//
// Merge is a pure function of its two inputs. It works in three steps:
//
//  1. project the base record into view shape
//  2. apply every field the enhancement supplies
//  3. overwrite every BaseAlways field of the precedence table from the base
//
// Because step 3 runs unconditionally, protected fields such as price can
// never be changed by an enhancement, whatever it contains.
package reconciler

import (
	"sort"

	"github.com/matt653/high-life-auto-sub000/pkg/authority"
	"github.com/matt653/high-life-auto-sub000/pkg/provenance"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Provenance reasons.
const (
	ReasonBase      = ""
	ReasonOverride  = "enhancement supplied"
	ReasonProtected = provenance.ReasonProtected
)

// Reconciler merges vehicles under a fixed precedence table.
type Reconciler struct {
	table    *authority.Table
	tracking bool
	tracker  provenance.Tracker
}

// New creates a Reconciler.
func New(opts ...Option) *Reconciler {
	o := defaultOptions().apply(opts...)
	return &Reconciler{
		table:    o.table,
		tracking: o.tracking,
		tracker:  o.tracker,
	}
}

// Table returns the precedence table in use.
func (r *Reconciler) Table() *authority.Table {
	return r.table
}

// Merge merges base with enh using the default table. A nil enh yields the
// base record projected into view shape.
func Merge(base vehicles.Vehicle, enh *vehicles.Enhancement, opts ...Option) vehicles.View {
	return New(opts...).Merge(base, enh)
}

// Merge merges base with enh. Neither input is modified.
func (r *Reconciler) Merge(base vehicles.Vehicle, enh *vehicles.Enhancement) vehicles.View {
	baseView := vehicles.FromVehicle(base)
	view := vehicles.FromVehicle(base)

	var prov provenance.Map
	if r.tracking {
		prov = make(provenance.Map)
		for _, name := range Fields() {
			prov[name] = provenance.Provenance{Source: provenance.SourceBase, Reason: ReasonBase}
		}
	}

	if enh != nil {
		view.Enhanced = true
		fields := supplied(enh)

		// step 2: every supplied field, in a fixed order
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if setField(&view, name, fields[name]) && prov != nil {
				prov[name] = provenance.Provenance{Source: provenance.SourceEnhancement, Reason: ReasonOverride}
			}
		}

		// step 3: protected fields always come from the base record
		for _, name := range Fields() {
			if !r.table.IsProtected(name) {
				continue
			}
			value, ok := getField(&baseView, name)
			if !ok {
				continue
			}
			setField(&view, name, value)
			if prov != nil {
				reason := ReasonBase
				if _, conflicted := fields[name]; conflicted {
					reason = ReasonProtected
				}
				prov[name] = provenance.Provenance{Source: provenance.SourceBase, Reason: reason}
			}
		}
	}

	view.Provenance = prov
	return view
}

// MergeAll merges a batch in base order. Enhancements are looked up by
// identity key; bases with unstable identities are never linked. Enhancement
// keys with no base are reported as orphans and left untouched.
func (r *Reconciler) MergeAll(bases []vehicles.Vehicle, enhancements map[string]*vehicles.Enhancement) *Result {
	res := &Result{
		Views: make([]vehicles.View, 0, len(bases)),
	}

	linked := make(map[string]bool, len(bases))
	for _, base := range bases {
		var enh *vehicles.Enhancement
		if base.Identity.Stable() {
			enh = enhancements[base.Identity.Key]
			linked[base.Identity.Key] = true
		}

		view := r.Merge(base, enh)
		res.Views = append(res.Views, view)
		res.Stats.Merged++
		if enh != nil {
			res.Stats.Enhanced++
		} else {
			res.Stats.BaseOnly++
		}

		if r.tracker != nil {
			for field, p := range view.Provenance {
				r.tracker.Track(base.Identity.Key, field, p)
			}
		}
	}

	for key, enh := range enhancements {
		if enh != nil && !linked[key] {
			res.Orphaned = append(res.Orphaned, key)
		}
	}
	sort.Strings(res.Orphaned)
	res.Stats.Orphaned = len(res.Orphaned)

	return res
}

// MergeAll merges a batch using the default table.
func MergeAll(bases []vehicles.Vehicle, enhancements map[string]*vehicles.Enhancement, opts ...Option) *Result {
	return New(opts...).MergeAll(bases, enhancements)
}
