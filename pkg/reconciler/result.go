package reconciler

import (
	"fmt"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Result is the outcome of merging a batch.
type Result struct {
	// Views are the merged records in base order.
	Views []vehicles.View `json:"views"`

	// Orphaned lists enhancement identities with no base record, sorted.
	// They are reported, never deleted.
	Orphaned []string `json:"orphaned,omitempty"`

	Stats ResultStatistics `json:"stats"`
}

// ResultStatistics contains statistics about a batch merge.
type ResultStatistics struct {
	Merged   int `json:"merged"`
	Enhanced int `json:"enhanced"`
	BaseOnly int `json:"baseOnly"`
	Orphaned int `json:"orphaned"`
}

// Index returns the views keyed by identity.
func (r *Result) Index() map[string]vehicles.View {
	m := make(map[string]vehicles.View, len(r.Views))
	for _, v := range r.Views {
		m[v.Identity.Key] = v
	}
	return m
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d merged (%d enhanced, %d base only)", r.Stats.Merged, r.Stats.Enhanced, r.Stats.BaseOnly)
	if r.Stats.Orphaned > 0 {
		s += fmt.Sprintf(", %d orphaned enhancements", r.Stats.Orphaned)
	}
	return s
}
