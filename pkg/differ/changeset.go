package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     `json:"path"`     // Field json name (e.g., "price")
	OldValue string     `json:"oldValue"` // Previous value (string representation)
	NewValue string     `json:"newValue"` // New value (string representation)
	Type     ChangeType `json:"type"`
}

// VehicleUpdate represents an update to an existing vehicle.
type VehicleUpdate struct {
	ID       string           `json:"id"`
	Existing vehicles.Vehicle `json:"existing"`
	New      vehicles.Vehicle `json:"new"`
	Changes  []FieldChange    `json:"changes"`
}

// Changed reports whether path is among the changes.
func (u VehicleUpdate) Changed(path string) bool {
	for _, c := range u.Changes {
		if c.Path == path {
			return true
		}
	}
	return false
}

// Changeset represents all changes between two base sets.
type Changeset struct {
	Added   []vehicles.Vehicle `json:"added"`
	Updated []VehicleUpdate    `json:"updated"`
	Removed []vehicles.Vehicle `json:"removed"`
	Summary ChangesetSummary   `json:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Added        int `json:"added"`
	Updated      int `json:"updated"`
	Removed      int `json:"removed"`
	TotalChanges int `json:"total"`
}

func calculateSummary(c *Changeset) ChangesetSummary {
	return ChangesetSummary{
		Added:        len(c.Added),
		Updated:      len(c.Updated),
		Removed:      len(c.Removed),
		TotalChanges: len(c.Added) + len(c.Updated) + len(c.Removed),
	}
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if len(c.Added) > 0 {
		parts = append(parts, fmt.Sprintf("%d added", len(c.Added)))
	}
	if len(c.Updated) > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", len(c.Updated)))
	}
	if len(c.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(c.Removed)))
	}

	return fmt.Sprintf("Vehicles: %s (Total: %d changes)", strings.Join(parts, ", "), c.Summary.TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset to w.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	if c.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))

	if len(c.Added) > 0 {
		fmt.Fprintf(w, "\n➕ Added Vehicles (%d):\n", len(c.Added))
		for _, v := range c.Added {
			printVehicle(w, v)
		}
	}

	if len(c.Updated) > 0 {
		fmt.Fprintf(w, "\n🔄 Updated Vehicles (%d):\n", len(c.Updated))
		for _, update := range c.Updated {
			fmt.Fprintf(w, "  • %s:\n", update.ID)
			for _, change := range update.Changes {
				fmt.Fprintf(w, "    - %s: %s → %s\n", change.Path, change.OldValue, change.NewValue)
			}
		}
	}

	if len(c.Removed) > 0 {
		fmt.Fprintf(w, "\n⚠️  Removed Vehicles (%d):\n", len(c.Removed))
		for _, v := range c.Removed {
			printVehicle(w, v)
		}
	}
}

func printVehicle(w io.Writer, v vehicles.Vehicle) {
	fmt.Fprintf(w, "  • %s", v.Identity.Key)
	if title := v.Title(); title != "" {
		fmt.Fprintf(w, " (%s)", title)
	}
	if v.Price > 0 {
		fmt.Fprintf(w, " - $%.0f", v.Price)
	}
	fmt.Fprintln(w)
}

// ApplyStrategy represents how to apply changes.
type ApplyStrategy string

const (
	// ApplyAll applies all changes including removals.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditive only applies additions and updates, never removes.
	ApplyAdditive ApplyStrategy = "additive"

	// ApplyUpdatesOnly only applies updates to existing items.
	ApplyUpdatesOnly ApplyStrategy = "updates-only"

	// ApplyAdditionsOnly only applies new additions.
	ApplyAdditionsOnly ApplyStrategy = "additions-only"
)

// Filter filters the changeset based on the apply strategy.
func (c *Changeset) Filter(strategy ApplyStrategy) *Changeset {
	filtered := &Changeset{}

	switch strategy {
	case ApplyAll:
		return c

	case ApplyAdditive:
		filtered.Added = c.Added
		filtered.Updated = c.Updated

	case ApplyUpdatesOnly:
		filtered.Updated = c.Updated

	case ApplyAdditionsOnly:
		filtered.Added = c.Added
	}

	filtered.Summary = calculateSummary(filtered)
	return filtered
}
