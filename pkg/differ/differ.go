// Package differ compares two ingested base sets and reports which vehicles
// were added, updated or removed.
package differ

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Differ handles change detection between base sets.
type Differ interface {
	// Vehicles compares two base sets keyed by identity
	Vehicles(existing, updated []vehicles.Vehicle) *Changeset

	// Vehicle compares two versions of one record, returning nil when equal
	Vehicle(existing, updated vehicles.Vehicle) *VehicleUpdate
}

// differ is the default implementation of Differ.
type differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ. The row index and feed name are ignored by default
// since they move around between batches without the vehicle changing.
func New(opts ...Option) Differ {
	d := &differ{
		ignoreFields: map[string]bool{
			"row":  true,
			"feed": true,
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Vehicles compares two base sets and returns changes.
func (diff *differ) Vehicles(existing, updated []vehicles.Vehicle) *Changeset {
	changeset := &Changeset{
		Added:   []vehicles.Vehicle{},
		Updated: []VehicleUpdate{},
		Removed: []vehicles.Vehicle{},
	}

	existingMap := make(map[string]vehicles.Vehicle, len(existing))
	for _, v := range existing {
		existingMap[v.Identity.Key] = v
	}

	newMap := make(map[string]vehicles.Vehicle, len(updated))
	for _, v := range updated {
		newMap[v.Identity.Key] = v
	}

	// Find added and updated vehicles
	for _, v := range updated {
		if old, exists := existingMap[v.Identity.Key]; exists {
			if update := diff.Vehicle(old, v); update != nil {
				changeset.Updated = append(changeset.Updated, *update)
			}
		} else {
			changeset.Added = append(changeset.Added, v)
		}
	}

	// Find removed vehicles
	for _, v := range existing {
		if _, exists := newMap[v.Identity.Key]; !exists {
			changeset.Removed = append(changeset.Removed, v)
		}
	}

	sortChangeset(changeset)
	changeset.Summary = calculateSummary(changeset)

	return changeset
}

// Vehicle compares every field of two records by json name.
func (diff *differ) Vehicle(existing, updated vehicles.Vehicle) *VehicleUpdate {
	var changes []FieldChange

	ev := reflect.ValueOf(existing)
	uv := reflect.ValueOf(updated)
	t := ev.Type()
	for i := 0; i < t.NumField(); i++ {
		name := fieldName(t.Field(i))
		if name == "" || name == "identity" || diff.ignoreFields[name] {
			continue
		}
		a, b := ev.Field(i).Interface(), uv.Field(i).Interface()
		if equalValues(a, b) {
			continue
		}
		changes = append(changes, FieldChange{
			Path:     name,
			OldValue: formatValue(a),
			NewValue: formatValue(b),
			Type:     changeType(a, b),
		})
	}

	if len(changes) == 0 {
		return nil
	}

	return &VehicleUpdate{
		ID:       updated.Identity.Key,
		Existing: existing,
		New:      updated,
		Changes:  changes,
	}
}

func fieldName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// equalValues treats nil and empty slices as equal.
func equalValues(a, b any) bool {
	if sa, ok := a.([]string); ok {
		sb := b.([]string)
		if len(sa) == 0 && len(sb) == 0 {
			return true
		}
	}
	return reflect.DeepEqual(a, b)
}

func changeType(a, b any) ChangeType {
	switch {
	case isEmpty(a):
		return ChangeTypeAdd
	case isEmpty(b):
		return ChangeTypeRemove
	}
	return ChangeTypeUpdate
}

func isEmpty(v any) bool {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}
	return rv.IsZero()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return "<empty>"
		}
		return truncateString(strings.Join(val, ", "), 80)
	case float64:
		return fmt.Sprintf("%.2f", val)
	case string:
		if val == "" {
			return "<empty>"
		}
		return truncateString(val, 80)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func sortChangeset(changeset *Changeset) {
	sort.Slice(changeset.Added, func(i, j int) bool {
		return changeset.Added[i].Identity.Key < changeset.Added[j].Identity.Key
	})
	sort.Slice(changeset.Updated, func(i, j int) bool {
		return changeset.Updated[i].ID < changeset.Updated[j].ID
	})
	sort.Slice(changeset.Removed, func(i, j int) bool {
		return changeset.Removed[i].Identity.Key < changeset.Removed[j].Identity.Key
	})
}
