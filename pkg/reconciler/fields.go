package reconciler

import (
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// viewFields maps a View json field name to its struct index.
var (
	viewFieldsOnce sync.Once
	viewFields     map[string]int
	viewFieldNames []string
)

// derived view fields that no source supplies
var metaFields = map[string]bool{
	"enhanced":   true,
	"provenance": true,
}

func loadViewFields() {
	viewFieldsOnce.Do(func() {
		viewFields = jsonIndex(reflect.TypeOf(vehicles.View{}))
		for name := range viewFields {
			if !metaFields[name] {
				viewFieldNames = append(viewFieldNames, name)
			}
		}
		sort.Strings(viewFieldNames)
	})
}

// Fields returns the mergeable view field names, sorted.
func Fields() []string {
	loadViewFields()
	return slices.Clone(viewFieldNames)
}

// jsonIndex maps json names to field indexes for a struct type.
func jsonIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			index[name] = i
		}
	}
	return index
}

func jsonName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// getField returns the value of a view field by json name.
func getField(v *vehicles.View, name string) (reflect.Value, bool) {
	loadViewFields()
	i, ok := viewFields[name]
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(v).Elem().Field(i), true
}

// setField assigns value to a view field by json name. It reports false when
// the field is unknown or the types do not line up.
func setField(v *vehicles.View, name string, value reflect.Value) bool {
	field, ok := getField(v, name)
	if !ok || !field.CanSet() || !value.IsValid() {
		return false
	}
	if !value.Type().AssignableTo(field.Type()) {
		if !value.Type().ConvertibleTo(field.Type()) {
			return false
		}
		value = value.Convert(field.Type())
	}
	field.Set(value)
	return true
}

// supplied returns every field the enhancement carries a value for, keyed by
// view json name. Slices and pointers are deep copied so the result never
// aliases the enhancement.
func supplied(e *vehicles.Enhancement) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	if e == nil {
		return out
	}

	ev := reflect.ValueOf(e.Clone()).Elem()
	et := ev.Type()
	for i := 0; i < et.NumField(); i++ {
		name := jsonName(et.Field(i))
		switch name {
		case "", "identity", "updatedAt":
			continue
		case "overrides":
			collectOverrides(ev.Field(i), out)
			continue
		}
		if fv := ev.Field(i); !fv.IsZero() {
			if fv.Kind() == reflect.Slice && fv.Len() == 0 {
				continue
			}
			out[name] = fv
		}
	}
	return out
}

// collectOverrides adds every non-nil override pointer, dereferenced.
func collectOverrides(ov reflect.Value, out map[string]reflect.Value) {
	ot := ov.Type()
	for i := 0; i < ot.NumField(); i++ {
		name := jsonName(ot.Field(i))
		fv := ov.Field(i)
		if name == "" || fv.Kind() != reflect.Pointer || fv.IsNil() {
			continue
		}
		out[name] = fv.Elem()
	}
}
