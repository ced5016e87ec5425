package trip

import (
	"fmt"
	"sort"
)

// Kind identifies an entity kind in the record store.
type Kind string

const (
	KindTrip     Kind = "trips"
	KindMessage  Kind = "trip_messages"
	KindActivity Kind = "activities"
	KindDayPlan  Kind = "day_plans"
)

// Entity is the partially-structured form of a stored trip component. Keys
// are schema field names; values are JSON-decoded.
type Entity map[string]any

// Clone returns a shallow copy. Values are JSON scalars or small maps, so a
// shallow copy is enough for the engine's use.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Keys returns the entity's keys in sorted order.
func (e Entity) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldType is the declared type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
)

// Schema is an explicit, versioned field declaration for one entity kind.
// Schemas are declared up front rather than inferred from a live object's
// runtime types, so a generation request and its validation always agree.
type Schema struct {
	Kind     Kind
	Version  string
	Fields   map[string]FieldType
	Identity []string // fields the engine must never let a model reassign
}

// JSONSchema renders the declaration as a JSON-schema object suitable for a
// structured generation request.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for name, ft := range s.Fields {
		props[name] = map[string]any{"type": string(ft)}
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var schemas = map[Kind]*Schema{
	KindActivity: {
		Kind:    KindActivity,
		Version: "1",
		Fields: map[string]FieldType{
			"id":          FieldString,
			"trip_id":     FieldString,
			"title":       FieldString,
			"description": FieldString,
			"address":     FieldString,
			"day":         FieldInteger,
			"time":        FieldString,
			"duration":    FieldString,
			"cost":        FieldNumber,
			"currency":    FieldString,
		},
		Identity: []string{"id", "trip_id"},
	},
	KindDayPlan: {
		Kind:    KindDayPlan,
		Version: "1",
		Fields: map[string]FieldType{
			"id":          FieldString,
			"trip_id":     FieldString,
			"day":         FieldInteger,
			"summary":     FieldString,
			"description": FieldString,
			"activities":  FieldArray,
		},
		Identity: []string{"id", "trip_id", "day"},
	},
}

// SchemaFor returns the declared schema for a kind.
func SchemaFor(kind Kind) (*Schema, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("no schema declared for entity kind %q", kind)
	}
	return s, nil
}
