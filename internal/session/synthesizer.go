package session

import (
	"context"
	"fmt"

	"github.com/voyagent/voyagent/internal/genai"
	"github.com/voyagent/voyagent/internal/trip"
)

// MarkerField is the boolean key added to every synthesized entity to mark
// it as engine-produced.
const MarkerField = "updated"

// descriptionField is the rendered human-readable summary the synthesizer
// always requests alongside the original keys.
const descriptionField = "description"

// Synthesizer turns a finished negotiation into a validated, schema-shaped
// replacement for a structured entity. It never persists the result;
// persistence is the caller's responsibility.
type Synthesizer struct {
	gen genai.Generator
}

// NewSynthesizer creates a synthesizer over the given generator.
func NewSynthesizer(gen genai.Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize asks the generator for a replacement entity shaped like
// original, validates the response, and force-restores identity fields.
// Generator failures surface as ErrGenerationUnavailable; malformed outputs
// as *SchemaMismatchError. Both leave no partial result and are safe to
// retry with the same inputs.
func (s *Synthesizer) Synthesize(ctx context.Context, kind trip.Kind, original trip.Entity, transcript []Turn) (trip.Entity, error) {
	declared, err := trip.SchemaFor(kind)
	if err != nil {
		return nil, err
	}

	schema := outputSchema(original, declared)
	req := &genai.Request{
		Messages: buildSynthesisPrompt(original, transcript),
		Schema: &genai.OutputSchema{
			Name:   fmt.Sprintf("%s_replacement", kind),
			Schema: schema,
		},
	}

	result, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize %s: %w: %v", kind, ErrGenerationUnavailable, err)
	}
	if result.Object == nil {
		return nil, &SchemaMismatchError{Missing: original.Keys()}
	}

	if err := validateShape(original, result.Object); err != nil {
		return nil, err
	}

	replacement := trip.Entity(result.Object).Clone()

	// Identity fields are restored from the original no matter what the
	// model returned, so a generation can never reassign ownership.
	for _, key := range identityKeys(original, declared) {
		if orig, ok := original[key]; ok {
			replacement[key] = orig
		}
	}
	replacement[MarkerField] = true

	return replacement, nil
}

// outputSchema mirrors the original entity's key set, typed by the declared
// schema where a field is declared and by the runtime value otherwise, plus
// the engine-produced marker and a rendered description.
func outputSchema(original trip.Entity, declared *trip.Schema) map[string]any {
	props := make(map[string]any, len(original)+2)
	required := make([]string, 0, len(original)+2)

	for _, key := range original.Keys() {
		ft, ok := declared.Fields[key]
		if !ok {
			ft = runtimeFieldType(original[key])
		}
		props[key] = map[string]any{"type": string(ft)}
		required = append(required, key)
	}

	if _, ok := props[MarkerField]; !ok {
		props[MarkerField] = map[string]any{"type": string(trip.FieldBoolean)}
		required = append(required, MarkerField)
	}
	if _, ok := props[descriptionField]; !ok {
		props[descriptionField] = map[string]any{"type": string(trip.FieldString)}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func runtimeFieldType(v any) trip.FieldType {
	switch v.(type) {
	case bool:
		return trip.FieldBoolean
	case float64, float32, int, int64:
		return trip.FieldNumber
	case []any:
		return trip.FieldArray
	case map[string]any:
		return trip.FieldObject
	default:
		return trip.FieldString
	}
}

// validateShape enforces schema fidelity: every original key present, no
// keys beyond the original set plus the marker and description.
func validateShape(original trip.Entity, got map[string]any) error {
	var mismatch SchemaMismatchError

	for key := range original {
		if _, ok := got[key]; !ok {
			mismatch.Missing = append(mismatch.Missing, key)
		}
	}
	for key := range got {
		if key == MarkerField || key == descriptionField {
			continue
		}
		if _, ok := original[key]; !ok {
			mismatch.Unknown = append(mismatch.Unknown, key)
		}
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unknown) > 0 {
		return &mismatch
	}
	return nil
}

// identityKeys lists the fields that must survive synthesis unchanged: the
// schema's declared identity fields plus id and parent-trip references.
func identityKeys(original trip.Entity, declared *trip.Schema) []string {
	seen := map[string]bool{}
	var keys []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range declared.Identity {
		add(k)
	}
	for _, k := range []string{"id", "trip_id", "trip"} {
		if _, ok := original[k]; ok {
			add(k)
		}
	}
	return keys
}
