// Package output implements the Output Model Factory (§4.3): given a
// node's declared output schema, it builds a validator that enforces the
// contract on an LLM or code result.
//
// Grounded on original_source/tests/core/test_output_builder.py, which is
// the only surviving artifact of core/output_builder.py in the retrieval
// pack: simple-type schemas wrap the parsed value as {result: value};
// object-type schemas require every declared field; nested objects are
// rejected; round trip (construct -> serialize -> construct) is identity.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// ResultField is the sole key of a simple-type output model.
const ResultField = "result"

// Model is a constructed, validated output instance. It behaves as a
// plain JSON object keyed by either "result" (simple schemas) or the
// schema's declared field names (object schemas).
type Model map[string]any

// Validator validates raw LLM/code output against a node's output schema.
type Validator struct {
	schema models.OutputSchema
	nodeID string
}

// New creates a Validator for the given node's output schema. The model
// name used in diagnostics is "Output_<node_id>".
func New(schema models.OutputSchema, nodeID string) *Validator {
	return &Validator{schema: schema, nodeID: nodeID}
}

// ModelName returns the diagnostic name "Output_<node_id>".
func (v *Validator) ModelName() string { return fmt.Sprintf("Output_%s", v.nodeID) }

// Build validates raw and constructs a Model.
//
//   - If the schema is a simple type, raw must already be a value of that
//     type (after JSON round-tripping numbers land as float64); it is
//     wrapped as {result: raw}.
//   - If the schema is object-typed, raw must be a map containing every
//     declared field with the declared type; nested objects are rejected.
func (v *Validator) Build(raw any) (Model, error) {
	if v.schema.IsObject() {
		return v.buildObject(raw)
	}
	return v.buildSimple(raw)
}

func (v *Validator) buildSimple(raw any) (Model, error) {
	if err := checkType(v.schema.Type, raw); err != nil {
		return nil, &models.OutputBuilderError{NodeID: v.nodeID, Reason: err.Error()}
	}
	return Model{ResultField: raw}, nil
}

func (v *Validator) buildObject(raw any) (Model, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &models.OutputBuilderError{
			NodeID: v.nodeID,
			Reason: fmt.Sprintf("expected an object result, got %T", raw),
		}
	}

	out := make(Model, len(v.schema.Fields))
	var missing []string
	for _, f := range v.schema.Fields {
		val, present := m[f.Name]
		if !present {
			missing = append(missing, f.Name)
			continue
		}
		if isNestedObject(val) {
			return nil, &models.OutputBuilderError{
				NodeID: v.nodeID,
				Reason: fmt.Sprintf("field %q: nested objects are not supported", f.Name),
			}
		}
		if err := checkType(f.Type, val); err != nil {
			return nil, &models.OutputBuilderError{
				NodeID: v.nodeID,
				Reason: fmt.Sprintf("field %q: %s", f.Name, err.Error()),
			}
		}
		out[f.Name] = val
	}
	if len(missing) > 0 {
		return nil, &models.OutputBuilderError{
			NodeID: v.nodeID,
			Reason: fmt.Sprintf("missing required field(s): %v", missing),
		}
	}
	return out, nil
}

// Serialize renders the model to its canonical JSON form.
func (m Model) Serialize() ([]byte, error) { return json.Marshal(map[string]any(m)) }

// Roundtrip re-validates a serialized model through Build, establishing
// the round-trip identity law of §8: validate(serialize(o)) == o.
func (v *Validator) Roundtrip(m Model) (Model, error) {
	raw, err := m.Serialize()
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	if v.schema.IsObject() {
		return v.buildObject(decoded)
	}
	decodedMap, ok := decoded.(map[string]any)
	if !ok {
		return nil, &models.OutputBuilderError{NodeID: v.nodeID, Reason: "serialized simple output is not an object"}
	}
	return v.buildSimple(decodedMap[ResultField])
}

func isNestedObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func checkType(t models.FieldType, v any) error {
	switch t {
	case models.TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected str, got %T", v)
		}
	case models.TypeInt:
		switch n := v.(type) {
		case int, int64:
			return nil
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("expected int, got non-integral float %v", n)
			}
		default:
			return fmt.Errorf("expected int, got %T", v)
		}
	case models.TypeFloat:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("expected float, got %T", v)
		}
	case models.TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
	case models.TypeList:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("expected list, got %T", v)
		}
	case models.TypeDict:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("expected dict, got %T", v)
		}
	case models.TypeAny:
		// anything goes
	default:
		return fmt.Errorf("unknown type %q", t)
	}
	return nil
}
