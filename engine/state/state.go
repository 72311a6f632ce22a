// Package state implements the State Factory (§4.4): given a workflow's
// state schema, it builds a constructor that enforces required fields,
// applies defaults, and permits the small set of reserved extension keys
// a running execution needs (loop counters, tracker tags).
package state

import (
	"fmt"
	"strings"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// LoopIterationPrefix is the reserved key prefix for per-node loop counters
// (§3: "_loop_iteration_<node_id>").
const LoopIterationPrefix = "_loop_iteration_"

// State is a mutable execution-scoped state instance: the declared schema
// fields plus any reserved extension keys.
type State map[string]any

// Factory constructs and merges State instances for one workflow's schema.
type Factory struct {
	schema map[string]models.StateFieldSchema
}

// New creates a Factory for the given state schema.
func New(schema map[string]models.StateFieldSchema) *Factory {
	return &Factory{schema: schema}
}

// IsReservedKey reports whether key is one of the permitted extension keys:
// a loop-iteration counter, or a tracker-provided tag (prefixed "_tag_").
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, LoopIterationPrefix) || strings.HasPrefix(key, "_tag_")
}

// Build constructs the initial State from inputs: required fields must be
// present, declared defaults fill in absent optional fields, and unknown
// non-reserved keys are rejected.
func (f *Factory) Build(inputs map[string]any) (State, error) {
	out := make(State, len(f.schema))

	for name, field := range f.schema {
		val, present := inputs[name]
		switch {
		case present:
			out[name] = val
		case field.Required:
			return nil, &models.StateInitializationError{Field: name, Reason: "required field missing from inputs"}
		case field.Default != nil:
			out[name] = field.Default
		default:
			out[name] = zeroValue(field.Type)
		}
	}

	for name, val := range inputs {
		if _, declared := f.schema[name]; declared {
			continue
		}
		if IsReservedKey(name) {
			out[name] = val
			continue
		}
		return nil, &models.StateInitializationError{Field: name, Reason: "unknown field not present in state schema"}
	}

	return out, nil
}

// Merge applies a node's state-update patch onto state, returning a new
// State (the original is left untouched so callers can snapshot it before
// the merge for fork-join patch ordering).
func (f *Factory) Merge(base State, patch map[string]any) (State, error) {
	out := make(State, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if _, declared := f.schema[k]; !declared && !IsReservedKey(k) {
			return nil, &models.StateInitializationError{Field: k, Reason: "patch targets a field not present in state schema"}
		}
		out[k] = v
	}
	return out, nil
}

// IncrementLoopCounter returns the reserved key for nodeID's loop counter
// and the counter's next value given the current state.
func IncrementLoopCounter(s State, nodeID string) (key string, next int) {
	key = LoopIterationPrefix + nodeID
	cur := 0
	if v, ok := s[key]; ok {
		switch n := v.(type) {
		case int:
			cur = n
		case float64:
			cur = int(n)
		}
	}
	return key, cur + 1
}

func zeroValue(t models.FieldType) any {
	switch t {
	case models.TypeString:
		return ""
	case models.TypeInt:
		return 0
	case models.TypeFloat:
		return 0.0
	case models.TypeBool:
		return false
	case models.TypeList:
		return []any{}
	case models.TypeDict:
		return map[string]any{}
	default:
		return nil
	}
}

// Snapshot returns a shallow copy of s, suitable as the "observed state
// snapshot" a fork-group task reads its input from (§4.6 concurrency note:
// each task's patch must be a pure function of its observed snapshot).
func (s State) Snapshot() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Validate reports a descriptive error if key is neither a declared schema
// field nor a reserved extension key.
func (f *Factory) Validate(key string) error {
	if _, ok := f.schema[key]; ok || IsReservedKey(key) {
		return nil
	}
	return fmt.Errorf("field %q is not declared in the state schema", key)
}
