package models

import "fmt"

// FieldType enumerates the primitive types a state or output field may declare.
type FieldType string

const (
	TypeString FieldType = "str"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeDict   FieldType = "dict"
	TypeAny    FieldType = "any"
)

// StateFieldSchema describes one entry of a workflow's state schema.
type StateFieldSchema struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// OutputSchemaField describes one named field of an object-typed output schema.
type OutputSchemaField struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// OutputSchema is a node's declared LLM/code output contract: either a bare
// simple type (wrapped as {result: value}) or an object of named fields.
type OutputSchema struct {
	Type   FieldType           `json:"type" yaml:"type"`
	Fields []OutputSchemaField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IsObject reports whether the schema is the object/named-fields form.
func (s OutputSchema) IsObject() bool { return s.Type == "object" }

// SandboxConfig describes the capability limits applied to a code node.
type SandboxConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	MemoryMB       int    `json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`
	Network        bool   `json:"network,omitempty" yaml:"network,omitempty"`
	Preset         string `json:"preset,omitempty" yaml:"preset,omitempty"`
}

// LLMOverride lets a node override the workflow-level LLM configuration.
type LLMOverride struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// NodeConfig is one node of the declarative workflow description.
type NodeConfig struct {
	ID            string            `json:"id" yaml:"id"`
	Prompt        string            `json:"prompt" yaml:"prompt"`
	Inputs        map[string]string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	OutputSchema  OutputSchema      `json:"output_schema" yaml:"output_schema"`
	Outputs       []string          `json:"outputs" yaml:"outputs"`
	Tools         []string          `json:"tools,omitempty" yaml:"tools,omitempty"`
	Code          string            `json:"code,omitempty" yaml:"code,omitempty"`
	Sandbox       *SandboxConfig    `json:"sandbox,omitempty" yaml:"sandbox,omitempty"`
	LLM           *LLMOverride      `json:"llm,omitempty" yaml:"llm,omitempty"`
	Observability map[string]any    `json:"observability,omitempty" yaml:"observability,omitempty"`
}

// IsCodeNode reports whether this node executes via the code executor
// instead of the LLM provider.
func (n NodeConfig) IsCodeNode() bool { return n.Code != "" }

// RouteCondition is one branch of a conditional edge.
type RouteCondition struct {
	Logic string `json:"logic" yaml:"logic"`
	To    string `json:"to" yaml:"to"`
}

// LoopSpec is the loop configuration of a loop edge.
type LoopSpec struct {
	ConditionField string `json:"condition_field" yaml:"condition_field"`
	ExitTo         string `json:"exit_to" yaml:"exit_to"`
	MaxIterations  int    `json:"max_iterations" yaml:"max_iterations"`
}

// EdgeKind discriminates the four edge shapes of §3.
type EdgeKind string

const (
	EdgeLinear      EdgeKind = "linear"
	EdgeFork        EdgeKind = "fork"
	EdgeConditional EdgeKind = "conditional"
	EdgeLoop        EdgeKind = "loop"
)

// StartNodeID and EndNodeID name the virtual terminals of §4.6.
const (
	StartNodeID = "START"
	EndNodeID   = "END"
)

// Edge is a single control-flow connector. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Edge struct {
	Kind   EdgeKind         `json:"-" yaml:"-"`
	From   string           `json:"from" yaml:"from"`
	To     string           `json:"to,omitempty" yaml:"to,omitempty"`
	ToList []string         `json:"to_list,omitempty" yaml:"to_list,omitempty"`
	Routes []RouteCondition `json:"routes,omitempty" yaml:"routes,omitempty"`
	Loop   *LoopSpec        `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// Default returns the edge's default route, or false if none is declared.
func (e Edge) Default() (RouteCondition, bool) {
	for _, r := range e.Routes {
		if r.Logic == "default" {
			return r, true
		}
	}
	return RouteCondition{}, false
}

// WorkflowConfig is the immutable, load-time-built workflow description.
type WorkflowConfig struct {
	Name          string                      `json:"name" yaml:"name"`
	Version       string                      `json:"version,omitempty" yaml:"version,omitempty"`
	SchemaVersion string                      `json:"schema_version" yaml:"schema_version"`
	State         map[string]StateFieldSchema `json:"state" yaml:"state"`
	Nodes         []NodeConfig                `json:"nodes" yaml:"nodes"`
	Edges         []Edge                      `json:"edges" yaml:"edges"`
}

// NodeByID returns the node with the given id, if present.
func (c *WorkflowConfig) NodeByID(id string) (*NodeConfig, bool) {
	for i := range c.Nodes {
		if c.Nodes[i].ID == id {
			return &c.Nodes[i], true
		}
	}
	return nil, false
}

// Validate checks the structural invariants of §3 that the Graph Builder
// depends on: schema_version present, exactly one START edge, every
// conditional edge has a default route, every referenced node id exists.
func (c *WorkflowConfig) Validate() error {
	if c.SchemaVersion == "" {
		return &ConfigValidationError{Reason: "schema_version is required"}
	}
	if len(c.Nodes) == 0 {
		return &ConfigValidationError{Reason: "workflow must declare at least one node"}
	}
	if len(c.Edges) == 0 {
		return &ConfigValidationError{Reason: "workflow must declare at least one edge"}
	}

	ids := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		if n.ID == "" {
			return &ConfigValidationError{Reason: "node id must not be empty"}
		}
		if ids[n.ID] {
			return &ConfigValidationError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		ids[n.ID] = true
	}

	startCount := 0
	exists := func(id string) bool {
		return id == StartNodeID || id == EndNodeID || ids[id]
	}

	for _, e := range c.Edges {
		if e.From == StartNodeID {
			startCount++
		}
		if !exists(e.From) {
			return &ConfigValidationError{Reason: fmt.Sprintf("edge references unknown source node %q", e.From)}
		}
		switch e.Kind {
		case EdgeLinear:
			if !exists(e.To) {
				return &ConfigValidationError{Reason: fmt.Sprintf("linear edge references unknown target %q", e.To)}
			}
		case EdgeFork:
			if len(e.ToList) == 0 {
				return &ConfigValidationError{Reason: fmt.Sprintf("fork edge from %q has no targets", e.From)}
			}
			for _, t := range e.ToList {
				if !exists(t) {
					return &ConfigValidationError{Reason: fmt.Sprintf("fork edge references unknown target %q", t)}
				}
			}
		case EdgeConditional:
			if _, ok := e.Default(); !ok {
				return &ConfigValidationError{Reason: fmt.Sprintf("conditional edge from %q has no default route", e.From)}
			}
			for _, r := range e.Routes {
				if !exists(r.To) {
					return &ConfigValidationError{Reason: fmt.Sprintf("conditional route references unknown target %q", r.To)}
				}
			}
		case EdgeLoop:
			if e.Loop == nil {
				return &ConfigValidationError{Reason: fmt.Sprintf("loop edge from %q missing loop spec", e.From)}
			}
			if e.Loop.ConditionField == "" {
				return &ConfigValidationError{Reason: fmt.Sprintf("loop edge from %q missing condition_field", e.From)}
			}
			if !exists(e.Loop.ExitTo) {
				return &ConfigValidationError{Reason: fmt.Sprintf("loop edge references unknown exit_to %q", e.Loop.ExitTo)}
			}
		default:
			return &ConfigValidationError{Reason: fmt.Sprintf("edge from %q has unknown kind", e.From)}
		}
	}

	if startCount != 1 {
		return &ConfigValidationError{Reason: fmt.Sprintf("workflow must have exactly one START edge, found %d", startCount)}
	}

	return nil
}
