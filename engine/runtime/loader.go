// Package runtime implements the Workflow Runtime Façade (§4.7): the single
// entry point — run(config_path, inputs, tracker?) → outputs — that loads a
// declarative YAML workflow, compiles it, drives the scheduler, and records
// the execution lifecycle.
//
// Grounded on original_source/core/graph_builder.py's build_graph(), which
// composes the same load → validate → compile → run pipeline around
// LangGraph; this façade drives engine/graph's explicit scheduler instead.
package runtime

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// LoadConfig reads and parses a YAML workflow config from path.
func LoadConfig(path string) (*models.WorkflowConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ConfigLoadError{Reason: "reading config file", Err: err}
	}
	return ParseConfig(raw)
}

// ParseConfig parses raw YAML bytes into a WorkflowConfig and validates it.
func ParseConfig(raw []byte) (*models.WorkflowConfig, error) {
	var doc yamlWorkflowConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &models.ConfigLoadError{Reason: "parsing YAML", Err: err}
	}
	cfg := doc.toModel()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// yamlWorkflowConfig mirrors models.WorkflowConfig's shape but with a
// YAML-friendly edge encoding: Kind is read from an explicit "kind" field
// (models.Edge hides it from (de)serialization since Go can't discriminate
// a union by shape alone the way the original's Python dataclasses do).
type yamlWorkflowConfig struct {
	Name          string                             `yaml:"name"`
	Version       string                             `yaml:"version"`
	SchemaVersion string                             `yaml:"schema_version"`
	State         map[string]models.StateFieldSchema `yaml:"state"`
	Nodes         []models.NodeConfig                `yaml:"nodes"`
	Edges         []yamlEdge                         `yaml:"edges"`
}

type yamlEdge struct {
	Kind   string                   `yaml:"kind"`
	From   string                   `yaml:"from"`
	To     string                   `yaml:"to"`
	ToList []string                 `yaml:"to_list"`
	Routes []models.RouteCondition  `yaml:"routes"`
	Loop   *models.LoopSpec         `yaml:"loop"`
}

func (d *yamlWorkflowConfig) toModel() *models.WorkflowConfig {
	edges := make([]models.Edge, len(d.Edges))
	for i, e := range d.Edges {
		edges[i] = models.Edge{
			Kind:   models.EdgeKind(e.Kind),
			From:   e.From,
			To:     e.To,
			ToList: e.ToList,
			Routes: e.Routes,
			Loop:   e.Loop,
		}
	}
	return &models.WorkflowConfig{
		Name:          d.Name,
		Version:       d.Version,
		SchemaVersion: d.SchemaVersion,
		State:         d.State,
		Nodes:         d.Nodes,
		Edges:         edges,
	}
}
