package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/condition"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/executor"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/state"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

func mustEvaluator(t *testing.T) *condition.Evaluator {
	t.Helper()
	ev, err := condition.NewEvaluator()
	require.NoError(t, err)
	return ev
}

// TestRunLinearTwoNodeScenario mirrors §8 scenario 1: node A uppercases the
// topic into state.summary, node B uppercases that again.
func TestRunLinearTwoNodeScenario(t *testing.T) {
	cfg := &models.WorkflowConfig{
		SchemaVersion: "1",
		State: map[string]models.StateFieldSchema{
			"topic":   {Type: models.TypeString, Required: true},
			"summary": {Type: models.TypeString},
		},
		Nodes: []models.NodeConfig{
			{
				ID:           "a",
				Prompt:       "Summarize {topic}",
				OutputSchema: models.OutputSchema{Type: models.TypeString},
				Outputs:      []string{"summary"},
			},
			{
				ID:           "b",
				Prompt:       "Capitalize {summary}",
				OutputSchema: models.OutputSchema{Type: models.TypeString},
				Outputs:      []string{"summary"},
			},
		},
		Edges: []models.Edge{
			{Kind: models.EdgeLinear, From: models.StartNodeID, To: "a"},
			{Kind: models.EdgeLinear, From: "a", To: "b"},
			{Kind: models.EdgeLinear, From: "b", To: models.EndNodeID},
		},
	}

	factory := state.New(cfg.State)
	initial, err := factory.Build(map[string]any{"topic": "ai"})
	require.NoError(t, err)

	exec := executor.New(llm.NewStub(strings.ToUpper), nil, executor.DefaultConfig())
	interp, err := Compile(cfg, factory, exec, mustEvaluator(t))
	require.NoError(t, err)

	final, status, err := interp.Run(context.Background(), initial, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "CAPITALIZE SUMMARIZE AI", final["summary"])
}

// TestRunForkJoinMergesBothBranchesDeterministically exercises a fork into
// two branches that both write distinct fields and converge at END.
func TestRunForkJoinMergesBothBranchesDeterministically(t *testing.T) {
	cfg := &models.WorkflowConfig{
		SchemaVersion: "1",
		State: map[string]models.StateFieldSchema{
			"topic": {Type: models.TypeString, Required: true},
			"upper": {Type: models.TypeString},
			"lower": {Type: models.TypeString},
		},
		Nodes: []models.NodeConfig{
			{ID: "up", Prompt: "{topic}", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"upper"}},
			{ID: "down", Prompt: "{topic}", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"lower"}},
		},
		Edges: []models.Edge{
			{Kind: models.EdgeFork, From: models.StartNodeID, ToList: []string{"up", "down"}},
			{Kind: models.EdgeLinear, From: "up", To: models.EndNodeID},
			{Kind: models.EdgeLinear, From: "down", To: models.EndNodeID},
		},
	}

	factory := state.New(cfg.State)
	initial, err := factory.Build(map[string]any{"topic": "hi"})
	require.NoError(t, err)

	exec := executor.New(llm.NewStub(strings.ToUpper), nil, executor.DefaultConfig())
	interp, err := Compile(cfg, factory, exec, mustEvaluator(t))
	require.NoError(t, err)

	final, status, err := interp.Run(context.Background(), initial, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "HI", final["upper"])
	assert.Equal(t, "HI", final["lower"])
}

func TestRunConditionalRoutesToMatchedBranch(t *testing.T) {
	cfg := &models.WorkflowConfig{
		SchemaVersion: "1",
		State: map[string]models.StateFieldSchema{
			"score":  {Type: models.TypeInt, Required: true},
			"result": {Type: models.TypeString},
		},
		Nodes: []models.NodeConfig{
			{ID: "pass", Prompt: "passed", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"result"}},
			{ID: "fail", Prompt: "failed", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"result"}},
		},
		Edges: []models.Edge{
			{
				Kind: models.EdgeConditional, From: models.StartNodeID,
				Routes: []models.RouteCondition{
					{Logic: "state.score >= 50", To: "pass"},
					{Logic: "default", To: "fail"},
				},
			},
			{Kind: models.EdgeLinear, From: "pass", To: models.EndNodeID},
			{Kind: models.EdgeLinear, From: "fail", To: models.EndNodeID},
		},
	}

	factory := state.New(cfg.State)
	exec := executor.New(llm.NewStub(nil), nil, executor.DefaultConfig())
	ev := mustEvaluator(t)

	interp, err := Compile(cfg, factory, exec, ev)
	require.NoError(t, err)

	initial, err := factory.Build(map[string]any{"score": 80})
	require.NoError(t, err)
	final, status, err := interp.Run(context.Background(), initial, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "passed", final["result"])

	initial2, err := factory.Build(map[string]any{"score": 10})
	require.NoError(t, err)
	final2, _, err := interp.Run(context.Background(), initial2, nil)
	require.NoError(t, err)
	assert.Equal(t, "failed", final2["result"])
}

func TestRunLoopExitsAtMaxIterations(t *testing.T) {
	cfg := &models.WorkflowConfig{
		SchemaVersion: "1",
		State: map[string]models.StateFieldSchema{
			"done":  {Type: models.TypeBool},
			"value": {Type: models.TypeString},
		},
		Nodes: []models.NodeConfig{
			{ID: "step", Prompt: "{value}x", Inputs: map[string]string{"value": "{value}"}, OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"value"}},
			{ID: "finish", Prompt: "done", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"value"}},
		},
		Edges: []models.Edge{
			{Kind: models.EdgeLinear, From: models.StartNodeID, To: "step"},
			{
				Kind: models.EdgeLoop, From: "step",
				Loop: &models.LoopSpec{ConditionField: "done", ExitTo: "finish", MaxIterations: 3},
			},
			{Kind: models.EdgeLinear, From: "finish", To: models.EndNodeID},
		},
	}

	factory := state.New(cfg.State)
	initial, err := factory.Build(map[string]any{"value": ""})
	require.NoError(t, err)

	exec := executor.New(llm.NewStub(func(s string) string { return s }), nil, executor.DefaultConfig())
	interp, err := Compile(cfg, factory, exec, mustEvaluator(t))
	require.NoError(t, err)

	final, status, err := interp.Run(context.Background(), initial, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.Equal(t, "done", final["value"])
	assert.Equal(t, 3, final["_loop_iteration_step"])
}

func TestRunReportsNodeExecutionFailures(t *testing.T) {
	cfg := &models.WorkflowConfig{
		SchemaVersion: "1",
		State: map[string]models.StateFieldSchema{
			"out": {Type: models.TypeString},
		},
		Nodes: []models.NodeConfig{
			{ID: "bad", Code: "missing", OutputSchema: models.OutputSchema{Type: models.TypeString}, Outputs: []string{"out"}},
		},
		Edges: []models.Edge{
			{Kind: models.EdgeLinear, From: models.StartNodeID, To: "bad"},
			{Kind: models.EdgeLinear, From: "bad", To: models.EndNodeID},
		},
	}

	factory := state.New(cfg.State)
	initial, err := factory.Build(nil)
	require.NoError(t, err)

	exec := executor.New(llm.NewStub(nil), nil, executor.DefaultConfig())
	interp, err := Compile(cfg, factory, exec, mustEvaluator(t))
	require.NoError(t, err)

	_, _, err = interp.Run(context.Background(), initial, nil)
	require.Error(t, err)
}
