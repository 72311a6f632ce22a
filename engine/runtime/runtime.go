package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/condition"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/executor"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/graph"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/state"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/tracker"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Recorder persists the execution lifecycle (§6); it is optional — a nil
// Recorder degrades silently so Runtime is usable without a database in
// tests and the CLI facade.
type Recorder interface {
	RecordExecution(ctx context.Context, exec *models.Execution) error
	RecordSnapshot(ctx context.Context, snap *models.ExecutionStateSnapshot) error
}

// Runtime is the Workflow Runtime Façade (§4.7).
type Runtime struct {
	Provider llm.Provider
	Code     codeexec.Executor
	Tracker  tracker.Tracker
	Recorder Recorder
	ExecCfg  executor.Config
}

// New builds a Runtime. A nil Tracker defaults to tracker.Noop.
func New(provider llm.Provider, code codeexec.Executor, trk tracker.Tracker, rec Recorder) *Runtime {
	if trk == nil {
		trk = tracker.Noop{}
	}
	return &Runtime{
		Provider: provider,
		Code:     code,
		Tracker:  trk,
		Recorder: rec,
		ExecCfg:  executor.DefaultConfig(),
	}
}

// Result is the outcome of a Run.
type Result struct {
	ExecutionID string
	Outputs     map[string]any
	Status      models.ExecutionStatus
}

// Run loads configPath, validates it, builds the initial state from inputs,
// compiles the graph, and drives it to completion, recording the execution
// lifecycle throughout.
func (rt *Runtime) Run(ctx context.Context, configPath string, inputs map[string]any) (Result, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Result{}, err
	}
	return rt.RunConfig(ctx, cfg, inputs)
}

// RunConfig runs an already-loaded, already-validated config.
func (rt *Runtime) RunConfig(ctx context.Context, cfg *models.WorkflowConfig, inputs map[string]any) (Result, error) {
	factory := state.New(cfg.State)
	initial, err := factory.Build(inputs)
	if err != nil {
		return Result{}, err
	}

	execID := uuid.NewString()
	configSnapshot, _ := json.Marshal(cfg)
	inputsJSON, _ := json.Marshal(inputs)

	exec := &models.Execution{
		ID:             execID,
		WorkflowName:   cfg.Name,
		Status:         models.ExecutionPending,
		ConfigSnapshot: configSnapshot,
		Inputs:         inputsJSON,
		StartedAt:      time.Now(),
	}
	rt.record(ctx, exec)

	exec.Status = models.ExecutionRunning
	rt.record(ctx, exec)

	run, err := rt.Tracker.StartRun(ctx, inputs)
	if err != nil {
		run = nil
	}

	nodeExecutor := executor.New(rt.Provider, rt.Code, rt.ExecCfg)
	condEvaluator, err := condition.NewEvaluator()
	if err != nil {
		return rt.fail(ctx, exec, run, err)
	}

	interp, err := graph.Compile(cfg, factory, nodeExecutor, condEvaluator)
	if err != nil {
		return rt.fail(ctx, exec, run, err)
	}
	interp.OnNodeComplete = func(nodeID string, merged state.State) {
		rt.recordSnapshot(ctx, execID, nodeID, merged)
	}

	finalState, status, err := interp.Run(ctx, initial, run)
	if err != nil {
		return rt.fail(ctx, exec, run, err)
	}

	if status == graph.StatusCancelled {
		exec.Status = models.ExecutionCancelled
		completedAt := time.Now()
		exec.CompletedAt = &completedAt
		duration := completedAt.Sub(exec.StartedAt).Seconds()
		exec.DurationSeconds = &duration
		rt.record(ctx, exec)
		if run != nil {
			run.End(ctx, string(models.ExecutionCancelled))
		}
		return Result{ExecutionID: execID, Status: models.ExecutionCancelled}, nil
	}

	outputs := collectOutputs(cfg, finalState)
	outputsJSON, _ := json.Marshal(outputs)

	completedAt := time.Now()
	duration := completedAt.Sub(exec.StartedAt).Seconds()
	exec.Status = models.ExecutionCompleted
	exec.CompletedAt = &completedAt
	exec.DurationSeconds = &duration
	exec.Outputs = outputsJSON
	rt.record(ctx, exec)

	if run != nil {
		run.End(ctx, string(models.ExecutionCompleted))
	}

	return Result{ExecutionID: execID, Outputs: outputs, Status: models.ExecutionCompleted}, nil
}

// RunAsync runs in a background goroutine and returns a channel that
// receives exactly one Result (or error), per §4.7's async variant.
func (rt *Runtime) RunAsync(ctx context.Context, configPath string, inputs map[string]any) <-chan asyncResult {
	out := make(chan asyncResult, 1)
	go func() {
		res, err := rt.Run(ctx, configPath, inputs)
		out <- asyncResult{Result: res, Err: err}
		close(out)
	}()
	return out
}

type asyncResult struct {
	Result Result
	Err    error
}

func (rt *Runtime) fail(ctx context.Context, exec *models.Execution, run tracker.Run, cause error) (Result, error) {
	completedAt := time.Now()
	duration := completedAt.Sub(exec.StartedAt).Seconds()
	exec.Status = models.ExecutionFailed
	exec.CompletedAt = &completedAt
	exec.DurationSeconds = &duration
	exec.ErrorMessage = cause.Error()
	rt.record(ctx, exec)
	if run != nil {
		run.End(ctx, string(models.ExecutionFailed))
	}
	return Result{ExecutionID: exec.ID, Status: models.ExecutionFailed}, cause
}

func (rt *Runtime) record(ctx context.Context, exec *models.Execution) {
	if rt.Recorder == nil {
		return
	}
	copied := *exec
	_ = rt.Recorder.RecordExecution(ctx, &copied)
}

func (rt *Runtime) recordSnapshot(ctx context.Context, execID, nodeID string, s state.State) {
	if rt.Recorder == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = rt.Recorder.RecordSnapshot(ctx, &models.ExecutionStateSnapshot{
		ExecutionID: execID,
		NodeID:      nodeID,
		StateData:   data,
		CreatedAt:   time.Now(),
	})
}

// collectOutputs returns the value of every state field any node declared
// in its outputs, per §4.7.
func collectOutputs(cfg *models.WorkflowConfig, final state.State) map[string]any {
	seen := map[string]bool{}
	outputs := map[string]any{}
	for _, n := range cfg.Nodes {
		for _, name := range n.Outputs {
			if seen[name] {
				continue
			}
			seen[name] = true
			outputs[name] = final[name]
		}
	}
	return outputs
}
