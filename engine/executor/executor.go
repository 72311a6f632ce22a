// Package executor implements the Node Executor (§4.5): resolves a node's
// prompt, calls the LLM or code executor, validates the result against the
// node's output schema, and returns a state-update patch.
package executor

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/output"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/template"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/tracker"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Config bounds the retry behavior of §4.5/§7: bounded retries on
// validation and rate-limit errors with exponential backoff up to a
// per-node cap.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultConfig mirrors the teacher's conservative retry defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, BaseDelay: 200 * time.Millisecond}
}

// Executor runs a single node.
type Executor struct {
	resolver *template.Resolver
	provider llm.Provider
	code     codeexec.Executor
	cfg      Config
	sleep    func(time.Duration)
}

// New creates a Node Executor.
func New(provider llm.Provider, code codeexec.Executor, cfg Config) *Executor {
	if code == nil {
		code = codeexec.Noop{}
	}
	return &Executor{
		resolver: template.New(),
		provider: provider,
		code:     code,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// Execute runs node against state and returns the node's output patch: a
// mapping of declared output fields (node.Outputs) to validated values.
func (e *Executor) Execute(ctx context.Context, node models.NodeConfig, state map[string]any, run tracker.Run) (map[string]any, error) {
	resolvedInputs, err := e.resolveInputs(node, state)
	if err != nil {
		return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: err.Error(), Err: err}
	}

	prompt, err := e.resolver.Resolve(node.Prompt, resolvedInputs, state)
	if err != nil {
		return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: "prompt resolution failed: " + err.Error(), Err: err}
	}

	validator := output.New(node.OutputSchema, node.ID)

	var result output.Model
	if node.IsCodeNode() {
		result, err = e.executeCode(ctx, node, resolvedInputs, validator)
	} else {
		result, err = e.executeLLM(ctx, node, prompt, validator, run)
	}
	if err != nil {
		return nil, err
	}

	return e.mapToOutputs(node, result)
}

func (e *Executor) resolveInputs(node models.NodeConfig, state map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(node.Inputs))
	for name, tmpl := range node.Inputs {
		val, err := e.resolver.Resolve(tmpl, nil, state)
		if err != nil {
			return nil, err
		}
		resolved[name] = val
	}
	return resolved, nil
}

func (e *Executor) executeCode(ctx context.Context, node models.NodeConfig, inputs map[string]any, validator *output.Validator) (output.Model, error) {
	raw, err := e.code.Execute(ctx, node.Code, inputs, node.Sandbox)
	if err != nil {
		return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: "code execution failed", Retryable: false, Err: err}
	}
	model, err := validator.Build(raw)
	if err != nil {
		return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: "code result failed validation", Err: err}
	}
	return model, nil
}

func (e *Executor) executeLLM(ctx context.Context, node models.NodeConfig, prompt string, validator *output.Validator, run tracker.Run) (output.Model, error) {
	req := llm.Request{Prompt: prompt, Schema: node.OutputSchema, Tools: node.Tools}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.sleep(backoff(e.cfg.BaseDelay, attempt))
		}

		res, err := e.provider.Generate(ctx, req)
		if err != nil {
			lastErr = err
			if !isRetryable(err) {
				break
			}
			continue
		}

		if run != nil {
			run.LogMetric("tokens_used", float64(res.TokensUsed))
		}

		model, verr := validator.Build(res.Content)
		if verr == nil {
			return model, nil
		}
		lastErr = verr
		// Validation failures are retried per §4.5/§7.
	}

	return nil, &models.NodeExecutionError{
		NodeID:    node.ID,
		Reason:    "exhausted retries: " + lastErr.Error(),
		Retryable: false,
		Err:       lastErr,
	}
}

func (e *Executor) mapToOutputs(node models.NodeConfig, result output.Model) (map[string]any, error) {
	patch := make(map[string]any, len(node.Outputs))

	if node.OutputSchema.IsObject() {
		for _, name := range node.Outputs {
			val, ok := result[name]
			if !ok {
				return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: "declared output field " + name + " absent from validated result"}
			}
			patch[name] = val
		}
		return patch, nil
	}

	if len(node.Outputs) != 1 {
		return nil, &models.NodeExecutionError{NodeID: node.ID, Reason: "simple-type output schema requires exactly one declared output field"}
	}
	patch[node.Outputs[0]] = result[output.ResultField]
	return patch, nil
}

func isRetryable(err error) bool {
	var apiErr *models.LLMAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	var provErr *models.LLMProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

func backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * base
}
