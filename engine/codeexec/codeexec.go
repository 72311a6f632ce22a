// Package codeexec names the Code Executor capability (Design Note 9): a
// sandboxed "run this node's code" operation whose production
// implementation — a process/container boundary with CPU, memory, network
// and wall-clock limits — is explicitly out of scope for this module. It
// ships only the interface, a stub that reports unavailability, and a test
// double that runs a registered Go closure so the Node Executor's code-node
// branch is exercised without a sandbox.
package codeexec

import (
	"context"
	"fmt"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Executor runs a node's inline code against resolved inputs under the
// node's sandbox limits, returning a single result value.
type Executor interface {
	Execute(ctx context.Context, code string, inputs map[string]any, sandbox *models.SandboxConfig) (any, error)
}

// ErrUnavailable is returned by Noop; it is never retryable.
var ErrUnavailable = fmt.Errorf("code execution is not available in this deployment")

// Noop is the default Executor: sandboxed code execution is out of scope,
// so it always reports unavailability rather than silently running
// arbitrary code in-process.
type Noop struct{}

func (Noop) Execute(context.Context, string, map[string]any, *models.SandboxConfig) (any, error) {
	return nil, ErrUnavailable
}

// LocalFunc is a named Go closure a LocalFuncExecutor can dispatch to,
// keyed by the node's "code" field (so test configs can write
// code: "my_step" instead of embedding a sandboxed language).
type LocalFunc func(ctx context.Context, inputs map[string]any) (any, error)

// LocalFuncExecutor is a test double: it looks up code by name in a
// registry of Go closures and runs it directly, with no sandboxing. It
// exists purely to exercise the Node Executor's code-node branch in tests.
type LocalFuncExecutor struct {
	funcs map[string]LocalFunc
}

// NewLocalFuncExecutor creates an executor backed by the given closures.
func NewLocalFuncExecutor(funcs map[string]LocalFunc) *LocalFuncExecutor {
	return &LocalFuncExecutor{funcs: funcs}
}

func (e *LocalFuncExecutor) Execute(ctx context.Context, code string, inputs map[string]any, _ *models.SandboxConfig) (any, error) {
	fn, ok := e.funcs[code]
	if !ok {
		return nil, fmt.Errorf("no local function registered for code %q", code)
	}
	return fn(ctx, inputs)
}
