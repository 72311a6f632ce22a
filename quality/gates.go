// Package quality implements Quality Gates and the execution Profiler
// (§4.12): post-run metric thresholds with warn/fail/block_deploy policies,
// and per-node latency aggregation with bottleneck detection.
//
// Grounded on original_source/runtime/gates.py (as exercised by
// tests/runtime/test_gates.py) and original_source/runtime/profiler.py.
package quality

import (
	"fmt"
	"strings"
	"sync"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// GateAction is a quality gate policy (§4.12).
type GateAction string

const (
	GateActionWarn        GateAction = "warn"
	GateActionFail        GateAction = "fail"
	GateActionBlockDeploy GateAction = "block_deploy"
)

// Gate is a single threshold check over a post-run metric.
type Gate struct {
	Metric      string
	Min         *float64
	Max         *float64
	Description string
}

// Check reports whether actual satisfies the gate's min/max bounds
// (inclusive at the threshold).
func (g Gate) Check(actual float64) bool {
	if g.Min != nil && actual < *g.Min {
		return false
	}
	if g.Max != nil && actual > *g.Max {
		return false
	}
	return true
}

// Config is the set of gates applied to a run's metrics plus the policy
// to take on failure.
type Config struct {
	Gates  []Gate
	OnFail GateAction
}

// Result is one gate's outcome against a metric set.
type Result struct {
	Gate      Gate
	Passed    bool
	Actual    float64
	Threshold float64
	Message   string
}

// CheckGates evaluates every gate in cfg against metrics, resolving each
// gate's metric name with "_avg" suffix and "avg_" prefix fallbacks before
// concluding the metric is absent (§4.12).
func CheckGates(metrics map[string]float64, cfg Config) []Result {
	results := make([]Result, 0, len(cfg.Gates))
	for _, gate := range cfg.Gates {
		results = append(results, checkGate(metrics, gate))
	}
	return results
}

func checkGate(metrics map[string]float64, gate Gate) Result {
	actual, found := resolveMetric(metrics, gate.Metric)
	threshold := gateThreshold(gate)

	if !found {
		return Result{
			Gate:      gate,
			Passed:    false,
			Threshold: threshold,
			Message:   fmt.Sprintf("metric %q not found", gate.Metric),
		}
	}

	if gate.Check(actual) {
		return Result{Gate: gate, Passed: true, Actual: actual, Threshold: threshold, Message: "passed"}
	}

	var msg string
	switch {
	case gate.Max != nil && actual > *gate.Max:
		msg = fmt.Sprintf("%q = %v exceeded maximum %v", gate.Metric, actual, *gate.Max)
	case gate.Min != nil && actual < *gate.Min:
		msg = fmt.Sprintf("%q = %v below minimum %v", gate.Metric, actual, *gate.Min)
	default:
		msg = fmt.Sprintf("%q = %v failed threshold", gate.Metric, actual)
	}
	return Result{Gate: gate, Passed: false, Actual: actual, Threshold: threshold, Message: msg}
}

func gateThreshold(gate Gate) float64 {
	if gate.Max != nil {
		return *gate.Max
	}
	if gate.Min != nil {
		return *gate.Min
	}
	return 0
}

// resolveMetric looks up name exactly, then with an "_avg" suffix, then
// with an "avg_" prefix (§4.12).
func resolveMetric(metrics map[string]float64, name string) (float64, bool) {
	if v, ok := metrics[name]; ok {
		return v, true
	}
	if v, ok := metrics[name+"_avg"]; ok {
		return v, true
	}
	if v, ok := metrics["avg_"+name]; ok {
		return v, true
	}
	return 0, false
}

var (
	blockedMu sync.Mutex
	blocked   = make(map[string][]string)
)

// TakeAction applies policy to results: warn logs only, fail raises an
// aggregated QualityGateError, block_deploy records the failed gate names
// against context for later inspection via IsBlocked/GetFailed.
func TakeAction(results []Result, policy GateAction, context string) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Gate.Metric)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	switch policy {
	case GateActionFail:
		return &models.QualityGateError{Failed: failed}
	case GateActionBlockDeploy:
		blockedMu.Lock()
		blocked[context] = failed
		blockedMu.Unlock()
		return nil
	default: // GateActionWarn and any unrecognized policy
		return nil
	}
}

// IsBlocked reports whether context currently has a deploy block set.
func IsBlocked(context string) bool {
	blockedMu.Lock()
	defer blockedMu.Unlock()
	_, ok := blocked[context]
	return ok
}

// GetFailed returns the gate names that triggered context's deploy block.
func GetFailed(context string) []string {
	blockedMu.Lock()
	defer blockedMu.Unlock()
	return append([]string(nil), blocked[context]...)
}

// ClearBlock removes context's deploy block, if any.
func ClearBlock(context string) {
	blockedMu.Lock()
	defer blockedMu.Unlock()
	delete(blocked, context)
}

// FormatFailures renders a human-readable summary of failed results, used
// by callers that want more context than models.QualityGateError carries.
func FormatFailures(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if r.Passed {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(r.Message)
	}
	return b.String()
}
