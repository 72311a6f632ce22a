package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestGateCheckMaxThreshold(t *testing.T) {
	gate := Gate{Metric: "cost_usd", Max: f(1.0)}
	assert.True(t, gate.Check(0.5))
	assert.True(t, gate.Check(1.0))
	assert.False(t, gate.Check(1.1))
}

func TestGateCheckMinThreshold(t *testing.T) {
	gate := Gate{Metric: "score", Min: f(0.5)}
	assert.True(t, gate.Check(0.5))
	assert.False(t, gate.Check(0.4))
}

func TestCheckGatesSomeFail(t *testing.T) {
	cfg := Config{Gates: []Gate{
		{Metric: "cost_usd", Max: f(1.0)},
		{Metric: "duration_ms", Max: f(5000)},
	}}
	results := CheckGates(map[string]float64{"cost_usd": 1.5, "duration_ms": 3000}, cfg)
	require.Len(t, results, 2)
	assert.False(t, results[0].Passed)
	assert.True(t, results[1].Passed)
}

func TestCheckGatesResolvesAvgSuffixAndPrefix(t *testing.T) {
	gate := Gate{Metric: "cost_usd", Max: f(1.0)}

	suffix := CheckGates(map[string]float64{"cost_usd_avg": 0.5}, Config{Gates: []Gate{gate}})
	assert.True(t, suffix[0].Passed)

	prefix := CheckGates(map[string]float64{"avg_cost_usd": 0.5}, Config{Gates: []Gate{gate}})
	assert.True(t, prefix[0].Passed)
}

func TestCheckGatesMetricNotFound(t *testing.T) {
	results := CheckGates(map[string]float64{"duration_ms": 3000}, Config{Gates: []Gate{{Metric: "cost_usd", Max: f(1.0)}}})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "not found")
}

func TestTakeActionWarnNeverErrors(t *testing.T) {
	results := []Result{{Gate: Gate{Metric: "cost_usd"}, Passed: false}}
	assert.NoError(t, TakeAction(results, GateActionWarn, "ctx"))
}

func TestTakeActionFailRaisesAggregatedError(t *testing.T) {
	results := []Result{
		{Gate: Gate{Metric: "cost_usd"}, Passed: false},
		{Gate: Gate{Metric: "duration_ms"}, Passed: false},
	}
	err := TakeAction(results, GateActionFail, "ctx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cost_usd")
	assert.Contains(t, err.Error(), "duration_ms")
}

func TestTakeActionBlockDeploySetsFlag(t *testing.T) {
	ClearBlock("block-ctx")
	assert.False(t, IsBlocked("block-ctx"))

	results := []Result{{Gate: Gate{Metric: "cost_usd"}, Passed: false}}
	require.NoError(t, TakeAction(results, GateActionBlockDeploy, "block-ctx"))

	assert.True(t, IsBlocked("block-ctx"))
	assert.Equal(t, []string{"cost_usd"}, GetFailed("block-ctx"))

	ClearBlock("block-ctx")
	assert.False(t, IsBlocked("block-ctx"))
}

func TestTakeActionAllPassNeverBlocks(t *testing.T) {
	ClearBlock("pass-ctx")
	results := []Result{{Gate: Gate{Metric: "cost_usd"}, Passed: true}}
	require.NoError(t, TakeAction(results, GateActionBlockDeploy, "pass-ctx"))
	assert.False(t, IsBlocked("pass-ctx"))
}
