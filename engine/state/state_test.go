package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

func schema() map[string]models.StateFieldSchema {
	return map[string]models.StateFieldSchema{
		"topic":   {Name: "topic", Type: models.TypeString, Required: true},
		"summary": {Name: "summary", Type: models.TypeString, Required: false, Default: ""},
		"count":   {Name: "count", Type: models.TypeInt, Required: false, Default: 0},
	}
}

func TestBuildEnforcesRequiredFields(t *testing.T) {
	f := New(schema())
	_, err := f.Build(map[string]any{})
	require.Error(t, err)
	var serr *models.StateInitializationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "topic", serr.Field)
}

func TestBuildAppliesDefaults(t *testing.T) {
	f := New(schema())
	s, err := f.Build(map[string]any{"topic": "ai"})
	require.NoError(t, err)
	assert.Equal(t, "", s["summary"])
	assert.Equal(t, 0, s["count"])
}

func TestBuildRejectsUnknownField(t *testing.T) {
	f := New(schema())
	_, err := f.Build(map[string]any{"topic": "ai", "bogus": 1})
	require.Error(t, err)
}

func TestBuildAllowsReservedLoopKey(t *testing.T) {
	f := New(schema())
	s, err := f.Build(map[string]any{"topic": "ai", "_loop_iteration_step": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, s["_loop_iteration_step"])
}

func TestMergeAppliesPatch(t *testing.T) {
	f := New(schema())
	s, err := f.Build(map[string]any{"topic": "ai"})
	require.NoError(t, err)

	merged, err := f.Merge(s, map[string]any{"summary": "AI SUMMARY"})
	require.NoError(t, err)
	assert.Equal(t, "AI SUMMARY", merged["summary"])
	assert.Equal(t, "ai", merged["topic"], "merge must not mutate unrelated fields")
}

func TestMergeRejectsUndeclaredField(t *testing.T) {
	f := New(schema())
	s, _ := f.Build(map[string]any{"topic": "ai"})
	_, err := f.Merge(s, map[string]any{"bogus": 1})
	require.Error(t, err)
}

func TestIncrementLoopCounterStartsAtZero(t *testing.T) {
	s := State{}
	key, next := IncrementLoopCounter(s, "step")
	assert.Equal(t, "_loop_iteration_step", key)
	assert.Equal(t, 1, next)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := State{"a": 1}
	snap := s.Snapshot()
	snap["a"] = 2
	assert.Equal(t, 1, s["a"])
}
