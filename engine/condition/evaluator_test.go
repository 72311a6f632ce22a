package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEval(t *testing.T) *Evaluator {
	t.Helper()
	e, err := NewEvaluator()
	require.NoError(t, err)
	return e
}

func TestEvalDefaultSentinelIsAlwaysTrue(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval("default", map[string]any{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalNumericComparison(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval("state.score > 0.8", map[string]any{"score": 0.9})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Eval("state.score > 0.8", map[string]any{"score": 0.2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalMissingFieldYieldsFalse(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval("state.score > 0.8", map[string]any{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalStringComparison(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval(`state.label == "high"`, map[string]any{"label": "high"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalAndOrNot(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval("state.a > 1 and state.b > 1", map[string]any{"a": 2.0, "b": 2.0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Eval("state.a > 1 or state.b > 1", map[string]any{"a": 0.0, "b": 2.0})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalNotNotIsIdentity(t *testing.T) {
	e := newEval(t)
	s := map[string]any{"a": 2.0}
	a, err := e.Eval("not not state.a > 1", s)
	require.NoError(t, err)
	b, err := e.Eval("state.a > 1", s)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestEvalRejectsFunctionCall(t *testing.T) {
	e := newEval(t)
	_, err := e.Eval("eval(state.a)", map[string]any{"a": 1.0})
	require.Error(t, err)
}

func TestEvalRejectsDunder(t *testing.T) {
	e := newEval(t)
	_, err := e.Eval("state.__class__", map[string]any{})
	require.Error(t, err)
}

func TestEvalRejectsIndexing(t *testing.T) {
	e := newEval(t)
	_, err := e.Eval("state.a[0] == 1", map[string]any{})
	require.Error(t, err)
}

func TestEvalBareBooleanField(t *testing.T) {
	e := newEval(t)
	ok, err := e.Eval("state.done", map[string]any{"done": true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalCachesCompiledExpressions(t *testing.T) {
	e := newEval(t)
	_, err := e.Eval("state.a > 1", map[string]any{"a": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())
	_, err = e.Eval("state.a > 1", map[string]any{"a": 5.0})
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())
}
