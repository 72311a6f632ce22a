package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

func TestResolveExplicitInput(t *testing.T) {
	r := New()
	out, err := r.Resolve("{x}", map[string]any{"x": "ai"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ai", out)
}

func TestResolveInputsShadowState(t *testing.T) {
	r := New()
	out, err := r.Resolve("{topic}", map[string]any{"topic": "from-input"}, map[string]any{"topic": "from-state"})
	require.NoError(t, err)
	assert.Equal(t, "from-input", out)
}

func TestResolveFallsBackToState(t *testing.T) {
	r := New()
	out, err := r.Resolve("Summarize {topic}", nil, map[string]any{"topic": "ai"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize ai", out)
}

func TestResolveDottedPath(t *testing.T) {
	r := New()
	state := map[string]any{
		"article": map[string]any{"title": "Hello", "meta": map[string]any{"len": 3}},
	}
	out, err := r.Resolve("{article.title} / {article.meta.len}", nil, state)
	require.NoError(t, err)
	assert.Equal(t, "Hello / 3", out)
}

func TestResolveMissingNameReturnsTemplateResolutionError(t *testing.T) {
	r := New()
	_, err := r.Resolve("{topik}", nil, map[string]any{"topic": "ai"})
	require.Error(t, err)
	var trErr *models.TemplateResolutionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "topik", trErr.Variable)
	assert.Contains(t, trErr.AvailableState, "topic")
	assert.Equal(t, "topic", trErr.Suggestion)
	assert.Contains(t, err.Error(), "Variable 'topik' not found")
	assert.Contains(t, err.Error(), "Did you mean 'topic'?")
}

func TestResolveNoSuggestionWhenTooFar(t *testing.T) {
	r := New()
	_, err := r.Resolve("{zzzzzzzzzz}", nil, map[string]any{"topic": "ai"})
	require.Error(t, err)
	var trErr *models.TemplateResolutionError
	require.ErrorAs(t, err, &trErr)
	assert.Empty(t, trErr.Suggestion)
}

func TestResolveLiteralBracesIgnored(t *testing.T) {
	r := New()
	out, err := r.Resolve("{ not a placeholder } and {x}", map[string]any{"x": "y"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "{ not a placeholder } and y", out)
}

func TestResolveNonStringCanonicalForm(t *testing.T) {
	r := New()
	out, err := r.Resolve("count={n} ok={b} f={f}", map[string]any{"n": float64(3), "b": true, "f": float64(1.5)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "count=3 ok=true f=1.5", out)
}

func TestExtractVariablesDeduplicates(t *testing.T) {
	vars := ExtractVariables("{a} and {b.c} and {a} again")
	assert.Equal(t, []string{"a", "b.c"}, vars)
}
