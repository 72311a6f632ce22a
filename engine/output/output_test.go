package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

func TestBuildSimpleWrapsInResultField(t *testing.T) {
	v := New(models.OutputSchema{Type: models.TypeString}, "summarize")
	m, err := v.Build("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", m[ResultField])
	assert.Equal(t, "Output_summarize", v.ModelName())
}

func TestBuildSimpleRejectsWrongType(t *testing.T) {
	v := New(models.OutputSchema{Type: models.TypeInt}, "n")
	_, err := v.Build("not an int")
	require.Error(t, err)
	var oerr *models.OutputBuilderError
	require.ErrorAs(t, err, &oerr)
}

func TestBuildObjectRequiresAllFields(t *testing.T) {
	schema := models.OutputSchema{
		Type: "object",
		Fields: []models.OutputSchemaField{
			{Name: "article", Type: models.TypeString},
			{Name: "word_count", Type: models.TypeInt},
		},
	}
	v := New(schema, "writer")

	m, err := v.Build(map[string]any{"article": "text", "word_count": float64(42)})
	require.NoError(t, err)
	assert.Equal(t, "text", m["article"])
	assert.Equal(t, float64(42), m["word_count"])

	_, err = v.Build(map[string]any{"article": "text"})
	require.Error(t, err)
}

func TestBuildObjectRejectsNested(t *testing.T) {
	schema := models.OutputSchema{
		Type:   "object",
		Fields: []models.OutputSchemaField{{Name: "meta", Type: models.TypeAny}},
	}
	v := New(schema, "writer")
	_, err := v.Build(map[string]any{"meta": map[string]any{"nested": true}})
	require.Error(t, err)
}

func TestRoundtripIsIdentity(t *testing.T) {
	schema := models.OutputSchema{
		Type: "object",
		Fields: []models.OutputSchemaField{
			{Name: "a", Type: models.TypeString},
			{Name: "b", Type: models.TypeInt},
		},
	}
	v := New(schema, "n")
	m, err := v.Build(map[string]any{"a": "x", "b": float64(1)})
	require.NoError(t, err)

	rt, err := v.Roundtrip(m)
	require.NoError(t, err)
	assert.Equal(t, m, rt)
}

func TestRoundtripSimpleIsIdentity(t *testing.T) {
	v := New(models.OutputSchema{Type: models.TypeString}, "n")
	m, err := v.Build("hello")
	require.NoError(t, err)
	rt, err := v.Roundtrip(m)
	require.NoError(t, err)
	assert.Equal(t, m, rt)
}
