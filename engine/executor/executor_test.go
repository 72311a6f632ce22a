package executor

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

func noSleep(time.Duration) {}

func TestExecuteLLMSimpleSchemaHappyPath(t *testing.T) {
	node := models.NodeConfig{
		ID:     "summarize",
		Prompt: "Summarize {topic}",
		Inputs: map[string]string{"topic": "{topic}"},
		OutputSchema: models.OutputSchema{
			Type: models.TypeString,
		},
		Outputs: []string{"summary"},
	}

	e := New(llm.NewStub(strings.ToUpper), nil, DefaultConfig())
	e.sleep = noSleep

	patch, err := e.Execute(context.Background(), node, map[string]any{"topic": "ai"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SUMMARIZE AI", patch["summary"])
}

func TestExecuteLLMObjectSchemaMapsEachField(t *testing.T) {
	node := models.NodeConfig{
		ID:     "classify",
		Prompt: "Classify {text}",
		Inputs: map[string]string{"text": "{text}"},
		OutputSchema: models.OutputSchema{
			Type: "object",
			Fields: []models.OutputSchemaField{
				{Name: "label", Type: models.TypeString},
				{Name: "word_count", Type: models.TypeInt},
			},
		},
		Outputs: []string{"label", "word_count"},
	}

	e := New(llm.NewStub(strings.ToUpper), nil, DefaultConfig())
	e.sleep = noSleep

	patch, err := e.Execute(context.Background(), node, map[string]any{"text": "hello there"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "CLASSIFY HELLO THERE", patch["label"])
	assert.Equal(t, float64(3), patch["word_count"])
}

func TestExecuteCodeNodeHappyPath(t *testing.T) {
	node := models.NodeConfig{
		ID:     "double",
		Prompt: "",
		Inputs: map[string]string{"n": "{n}"},
		Code:   "double",
		OutputSchema: models.OutputSchema{
			Type: models.TypeInt,
		},
		Outputs: []string{"doubled"},
	}

	code := codeexec.NewLocalFuncExecutor(map[string]codeexec.LocalFunc{
		"double": func(_ context.Context, inputs map[string]any) (any, error) {
			// node inputs arrive as resolved template strings
			n, err := strconv.ParseFloat(inputs["n"].(string), 64)
			if err != nil {
				return nil, err
			}
			return n * 2, nil
		},
	})

	e := New(nil, code, DefaultConfig())
	e.sleep = noSleep

	patch, err := e.Execute(context.Background(), node, map[string]any{"n": 21.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(42), patch["doubled"])
}

func TestExecuteRetriesRetryableErrorThenSucceeds(t *testing.T) {
	calls := 0
	provider := flakyProvider{
		fn: func() (llm.Result, error) {
			calls++
			if calls < 3 {
				return llm.Result{}, &models.LLMAPIError{Reason: "rate limited", Retryable: true}
			}
			return llm.Result{Content: "ok", TokensUsed: 1}, nil
		},
	}

	node := models.NodeConfig{
		ID:           "n",
		Prompt:       "go",
		OutputSchema: models.OutputSchema{Type: models.TypeString},
		Outputs:      []string{"out"},
	}

	e := New(provider, nil, Config{MaxRetries: 3, BaseDelay: time.Millisecond})
	e.sleep = noSleep

	patch, err := e.Execute(context.Background(), node, map[string]any{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", patch["out"])
	assert.Equal(t, 3, calls)
}

func TestExecuteExhaustsRetriesOnPersistentError(t *testing.T) {
	provider := flakyProvider{
		fn: func() (llm.Result, error) {
			return llm.Result{}, &models.LLMAPIError{Reason: "down", Retryable: true}
		},
	}

	node := models.NodeConfig{
		ID:           "n",
		Prompt:       "go",
		OutputSchema: models.OutputSchema{Type: models.TypeString},
		Outputs:      []string{"out"},
	}

	e := New(provider, nil, Config{MaxRetries: 2, BaseDelay: time.Millisecond})
	e.sleep = noSleep

	_, err := e.Execute(context.Background(), node, map[string]any{}, nil)
	require.Error(t, err)
	var nodeErr *models.NodeExecutionError
	require.ErrorAs(t, err, &nodeErr)
}

func TestExecuteStopsImmediatelyOnNonRetryableError(t *testing.T) {
	calls := 0
	provider := flakyProvider{
		fn: func() (llm.Result, error) {
			calls++
			return llm.Result{}, &models.LLMConfigError{Reason: "bad key"}
		},
	}

	node := models.NodeConfig{
		ID:           "n",
		Prompt:       "go",
		OutputSchema: models.OutputSchema{Type: models.TypeString},
		Outputs:      []string{"out"},
	}

	e := New(provider, nil, Config{MaxRetries: 3, BaseDelay: time.Millisecond})
	e.sleep = noSleep

	_, err := e.Execute(context.Background(), node, map[string]any{}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

type flakyProvider struct {
	fn func() (llm.Result, error)
}

func (f flakyProvider) Generate(context.Context, llm.Request) (llm.Result, error) {
	return f.fn()
}
