package webhooks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandExtractsWorkflowAndInput(t *testing.T) {
	cmd, ok := ParseCommand("/article_writer AI Safety")
	require := assert.New(t)
	require.True(ok)
	require.Equal("article_writer", cmd.WorkflowName)
	require.Equal("AI Safety", cmd.Input)
}

func TestParseCommandRejectsNonCommand(t *testing.T) {
	_, ok := ParseCommand("just a message")
	assert.False(t, ok)
}

func TestParseCommandNoInput(t *testing.T) {
	cmd, ok := ParseCommand("/status")
	assert.True(t, ok)
	assert.Equal(t, "status", cmd.WorkflowName)
	assert.Empty(t, cmd.Input)
}

func TestChunkMessageRespectsLimit(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := ChunkMessage(text, 100)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
	assert.Equal(t, strings.TrimSpace(text), strings.TrimSpace(strings.Join(chunks, " ")))
}

func TestChunkMessageShortTextUnchanged(t *testing.T) {
	chunks := ChunkMessage("hello", 4000)
	assert.Equal(t, []string{"hello"}, chunks)
}
