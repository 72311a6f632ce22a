package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, scope Scope, workflowID, nodeID string) *AgentMemory {
	t.Helper()
	store := NewStore(NewMemoryRepository(), nil)
	m, err := New("agent-1", workflowID, nodeID, scope, store)
	require.NoError(t, err)
	return m
}

func TestAgentMemoryWriteReadRoundTrip(t *testing.T) {
	m := newTestMemory(t, ScopeAgent, "", "")
	require.NoError(t, m.Write("counter", 42.0, 0))

	v, err := m.Read("counter", nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestAgentMemoryReadMissingReturnsDefault(t *testing.T) {
	m := newTestMemory(t, ScopeAgent, "", "")
	v, err := m.Read("missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestAgentMemoryDeleteThenReadIsDefault(t *testing.T) {
	m := newTestMemory(t, ScopeAgent, "", "")
	require.NoError(t, m.Write("k", "v", 0))

	deleted, err := m.Delete("k")
	require.NoError(t, err)
	assert.True(t, deleted)

	v, err := m.Read("k", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNewRejectsWorkflowScopeWithoutWorkflowID(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil)
	_, err := New("agent-1", "", "", ScopeWorkflow, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow_id is required")
}

func TestNewRejectsNodeScopeWithoutNodeID(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil)
	_, err := New("agent-1", "wf-1", "", ScopeNode, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow_id and node_id are required")
}

func TestAgentMemoryContainsAndLen(t *testing.T) {
	m := newTestMemory(t, ScopeAgent, "", "")
	require.NoError(t, m.Write("a", 1.0, 0))
	require.NoError(t, m.Write("b", 2.0, 0))

	ok, err := m.Contains("a")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAgentMemoryListFiltersByPrefix(t *testing.T) {
	m := newTestMemory(t, ScopeAgent, "", "")
	require.NoError(t, m.Write("user:name", "alice", 0))
	require.NoError(t, m.Write("user:age", 30.0, 0))
	require.NoError(t, m.Write("session:id", "s1", 0))

	entries, err := m.List("user:")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWorkflowScopeIsIsolatedFromAgentScope(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil)
	agentScoped, err := New("agent-1", "", "", ScopeAgent, store)
	require.NoError(t, err)
	workflowScoped, err := New("agent-1", "wf-1", "", ScopeWorkflow, store)
	require.NoError(t, err)

	require.NoError(t, agentScoped.Write("shared", "agent-value", 0))
	require.NoError(t, workflowScoped.Write("shared", "workflow-value", 0))

	v, err := agentScoped.Read("shared", nil)
	require.NoError(t, err)
	assert.Equal(t, "agent-value", v)

	v, err = workflowScoped.Read("shared", nil)
	require.NoError(t, err)
	assert.Equal(t, "workflow-value", v)
}

func TestWorkflowScopedClearOnlyRemovesThatWorkflow(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil)
	wf1, err := New("agent-1", "wf-1", "", ScopeWorkflow, store)
	require.NoError(t, err)
	wf2, err := New("agent-1", "wf-2", "", ScopeWorkflow, store)
	require.NoError(t, err)

	require.NoError(t, wf1.Write("k", "v1", 0))
	require.NoError(t, wf2.Write("k", "v2", 0))

	n, err := wf1.Clear()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := wf1.Read("k", nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = wf2.Read("k", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestAgentScopedClearRemovesAllOfAgentsRows(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil)
	agentScoped, err := New("agent-1", "", "", ScopeAgent, store)
	require.NoError(t, err)
	workflowScoped, err := New("agent-1", "wf-1", "", ScopeWorkflow, store)
	require.NoError(t, err)

	require.NoError(t, agentScoped.Write("a", 1.0, 0))
	require.NoError(t, workflowScoped.Write("b", 2.0, 0))

	n, err := agentScoped.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := workflowScoped.Read("b", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}
