package memory

import (
	"encoding/json"
	"strings"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Scope is an AgentMemory's visibility level (§4.13).
type Scope string

const (
	ScopeAgent    Scope = "agent"
	ScopeWorkflow Scope = "workflow"
	ScopeNode     Scope = "node"
)

// Entry is one (key, value) pair as returned by List/Keys.
type Entry struct {
	Key   string
	Value any
}

// AgentMemory is the namespaced, scope-validated facade over a Store,
// mirroring original_source/memory/store.py's AgentMemory class: reads and
// writes are keyed by a short user-facing name and automatically placed
// under "{agent}:{workflow|*}:{node|*}:{key}" (§3).
type AgentMemory struct {
	agentID    string
	workflowID string
	nodeID     string
	scope      Scope
	store      *Store
}

// New constructs an AgentMemory bound to agentID/workflowID/nodeID at
// scope. It returns *models.MemoryScopeError if scope requires an
// identifier that wasn't supplied: workflow scope needs workflowID, node
// scope needs both workflowID and nodeID.
func New(agentID, workflowID, nodeID string, scope Scope, store *Store) (*AgentMemory, error) {
	if scope == ScopeWorkflow && workflowID == "" {
		return nil, &models.MemoryScopeError{Scope: string(scope), Reason: "workflow_id is required for workflow scope"}
	}
	if scope == ScopeNode && (workflowID == "" || nodeID == "") {
		return nil, &models.MemoryScopeError{Scope: string(scope), Reason: "workflow_id and node_id are required for node scope"}
	}
	return &AgentMemory{
		agentID:    agentID,
		workflowID: workflowID,
		nodeID:     nodeID,
		scope:      scope,
		store:      store,
	}, nil
}

func (m *AgentMemory) namespace(key string) string {
	return models.NamespaceKey(m.agentID, m.workflowID, m.nodeID, key)
}

// scopePrefix is the namespace prefix shared by every key at m's scope,
// without a trailing colon, e.g. "agent:workflow:*" for workflow scope.
func (m *AgentMemory) scopePrefix() string {
	ns := m.namespace("")
	return strings.TrimSuffix(ns, ":")
}

// Write stores value under key, JSON-serialized (§4.13). ttl is accepted
// for interface parity with the original but is not yet enforced — no
// repository implementation here supports row expiry.
func (m *AgentMemory) Write(key string, value any, ttl int) error {
	return m.store.Set(m.namespace(key), value, m.agentID, m.workflowID, m.nodeID, key)
}

// Read returns the value stored under key, or def if absent.
func (m *AgentMemory) Read(key string, def any) (any, error) {
	v, ok, err := m.store.Get(m.namespace(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Get is the dict-like read (Python's __getitem__): nil if absent.
func (m *AgentMemory) Get(key string) (any, error) {
	return m.Read(key, nil)
}

// Delete removes key, reporting whether it existed.
func (m *AgentMemory) Delete(key string) (bool, error) {
	return m.store.repo.Delete(m.namespace(key))
}

// List returns every entry at m's scope whose key has the given prefix.
func (m *AgentMemory) List(prefix string) ([]Entry, error) {
	rows, err := m.store.repo.List(m.agentID, "")
	if err != nil {
		return nil, err
	}

	scopePrefix := m.scopePrefix() + ":"
	var out []Entry
	for _, row := range rows {
		if !strings.HasPrefix(row.NamespaceKey, scopePrefix) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(row.UserKey, prefix) {
			continue
		}
		var v any
		if err := json.Unmarshal(row.ValueJSON, &v); err != nil {
			v = string(row.ValueJSON)
		}
		out = append(out, Entry{Key: row.UserKey, Value: v})
	}
	return out, nil
}

// Keys returns every key name at m's scope.
func (m *AgentMemory) Keys() ([]string, error) {
	entries, err := m.List("")
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys, nil
}

// Contains reports whether key has a stored value at m's scope.
func (m *AgentMemory) Contains(key string) (bool, error) {
	v, err := m.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// Len returns the number of keys stored at m's scope.
func (m *AgentMemory) Len() (int, error) {
	keys, err := m.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes every entry at m's scope: workflow scope clears only this
// (agent, workflow)'s rows; agent and node scope clear all of the agent's
// rows, matching the Python original's clear() (node scope has no
// dedicated repository method, so it falls back to the agent-wide clear).
func (m *AgentMemory) Clear() (int, error) {
	if m.scope == ScopeWorkflow && m.workflowID != "" {
		return m.store.repo.ClearByWorkflow(m.agentID, m.workflowID)
	}
	return m.store.repo.Clear(m.agentID)
}
