// Package memory implements the Memory Store (§4.13): namespaced,
// JSON-serialized key/value state that survives across workflow executions,
// scoped to an agent, a workflow, or a single node.
//
// Grounded on original_source/memory/store.py's MemoryStore/AgentMemory
// pair. The low-level Repository interface mirrors the persistence
// repository contract of spec §6 so a Postgres-backed implementation can
// be swapped in without touching AgentMemory or Store.
package memory

import (
	"sort"
	"strings"
	"sync"
)

// Repository is the persistence contract for namespaced memory rows (§6).
// ns is the full "{agent}:{workflow|*}:{node|*}:{key}" namespace key built
// by Store/AgentMemory; agentID/workflowID/nodeID/key are carried alongside
// for repositories that want to index on them independently of parsing ns.
type Repository interface {
	Set(ns string, valueJSON []byte, agentID, workflowID, nodeID, key string) error
	Get(ns string) ([]byte, bool, error)
	Delete(ns string) (bool, error)
	// List returns every (userKey, valueJSON) row belonging to agentID whose
	// user key has the given prefix. prefix == "" returns all of the
	// agent's rows regardless of scope; scope filtering happens above this
	// layer, in AgentMemory.
	List(agentID, prefix string) ([]Row, error)
	Clear(agentID string) (int, error)
	ClearByWorkflow(agentID, workflowID string) (int, error)
}

// Row is one namespaced entry as returned by Repository.List.
type Row struct {
	NamespaceKey string
	UserKey      string
	ValueJSON    []byte
}

// MemoryRepository is an in-process Repository implementation, used in
// tests and as the default when no durable store is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]Row
}

// NewMemoryRepository creates an empty in-memory Repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[string]Row)}
}

func (r *MemoryRepository) Set(ns string, valueJSON []byte, agentID, workflowID, nodeID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(valueJSON))
	copy(cp, valueJSON)
	r.rows[ns] = Row{NamespaceKey: ns, UserKey: key, ValueJSON: cp}
	return nil
}

func (r *MemoryRepository) Get(ns string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[ns]
	if !ok {
		return nil, false, nil
	}
	return row.ValueJSON, true, nil
}

func (r *MemoryRepository) Delete(ns string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[ns]; !ok {
		return false, nil
	}
	delete(r.rows, ns)
	return true, nil
}

// List returns every row whose namespace key starts with "agentID:" and
// whose user key has the given prefix, sorted by namespace key for a
// deterministic iteration order.
func (r *MemoryRepository) List(agentID, prefix string) ([]Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agentPrefix := agentID + ":"
	var out []Row
	for ns, row := range r.rows {
		if !strings.HasPrefix(ns, agentPrefix) {
			continue
		}
		if prefix != "" && !strings.HasPrefix(row.UserKey, prefix) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NamespaceKey < out[j].NamespaceKey })
	return out, nil
}

func (r *MemoryRepository) Clear(agentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agentPrefix := agentID + ":"
	var n int
	for ns := range r.rows {
		if strings.HasPrefix(ns, agentPrefix) {
			delete(r.rows, ns)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ClearByWorkflow(agentID, workflowID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflowPrefix := agentID + ":" + workflowID + ":"
	var n int
	for ns := range r.rows {
		if strings.HasPrefix(ns, workflowPrefix) {
			delete(r.rows, ns)
			n++
		}
	}
	return n, nil
}
