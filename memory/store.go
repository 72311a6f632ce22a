package memory

import (
	"encoding/json"
	"log/slog"
)

// Store is the low-level, namespace-unaware access point onto a Repository:
// it JSON-serializes values on the way in and deserializes on the way out,
// but knows nothing about scopes. AgentMemory builds namespace keys and
// delegates to Store; advanced callers may use Store directly.
//
// Grounded on original_source/memory/store.py's MemoryStore class.
type Store struct {
	repo Repository
	log  *slog.Logger
}

// NewStore wraps repo with JSON (de)serialization.
func NewStore(repo Repository, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{repo: repo, log: log}
}

// Get returns the deserialized value stored at ns, or (nil, false) if
// absent or if the stored bytes fail to deserialize (logged, not
// returned as an error — a corrupt row degrades to "not found").
func (s *Store) Get(ns string) (any, bool, error) {
	raw, ok, err := s.repo.Get(ns)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn("memory: failed to deserialize value", "namespace_key", ns, "error", err)
		return nil, false, nil
	}
	return v, true, nil
}

// Set serializes value and stores it at ns.
func (s *Store) Set(ns string, value any, agentID, workflowID, nodeID, key string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.repo.Set(ns, raw, agentID, workflowID, nodeID, key); err != nil {
		return err
	}
	s.log.Debug("memory: stored", "namespace_key", ns)
	return nil
}
