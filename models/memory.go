package models

import (
	"fmt"
	"time"
)

// MemoryEntry is a persisted namespaced key/value row (§3, §4.13).
type MemoryEntry struct {
	NamespaceKey string    `json:"namespace_key"`
	AgentID      string    `json:"agent_id"`
	WorkflowID   string    `json:"workflow_id,omitempty"`
	NodeID       string    `json:"node_id,omitempty"`
	UserKey      string    `json:"user_key"`
	Value        []byte    `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Wildcard is the placeholder used in a namespace key segment when a
// memory entry is not scoped to a particular workflow or node.
const Wildcard = "*"

// NamespaceKey builds the "agent_id:(workflow_id|*):(node_id|*):user_key"
// composite key described in §3.
func NamespaceKey(agentID, workflowID, nodeID, userKey string) string {
	w := workflowID
	if w == "" {
		w = Wildcard
	}
	n := nodeID
	if n == "" {
		n = Wildcard
	}
	return fmt.Sprintf("%s:%s:%s:%s", agentID, w, n, userKey)
}

// WebhookEvent is the idempotency row of §3: "seen" iff the row exists.
type WebhookEvent struct {
	WebhookID   string    `json:"webhook_id"`
	Provider    string    `json:"provider"`
	ProcessedAt time.Time `json:"processed_at"`
}
