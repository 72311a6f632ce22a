package models

import "time"

// Deployment is a Deployment Lease row: a long-lived worker's TTL-bounded
// liveness registration.
type Deployment struct {
	DeploymentID   string         `json:"deployment_id"`
	DeploymentName string         `json:"deployment_name"`
	Host           string         `json:"host"`
	Port           int            `json:"port"`
	WorkflowName   string         `json:"workflow_name,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	TTLSeconds     int            `json:"ttl_seconds"`
	LastHeartbeat  time.Time      `json:"last_heartbeat"`
	RegisteredAt   time.Time      `json:"registered_at"`
}

// IsAlive implements the liveness invariant of §3: now < last_heartbeat + ttl_seconds.
func (d Deployment) IsAlive(now time.Time) bool {
	return now.Before(d.LastHeartbeat.Add(time.Duration(d.TTLSeconds) * time.Second))
}

// ConnectionStatus is the liveness state of an orchestrator-side Connection.
type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// Connection is the orchestrator's in-memory record of a registered deployment.
type Connection struct {
	DeploymentID   string           `json:"deployment_id"`
	Name           string           `json:"name"`
	Host           string           `json:"host"`
	Port           int              `json:"port"`
	Status         ConnectionStatus `json:"status"`
	ConnectedAt    time.Time        `json:"connected_at"`
	DisconnectedAt *time.Time       `json:"disconnected_at,omitempty"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
}
