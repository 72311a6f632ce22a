package models

import "time"

// ExecutionStatus is the lifecycle state of an Execution Record.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Execution is the persistent record of one workflow run.
type Execution struct {
	ID              string          `json:"id"`
	WorkflowName    string          `json:"workflow_name"`
	Status          ExecutionStatus `json:"status"`
	ConfigSnapshot  []byte          `json:"config_snapshot"`
	Inputs          []byte          `json:"inputs"`
	Outputs         []byte          `json:"outputs,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	TotalTokens     *int64          `json:"total_tokens,omitempty"`
	TotalCost       *float64        `json:"total_cost,omitempty"`
	BottleneckInfo  []byte          `json:"bottleneck_info,omitempty"`
}

// ExecutionStateSnapshot is one append-only row of state history, captured
// after a node completes.
type ExecutionStateSnapshot struct {
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	StateData   []byte    `json:"state_data"`
	CreatedAt   time.Time `json:"created_at"`
}
