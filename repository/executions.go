// Package repository provides Postgres-backed implementations of every
// persistence interface named by spec §6: executions, execution state
// snapshots, deployments, memory, and webhook events. Query shape and
// error wrapping are grounded on the teacher's common/repository/run.go.
// Config snapshots are stored inline in the execution row's
// config_snapshot column; there is no content-addressed blob store.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// ExecutionRepository persists Execution Records (§6).
type ExecutionRepository struct {
	db *db.DB
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(database *db.DB) *ExecutionRepository {
	return &ExecutionRepository{db: database}
}

// Add inserts a new execution row.
func (r *ExecutionRepository) Add(ctx context.Context, e *models.Execution) error {
	query := `
		INSERT INTO execution (id, workflow_name, status, config_snapshot, inputs, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.WorkflowName, e.Status, e.ConfigSnapshot, e.Inputs, e.StartedAt)
	if err != nil {
		return fmt.Errorf("add execution: %w", err)
	}
	return nil
}

// RecordExecution implements runtime.Recorder by upserting the full row:
// the Workflow Runtime calls this both at start (insert) and at
// completion (update), so an upsert keeps both call sites simple.
func (r *ExecutionRepository) RecordExecution(ctx context.Context, e *models.Execution) error {
	query := `
		INSERT INTO execution (id, workflow_name, status, config_snapshot, inputs, outputs,
			error_message, started_at, completed_at, duration_seconds, total_tokens, total_cost,
			bottleneck_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			outputs = EXCLUDED.outputs,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at,
			duration_seconds = EXCLUDED.duration_seconds,
			total_tokens = EXCLUDED.total_tokens,
			total_cost = EXCLUDED.total_cost,
			bottleneck_info = EXCLUDED.bottleneck_info
	`
	_, err := r.db.Exec(ctx, query,
		e.ID, e.WorkflowName, e.Status, e.ConfigSnapshot, e.Inputs, e.Outputs,
		e.ErrorMessage, e.StartedAt, e.CompletedAt, e.DurationSeconds, e.TotalTokens, e.TotalCost,
		e.BottleneckInfo,
	)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// Get retrieves an execution by id.
func (r *ExecutionRepository) Get(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT id, workflow_name, status, config_snapshot, inputs, outputs, error_message,
			started_at, completed_at, duration_seconds, total_tokens, total_cost, bottleneck_info
		FROM execution
		WHERE id = $1
	`
	e := &models.Execution{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.WorkflowName, &e.Status, &e.ConfigSnapshot, &e.Inputs, &e.Outputs, &e.ErrorMessage,
		&e.StartedAt, &e.CompletedAt, &e.DurationSeconds, &e.TotalTokens, &e.TotalCost, &e.BottleneckInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// ListByWorkflow returns the most recent executions of workflowName.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowName string, limit int) ([]*models.Execution, error) {
	query := `
		SELECT id, workflow_name, status, config_snapshot, inputs, outputs, error_message,
			started_at, completed_at, duration_seconds, total_tokens, total_cost, bottleneck_info
		FROM execution
		WHERE workflow_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	return r.scanExecutions(ctx, query, workflowName, limit)
}

// ListAll returns the most recent executions across all workflows.
func (r *ExecutionRepository) ListAll(ctx context.Context, limit int) ([]*models.Execution, error) {
	query := `
		SELECT id, workflow_name, status, config_snapshot, inputs, outputs, error_message,
			started_at, completed_at, duration_seconds, total_tokens, total_cost, bottleneck_info
		FROM execution
		ORDER BY started_at DESC
		LIMIT $1
	`
	return r.scanExecutions(ctx, query, limit)
}

func (r *ExecutionRepository) scanExecutions(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		e := &models.Execution{}
		if err := rows.Scan(
			&e.ID, &e.WorkflowName, &e.Status, &e.ConfigSnapshot, &e.Inputs, &e.Outputs, &e.ErrorMessage,
			&e.StartedAt, &e.CompletedAt, &e.DurationSeconds, &e.TotalTokens, &e.TotalCost, &e.BottleneckInfo,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return out, nil
}

// UpdateStatus sets status on an in-flight execution.
func (r *ExecutionRepository) UpdateStatus(ctx context.Context, id string, status models.ExecutionStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE execution SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update execution status: %w", err)
	}
	return nil
}

// UpdateCompletion finalizes an execution with its outcome.
func (r *ExecutionRepository) UpdateCompletion(
	ctx context.Context,
	id string,
	status models.ExecutionStatus,
	duration time.Duration,
	totalTokens int64,
	totalCost float64,
	outputs []byte,
	errMsg string,
) error {
	query := `
		UPDATE execution
		SET status = $2, completed_at = $3, duration_seconds = $4, total_tokens = $5,
			total_cost = $6, outputs = $7, error_message = $8
		WHERE id = $1
	`
	completedAt := time.Now()
	durationSeconds := duration.Seconds()
	_, err := r.db.Exec(ctx, query, id, status, completedAt, durationSeconds, totalTokens, totalCost, outputs, errMsg)
	if err != nil {
		return fmt.Errorf("update execution completion: %w", err)
	}
	return nil
}
