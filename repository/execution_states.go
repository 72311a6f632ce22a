package repository

import (
	"context"
	"fmt"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// ExecutionStateRepository persists the append-only state-snapshot history
// of §6 ("Execution states: save, get_latest, get_history").
type ExecutionStateRepository struct {
	db *db.DB
}

// NewExecutionStateRepository creates a new execution state repository.
func NewExecutionStateRepository(database *db.DB) *ExecutionStateRepository {
	return &ExecutionStateRepository{db: database}
}

// Save appends a state snapshot, captured after nodeID completes.
func (r *ExecutionStateRepository) Save(ctx context.Context, executionID, nodeID string, stateData []byte) error {
	query := `
		INSERT INTO execution_state (execution_id, node_id, state_data, created_at)
		VALUES ($1, $2, $3, now())
	`
	_, err := r.db.Exec(ctx, query, executionID, nodeID, stateData)
	if err != nil {
		return fmt.Errorf("save execution state: %w", err)
	}
	return nil
}

// RecordSnapshot implements runtime.Recorder.
func (r *ExecutionStateRepository) RecordSnapshot(ctx context.Context, snap *models.ExecutionStateSnapshot) error {
	query := `
		INSERT INTO execution_state (execution_id, node_id, state_data, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, snap.ExecutionID, snap.NodeID, snap.StateData, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("record execution snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for executionID.
func (r *ExecutionStateRepository) GetLatest(ctx context.Context, executionID string) (*models.ExecutionStateSnapshot, error) {
	query := `
		SELECT execution_id, node_id, state_data, created_at
		FROM execution_state
		WHERE execution_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	s := &models.ExecutionStateSnapshot{}
	err := r.db.QueryRow(ctx, query, executionID).Scan(&s.ExecutionID, &s.NodeID, &s.StateData, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get latest execution state: %w", err)
	}
	return s, nil
}

// GetHistory returns every snapshot of executionID, oldest first.
func (r *ExecutionStateRepository) GetHistory(ctx context.Context, executionID string) ([]*models.ExecutionStateSnapshot, error) {
	query := `
		SELECT execution_id, node_id, state_data, created_at
		FROM execution_state
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("get execution state history: %w", err)
	}
	defer rows.Close()

	var out []*models.ExecutionStateSnapshot
	for rows.Next() {
		s := &models.ExecutionStateSnapshot{}
		if err := rows.Scan(&s.ExecutionID, &s.NodeID, &s.StateData, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution state: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution state history: %w", err)
	}
	return out, nil
}
