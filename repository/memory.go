package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/memory"
)

// MemoryRepository is a Postgres-backed memory.Repository (§6's "Memory"
// interface: set, get, delete, list(agent_id, prefix), clear, clear_by_workflow).
type MemoryRepository struct {
	db *db.DB
}

// NewMemoryRepository creates a new Postgres memory repository.
func NewMemoryRepository(database *db.DB) *MemoryRepository {
	return &MemoryRepository{db: database}
}

func (r *MemoryRepository) Set(ns string, valueJSON []byte, agentID, workflowID, nodeID, key string) error {
	query := `
		INSERT INTO memory_entry (namespace_key, agent_id, workflow_id, node_id, user_key, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (namespace_key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	_, err := r.db.Exec(context.Background(), query, ns, agentID, nullIfEmpty(workflowID), nullIfEmpty(nodeID), key, valueJSON)
	if err != nil {
		return fmt.Errorf("set memory entry: %w", err)
	}
	return nil
}

func (r *MemoryRepository) Get(ns string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRow(context.Background(), `SELECT value FROM memory_entry WHERE namespace_key = $1`, ns).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get memory entry: %w", err)
	}
	return value, true, nil
}

func (r *MemoryRepository) Delete(ns string) (bool, error) {
	tag, err := r.db.Exec(context.Background(), `DELETE FROM memory_entry WHERE namespace_key = $1`, ns)
	if err != nil {
		return false, fmt.Errorf("delete memory entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MemoryRepository) List(agentID, prefix string) ([]memory.Row, error) {
	query := `
		SELECT namespace_key, user_key, value
		FROM memory_entry
		WHERE agent_id = $1 AND user_key LIKE $2
		ORDER BY namespace_key
	`
	rows, err := r.db.Query(context.Background(), query, agentID, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list memory entries: %w", err)
	}
	defer rows.Close()

	var out []memory.Row
	for rows.Next() {
		var row memory.Row
		if err := rows.Scan(&row.NamespaceKey, &row.UserKey, &row.ValueJSON); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory entries: %w", err)
	}
	return out, nil
}

func (r *MemoryRepository) Clear(agentID string) (int, error) {
	tag, err := r.db.Exec(context.Background(), `DELETE FROM memory_entry WHERE agent_id = $1`, agentID)
	if err != nil {
		return 0, fmt.Errorf("clear memory entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *MemoryRepository) ClearByWorkflow(agentID, workflowID string) (int, error) {
	tag, err := r.db.Exec(context.Background(),
		`DELETE FROM memory_entry WHERE agent_id = $1 AND workflow_id = $2`, agentID, workflowID)
	if err != nil {
		return 0, fmt.Errorf("clear memory entries by workflow: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func likePrefix(prefix string) string {
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
	return escaped + "%"
}

var _ memory.Repository = (*MemoryRepository)(nil)
