package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
	"github.com/thatAverageGuy/configurable-agents-sub001/registry"
)

var _ registry.Store = (*DeploymentRepository)(nil)

// DeploymentRepository is a Postgres-backed registry.Store (§6's
// "Deployments" interface: add/upsert, get, list_all, update_heartbeat,
// delete, delete_expired, query_by_metadata, get_active).
type DeploymentRepository struct {
	db *db.DB
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(database *db.DB) *DeploymentRepository {
	return &DeploymentRepository{db: database}
}

// Upsert inserts or replaces a deployment lease by id.
func (r *DeploymentRepository) Upsert(ctx context.Context, d *models.Deployment) error {
	metadata, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal deployment metadata: %w", err)
	}
	query := `
		INSERT INTO deployment (deployment_id, deployment_name, host, port, workflow_name,
			metadata, ttl_seconds, last_heartbeat, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (deployment_id) DO UPDATE SET
			deployment_name = EXCLUDED.deployment_name,
			host = EXCLUDED.host,
			port = EXCLUDED.port,
			workflow_name = EXCLUDED.workflow_name,
			metadata = EXCLUDED.metadata,
			ttl_seconds = EXCLUDED.ttl_seconds,
			last_heartbeat = EXCLUDED.last_heartbeat
	`
	_, err = r.db.Exec(ctx, query,
		d.DeploymentID, d.DeploymentName, d.Host, d.Port, d.WorkflowName,
		metadata, d.TTLSeconds, d.LastHeartbeat, d.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert deployment: %w", err)
	}
	return nil
}

// Get returns a deployment by id.
func (r *DeploymentRepository) Get(ctx context.Context, id string) (*models.Deployment, bool, error) {
	query := `
		SELECT deployment_id, deployment_name, host, port, workflow_name, metadata,
			ttl_seconds, last_heartbeat, registered_at
		FROM deployment
		WHERE deployment_id = $1
	`
	d, err := r.scanRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return d, true, nil
}

// ListAll returns every deployment, optionally including dead ones.
func (r *DeploymentRepository) ListAll(ctx context.Context, includeDead bool, now time.Time) ([]*models.Deployment, error) {
	deployments, err := r.scanAll(ctx, `
		SELECT deployment_id, deployment_name, host, port, workflow_name, metadata,
			ttl_seconds, last_heartbeat, registered_at
		FROM deployment
	`)
	if err != nil {
		return nil, err
	}
	if includeDead {
		return deployments, nil
	}
	var alive []*models.Deployment
	for _, d := range deployments {
		if d.IsAlive(now) {
			alive = append(alive, d)
		}
	}
	return alive, nil
}

// UpdateHeartbeat bumps last_heartbeat to now, reporting whether id existed.
func (r *DeploymentRepository) UpdateHeartbeat(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE deployment SET last_heartbeat = $2 WHERE deployment_id = $1`, id, now)
	if err != nil {
		return false, fmt.Errorf("update deployment heartbeat: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a deployment, reporting whether it existed.
func (r *DeploymentRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM deployment WHERE deployment_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete deployment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteExpired removes every deployment whose TTL has lapsed as of now,
// returning the count removed.
func (r *DeploymentRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM deployment
		WHERE last_heartbeat + (ttl_seconds * interval '1 second') < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired deployments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// QueryByMetadata returns deployments whose metadata satisfies filters
// (exact-match on the raw JSONB containment operator; dotted-path and
// wildcard matching beyond exact containment is performed by
// orchestrator.Client on the result set, not in SQL).
func (r *DeploymentRepository) QueryByMetadata(ctx context.Context, filters map[string]any) ([]*models.Deployment, error) {
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata filters: %w", err)
	}
	return r.scanAll(ctx, `
		SELECT deployment_id, deployment_name, host, port, workflow_name, metadata,
			ttl_seconds, last_heartbeat, registered_at
		FROM deployment
		WHERE metadata @> $1::jsonb
	`, string(filterJSON))
}

// GetActive returns deployments whose last_heartbeat is within cutoff of now.
func (r *DeploymentRepository) GetActive(ctx context.Context, cutoff time.Duration, now time.Time) ([]*models.Deployment, error) {
	deployments, err := r.scanAll(ctx, `
		SELECT deployment_id, deployment_name, host, port, workflow_name, metadata,
			ttl_seconds, last_heartbeat, registered_at
		FROM deployment
	`)
	if err != nil {
		return nil, err
	}
	threshold := now.Add(-cutoff)
	var active []*models.Deployment
	for _, d := range deployments {
		if d.LastHeartbeat.After(threshold) {
			active = append(active, d)
		}
	}
	return active, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DeploymentRepository) scanRow(row rowScanner) (*models.Deployment, error) {
	d := &models.Deployment{}
	var metadata []byte
	if err := row.Scan(&d.DeploymentID, &d.DeploymentName, &d.Host, &d.Port, &d.WorkflowName,
		&metadata, &d.TTLSeconds, &d.LastHeartbeat, &d.RegisteredAt); err != nil {
		return nil, fmt.Errorf("scan deployment: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal deployment metadata: %w", err)
		}
	}
	return d, nil
}

func (r *DeploymentRepository) scanAll(ctx context.Context, query string, args ...any) ([]*models.Deployment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var out []*models.Deployment
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return out, nil
}
