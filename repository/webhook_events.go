package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/webhooks"
)

var _ webhooks.IdempotencyStore = (*WebhookEventRepository)(nil)

// WebhookEventRepository is a Postgres-backed webhooks.IdempotencyStore
// (§6's "Webhook events" interface: is_processed, mark_processed),
// using a unique-key insertion as its concurrency primitive per §5: a
// duplicate insert violates the primary key and is reported as replay.
type WebhookEventRepository struct {
	db *db.DB
}

// NewWebhookEventRepository creates a new webhook event repository.
func NewWebhookEventRepository(database *db.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: database}
}

// IsProcessed reports whether webhookID has already been recorded.
func (r *WebhookEventRepository) IsProcessed(ctx context.Context, webhookID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM webhook_event WHERE webhook_id = $1)`, webhookID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check webhook processed: %w", err)
	}
	return exists, nil
}

// MarkProcessed records webhookID as processed, returning an error if it
// was already recorded (the unique-key violation surfaces as a replay).
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, webhookID, provider string) error {
	query := `INSERT INTO webhook_event (webhook_id, provider, processed_at) VALUES ($1, $2, now())`
	_, err := r.db.Exec(ctx, query, webhookID, provider)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("webhook %q already processed", webhookID)
		}
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	return nil
}
