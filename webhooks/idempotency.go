package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// IdempotencyStore guards webhook replay with unique-key insertion
// semantics (§3, §5): MarkProcessed must fail if webhook_id already exists.
type IdempotencyStore interface {
	IsProcessed(ctx context.Context, webhookID string) (bool, error)
	MarkProcessed(ctx context.Context, webhookID, provider string) error
}

// alreadyProcessedError is returned by MemoryIdempotencyStore.MarkProcessed
// when webhookID has already been recorded.
type alreadyProcessedError struct{ webhookID string }

func (e *alreadyProcessedError) Error() string { return "webhook " + e.webhookID + " already processed" }

// MemoryIdempotencyStore is an in-memory IdempotencyStore for tests and
// single-process deployments; a production deployment backs this with the
// webhook_events repository (§6) for durability across restarts.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	rows map[string]models.WebhookEvent
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{rows: make(map[string]models.WebhookEvent)}
}

func (s *MemoryIdempotencyStore) IsProcessed(_ context.Context, webhookID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[webhookID]
	return ok, nil
}

func (s *MemoryIdempotencyStore) MarkProcessed(_ context.Context, webhookID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[webhookID]; ok {
		return &alreadyProcessedError{webhookID: webhookID}
	}
	s.rows[webhookID] = models.WebhookEvent{
		WebhookID:   webhookID,
		Provider:    provider,
		ProcessedAt: time.Now(),
	}
	return nil
}
