// Package registry implements the Deployment Registry Service (§4.8): a
// central, TTL-keyed lease table long-lived workers register with, refresh
// via heartbeat, and are discovered through by the Orchestrator.
//
// Grounded on original_source/registry/server.py's DeploymentRegistryServer
// (idempotent upsert-by-id register, heartbeat, list/get/delete, health
// counts), adapted from its FastAPI route table to labstack/echo/v4 in the
// teacher's cmd/orchestrator handler idiom.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Store persists deployment leases (§6: Deployments repository interface).
type Store interface {
	Upsert(ctx context.Context, d *models.Deployment) error
	Get(ctx context.Context, id string) (*models.Deployment, bool, error)
	ListAll(ctx context.Context, includeDead bool, now time.Time) ([]*models.Deployment, error)
	UpdateHeartbeat(ctx context.Context, id string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	QueryByMetadata(ctx context.Context, filters map[string]any) ([]*models.Deployment, error)
	GetActive(ctx context.Context, cutoff time.Duration, now time.Time) ([]*models.Deployment, error)
}

// MemoryStore is an in-process Store, the registry's default backing store
// for tests and single-instance deployments.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*models.Deployment
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*models.Deployment)}
}

func (s *MemoryStore) Upsert(_ context.Context, d *models.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.rows[d.DeploymentID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Deployment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.rows[id]
	if !ok {
		return nil, false, nil
	}
	cp := *d
	return &cp, true, nil
}

func (s *MemoryStore) ListAll(_ context.Context, includeDead bool, now time.Time) ([]*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Deployment, 0, len(s.rows))
	for _, d := range s.rows {
		if !includeDead && !d.IsAlive(now) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) UpdateHeartbeat(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	d.LastHeartbeat = now
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, d := range s.rows {
		if !d.IsAlive(now) {
			delete(s.rows, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) QueryByMetadata(_ context.Context, filters map[string]any) ([]*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Deployment{}
	for _, d := range s.rows {
		if matchesMetadata(d.Metadata, filters) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func matchesMetadata(metadata map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (s *MemoryStore) GetActive(_ context.Context, cutoff time.Duration, now time.Time) ([]*models.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Deployment{}
	for _, d := range s.rows {
		if now.Sub(d.LastHeartbeat) <= cutoff {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Service is the Deployment Registry's domain logic, independent of the
// HTTP transport.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a registry Service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Register is an idempotent upsert-by-id: the caller's fields win, and the
// heartbeat is reset to now (§4.8 invariant iv).
func (s *Service) Register(ctx context.Context, d *models.Deployment) (*models.Deployment, error) {
	now := s.now()
	existing, found, err := s.store.Get(ctx, d.DeploymentID)
	if err != nil {
		return nil, err
	}
	registeredAt := now
	if found {
		registeredAt = existing.RegisteredAt
	}
	d.RegisteredAt = registeredAt
	d.LastHeartbeat = now
	if err := s.store.Upsert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Heartbeat refreshes last_heartbeat to now; returns false if id is unknown.
func (s *Service) Heartbeat(ctx context.Context, id string) (time.Time, bool, error) {
	now := s.now()
	ok, err := s.store.UpdateHeartbeat(ctx, id, now)
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return now, true, nil
}

// List returns deployments, optionally filtering out expired ones.
func (s *Service) List(ctx context.Context, includeDead bool) ([]*models.Deployment, error) {
	return s.store.ListAll(ctx, includeDead, s.now())
}

// Get returns a single deployment by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Deployment, bool, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a deployment; returns false if unknown.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

// SweepExpired deletes every deployment whose lease has expired (used by
// the background sweeper, §4.8).
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// QueryByMetadata filters deployments by exact-match metadata, used by the
// Orchestrator Client's discovery (§4.9).
func (s *Service) QueryByMetadata(ctx context.Context, filters map[string]any) ([]*models.Deployment, error) {
	return s.store.QueryByMetadata(ctx, filters)
}

// HealthCounts reports registered/active counts for the /health endpoint.
func (s *Service) HealthCounts(ctx context.Context) (registered, active int, err error) {
	all, err := s.store.ListAll(ctx, true, s.now())
	if err != nil {
		return 0, 0, err
	}
	now := s.now()
	for _, d := range all {
		registered++
		if d.IsAlive(now) {
			active++
		}
	}
	return registered, active, nil
}
