package memory

import (
	"context"
	"time"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/cache"
)

// CachedRepository wraps a Repository with a read-through cache.Cache in
// front of Get (§B domain stack: a read-through Cache in front of the
// Memory Store). Writes and deletes invalidate the cached entry rather
// than updating it, keeping the cache a pure accelerator over the
// repository's own consistency guarantees.
type CachedRepository struct {
	Repository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedRepository wraps repo with c, caching reads for ttl.
func NewCachedRepository(repo Repository, c cache.Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: c, ttl: ttl}
}

func (r *CachedRepository) Get(ns string) ([]byte, bool, error) {
	ctx := context.Background()
	if v, ok, err := r.cache.Get(ctx, ns); err == nil && ok {
		return v, true, nil
	}

	v, ok, err := r.Repository.Get(ns)
	if err != nil || !ok {
		return v, ok, err
	}
	_ = r.cache.Set(ctx, ns, v, r.ttl)
	return v, true, nil
}

func (r *CachedRepository) Set(ns string, valueJSON []byte, agentID, workflowID, nodeID, key string) error {
	if err := r.Repository.Set(ns, valueJSON, agentID, workflowID, nodeID, key); err != nil {
		return err
	}
	_ = r.cache.Delete(context.Background(), ns)
	return nil
}

func (r *CachedRepository) Delete(ns string) (bool, error) {
	deleted, err := r.Repository.Delete(ns)
	_ = r.cache.Delete(context.Background(), ns)
	return deleted, err
}
