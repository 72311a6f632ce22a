// Package orchestrator implements the Orchestrator Client and Service
// (§4.9-§4.10): metadata-filtered deployment discovery, a connection table
// with health checks, and bounded-concurrency fan-out execution.
//
// Grounded on original_source/orchestrator/client.py
// (AgentRegistryOrchestratorClient: list_agents/query_by_capability/
// get_active_agents/_filter_by_metadata/_matches_filters) and
// original_source/orchestrator/service.py (connection table, execute_on,
// execute_parallel with a bounded worker pool).
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itchyny/gojq"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
	"github.com/thatAverageGuy/configurable-agents-sub001/registry"
)

// Client discovers deployments through a Registry Service, applying
// metadata filters with dot-notation keys and "*" wildcard string matching.
type Client struct {
	svc *registry.Service
	now func() time.Time
}

// NewClient creates an orchestrator Client over an in-process registry
// Service. (A production deployment would instead talk HTTP to a remote
// registry; this module's registry and orchestrator share a process, so
// the service is used directly — see DESIGN.md.)
func NewClient(svc *registry.Service) *Client {
	return &Client{svc: svc, now: time.Now}
}

// ListDeployments mirrors list_agents: optionally including dead leases,
// optionally filtered by metadata.
func (c *Client) ListDeployments(ctx context.Context, includeDead bool, filters map[string]any) ([]*models.Deployment, error) {
	all, err := c.svc.List(ctx, includeDead)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return all, nil
	}
	return filterByMetadata(all, filters)
}

// QueryByCapability mirrors query_by_capability: always excludes dead leases.
func (c *Client) QueryByCapability(ctx context.Context, filters map[string]any) ([]*models.Deployment, error) {
	return c.ListDeployments(ctx, false, filters)
}

// GetActive mirrors get_active_agents: heartbeat within cutoffSeconds,
// independent of the deployment's own TTL (§4.9).
func (c *Client) GetActive(ctx context.Context, cutoffSeconds int) ([]*models.Deployment, error) {
	all, err := c.svc.List(ctx, true)
	if err != nil {
		return nil, err
	}
	now := c.now()
	cutoff := time.Duration(cutoffSeconds) * time.Second
	active := make([]*models.Deployment, 0, len(all))
	for _, d := range all {
		if now.Sub(d.LastHeartbeat) <= cutoff {
			active = append(active, d)
		}
	}
	return active, nil
}

// filterByMetadata keeps only deployments whose metadata matches every
// filter, supporting dot-notation nested keys (via gojq) and "*" wildcard
// glob matching (anchored at both ends) on string values.
func filterByMetadata(deployments []*models.Deployment, filters map[string]any) ([]*models.Deployment, error) {
	out := make([]*models.Deployment, 0, len(deployments))
	for _, d := range deployments {
		matched, err := matchesFilters(d.Metadata, filters)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, d)
		}
	}
	return out, nil
}

func matchesFilters(metadata map[string]any, filters map[string]any) (bool, error) {
	if metadata == nil {
		return len(filters) == 0, nil
	}
	for key, want := range filters {
		got, err := navigate(metadata, key)
		if err != nil {
			return false, err
		}
		if !valueMatches(got, want) {
			return false, nil
		}
	}
	return true, nil
}

// navigate resolves a dot-notation key (e.g. "capabilities.llm") against
// metadata using a gojq query, returning nil if any segment is absent.
func navigate(metadata map[string]any, dotted string) (any, error) {
	path := "." + strings.Join(strings.Split(dotted, "."), ".")
	query, err := gojq.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata filter key %q: %w", dotted, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	iter := code.Run(metadata)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if _, isErr := v.(error); isErr {
		// a missing path produces a jq null-indexing error; treat as absent
		return nil, nil
	}
	return v, nil
}

// valueMatches compares a navigated metadata value against a filter value,
// supporting "*" wildcard glob matching (anchored at both ends) for strings.
func valueMatches(got, want any) bool {
	if wantStr, ok := want.(string); ok {
		if strings.Contains(wantStr, "*") {
			return wildcardMatch(fmt.Sprint(got), wantStr)
		}
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func wildcardMatch(value, pattern string) bool {
	parts := strings.Split(pattern, "*")
	idx := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		pos := strings.Index(value[idx:], part)
		if pos < 0 {
			return false
		}
		if i == 0 && pos != 0 {
			return false
		}
		idx += pos + len(part)
	}
	if last := parts[len(parts)-1]; last != "" && !strings.HasSuffix(pattern, "*") {
		return strings.HasSuffix(value, last)
	}
	return true
}
