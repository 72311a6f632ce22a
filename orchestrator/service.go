package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// ExecutionOutcome is one deployment's result from a ParallelExecute fan-out.
// Status is one of "completed", "timeout", or "error" (§4.10).
type ExecutionOutcome struct {
	DeploymentID string
	Status       string
	Result       runtime.Result
	Error        string
}

// Executor runs a workflow against a connected deployment. In this module
// the orchestrator and runtime share a process, so the default Executor
// simply invokes a local runtime.Runtime; a networked deployment would
// instead implement this as an RPC call (§5 suspension point).
type Executor interface {
	Execute(ctx context.Context, conn *models.Connection, configPath string, inputs map[string]any) (runtime.Result, error)
}

// LocalRuntimeExecutor executes workflows via an in-process runtime.Runtime,
// ignoring the connection's host/port (single-process deployment topology).
type LocalRuntimeExecutor struct {
	RT *runtime.Runtime
}

func (e *LocalRuntimeExecutor) Execute(ctx context.Context, _ *models.Connection, configPath string, inputs map[string]any) (runtime.Result, error) {
	return e.RT.Run(ctx, configPath, inputs)
}

// Config bounds the Orchestrator Service's execution concurrency and
// per-connection health circuit breaking (§4.10).
type Config struct {
	MaxParallelExecutions   int
	ExecutionTimeout        time.Duration
	BreakerFailureThreshold uint32
}

func DefaultConfig() Config {
	return Config{
		MaxParallelExecutions:   10,
		ExecutionTimeout:        30 * time.Second,
		BreakerFailureThreshold: 5,
	}
}

// Service is the Orchestrator Service (§4.10): it discovers deployments
// through Client, maintains an in-memory connection table, and executes
// workflows on one or many connected deployments with bounded concurrency.
//
// Grounded on original_source/orchestrator/service.py's OrchestratorService
// (agent_connections table, execute_on_agent, execute_parallel with a
// ThreadPoolExecutor bounded by max_parallel_executions).
type Service struct {
	client   *Client
	exec     Executor
	cfg      Config
	mu       sync.RWMutex
	conns    map[string]*models.Connection
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewService creates an Orchestrator Service.
func NewService(client *Client, exec Executor, cfg Config) *Service {
	return &Service{
		client:   client,
		exec:     exec,
		cfg:      cfg,
		conns:    make(map[string]*models.Connection),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Connect registers a connection to a deployment found via the registry.
// Mirrors register_agent: ValueError-equivalent when the deployment isn't
// in the registry.
func (s *Service) Connect(ctx context.Context, deploymentID string) (*models.Connection, error) {
	deployments, err := s.client.ListDeployments(ctx, true, nil)
	if err != nil {
		return nil, err
	}
	var found *models.Deployment
	for _, d := range deployments {
		if d.DeploymentID == deploymentID {
			found = d
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("deployment %s not found in registry", deploymentID)
	}

	conn := &models.Connection{
		DeploymentID: deploymentID,
		Name:         found.DeploymentName,
		Host:         found.Host,
		Port:         found.Port,
		Status:       models.ConnectionConnected,
		ConnectedAt:  time.Now(),
		Metadata:     found.Metadata,
	}

	s.mu.Lock()
	s.conns[deploymentID] = conn
	s.breakers[deploymentID] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: deploymentID,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.cfg.BreakerFailureThreshold
		},
	})
	s.mu.Unlock()

	slog.Info("orchestrator connected to deployment", "deployment_id", deploymentID)
	return conn, nil
}

// Disconnect tears down a connection. Returns false if it wasn't connected.
func (s *Service) Disconnect(deploymentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.conns[deploymentID]
	if !ok {
		return false
	}
	now := time.Now()
	conn.Status = models.ConnectionDisconnected
	conn.DisconnectedAt = &now
	delete(s.conns, deploymentID)
	delete(s.breakers, deploymentID)
	return true
}

// Connection returns the tracked connection, if any.
func (s *Service) Connection(deploymentID string) (*models.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.conns[deploymentID]
	return conn, ok
}

// Connections lists all tracked connections.
func (s *Service) Connections() []*models.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// CheckHealth verifies a connected deployment is still alive in the
// registry, tripping its circuit breaker state via a no-op guarded call.
func (s *Service) CheckHealth(ctx context.Context, deploymentID string) bool {
	s.mu.RLock()
	_, connected := s.conns[deploymentID]
	breaker := s.breakers[deploymentID]
	s.mu.RUnlock()
	if !connected {
		return false
	}

	_, err := breaker.Execute(func() (any, error) {
		deployments, err := s.client.ListDeployments(ctx, true, nil)
		if err != nil {
			return nil, err
		}
		for _, d := range deployments {
			if d.DeploymentID == deploymentID {
				if !d.IsAlive(time.Now()) {
					return nil, fmt.Errorf("deployment %s heartbeat expired", deploymentID)
				}
				return nil, nil
			}
		}
		return nil, fmt.Errorf("deployment %s no longer in registry", deploymentID)
	})
	if err != nil {
		slog.Warn("deployment health check failed", "deployment_id", deploymentID, "error", err)
		return false
	}
	return true
}

// UnhealthyConnections returns the ids of all connected deployments that
// currently fail a health check.
func (s *Service) UnhealthyConnections(ctx context.Context) []string {
	var unhealthy []string
	for _, conn := range s.Connections() {
		if !s.CheckHealth(ctx, conn.DeploymentID) {
			unhealthy = append(unhealthy, conn.DeploymentID)
		}
	}
	return unhealthy
}

// ExecuteOn runs a workflow on a single connected, healthy deployment.
func (s *Service) ExecuteOn(ctx context.Context, deploymentID, configPath string, inputs map[string]any) (runtime.Result, error) {
	conn, ok := s.Connection(deploymentID)
	if !ok {
		return runtime.Result{}, fmt.Errorf("no connection to deployment %s", deploymentID)
	}
	if !s.CheckHealth(ctx, deploymentID) {
		return runtime.Result{}, fmt.Errorf("deployment %s is unhealthy", deploymentID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExecutionTimeout)
	defer cancel()
	return s.exec.Execute(ctx, conn, configPath, inputs)
}

// ExecuteParallel runs the same workflow on every deploymentID concurrently,
// bounded by cfg.MaxParallelExecutions. Exactly len(deploymentIDs) outcomes
// are returned, in no guaranteed order, each one of completed/timeout/error.
func (s *Service) ExecuteParallel(ctx context.Context, deploymentIDs []string, configPath string, inputs map[string]any) []ExecutionOutcome {
	outcomes := make([]ExecutionOutcome, len(deploymentIDs))
	sem := make(chan struct{}, max(1, s.cfg.MaxParallelExecutions))
	var wg sync.WaitGroup

	for i, id := range deploymentIDs {
		wg.Add(1)
		go func(i int, deploymentID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.executeOnSingle(ctx, deploymentID, configPath, inputs)
		}(i, id)
	}
	wg.Wait()
	return outcomes
}

func (s *Service) executeOnSingle(ctx context.Context, deploymentID, configPath string, inputs map[string]any) ExecutionOutcome {
	execCtx, cancel := context.WithTimeout(ctx, s.cfg.ExecutionTimeout)
	defer cancel()

	result, err := s.ExecuteOn(execCtx, deploymentID, configPath, inputs)
	switch {
	case err == nil:
		return ExecutionOutcome{DeploymentID: deploymentID, Status: "completed", Result: result}
	case execCtx.Err() == context.DeadlineExceeded:
		slog.Warn("execution on deployment timed out", "deployment_id", deploymentID)
		return ExecutionOutcome{DeploymentID: deploymentID, Status: "timeout", Error: "execution timeout"}
	default:
		slog.Error("execution on deployment failed", "deployment_id", deploymentID, "error", err)
		return ExecutionOutcome{DeploymentID: deploymentID, Status: "error", Error: err.Error()}
	}
}
