package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
	"github.com/thatAverageGuy/configurable-agents-sub001/registry"
)

type fakeExecutor struct {
	delay   time.Duration
	failIDs map[string]bool
}

func (f *fakeExecutor) Execute(ctx context.Context, conn *models.Connection, configPath string, inputs map[string]any) (runtime.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return runtime.Result{}, ctx.Err()
		}
	}
	if f.failIDs[conn.DeploymentID] {
		return runtime.Result{}, errors.New("simulated failure")
	}
	return runtime.Result{ExecutionID: "exec-" + conn.DeploymentID, Status: models.ExecutionCompleted}, nil
}

func newTestService(t *testing.T, exec Executor) (*Service, *registry.Service) {
	t.Helper()
	regSvc := registry.NewService(registry.NewMemoryStore())
	_, err := regSvc.Register(context.Background(), &models.Deployment{DeploymentID: "d1", Host: "h1", Port: 1, TTLSeconds: 60})
	require.NoError(t, err)
	_, err = regSvc.Register(context.Background(), &models.Deployment{DeploymentID: "d2", Host: "h2", Port: 2, TTLSeconds: 60})
	require.NoError(t, err)

	client := NewClient(regSvc)
	cfg := DefaultConfig()
	return NewService(client, exec, cfg), regSvc
}

func TestConnectFailsForUnknownDeployment(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{})
	_, err := svc.Connect(context.Background(), "missing")
	assert.Error(t, err)
}

func TestConnectAndDisconnect(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{})
	conn, err := svc.Connect(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionConnected, conn.Status)

	_, ok := svc.Connection("d1")
	assert.True(t, ok)

	assert.True(t, svc.Disconnect("d1"))
	assert.False(t, svc.Disconnect("d1"))
}

func TestExecuteOnRequiresConnection(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{})
	_, err := svc.ExecuteOn(context.Background(), "d1", "workflow.yaml", nil)
	assert.Error(t, err)
}

func TestExecuteOnSucceedsWhenConnectedAndHealthy(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{})
	_, err := svc.Connect(context.Background(), "d1")
	require.NoError(t, err)

	result, err := svc.ExecuteOn(context.Background(), "d1", "workflow.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, result.Status)
}

func TestExecuteParallelReturnsOneOutcomePerDeployment(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{failIDs: map[string]bool{"d2": true}})
	_, err := svc.Connect(context.Background(), "d1")
	require.NoError(t, err)
	_, err = svc.Connect(context.Background(), "d2")
	require.NoError(t, err)

	outcomes := svc.ExecuteParallel(context.Background(), []string{"d1", "d2"}, "workflow.yaml", nil)
	require.Len(t, outcomes, 2)

	byID := map[string]ExecutionOutcome{}
	for _, o := range outcomes {
		byID[o.DeploymentID] = o
	}
	assert.Equal(t, "completed", byID["d1"].Status)
	assert.Equal(t, "error", byID["d2"].Status)
}

func TestExecuteParallelReportsTimeout(t *testing.T) {
	svc, _ := newTestService(t, &fakeExecutor{delay: 50 * time.Millisecond})
	svc.cfg.ExecutionTimeout = 5 * time.Millisecond
	_, err := svc.Connect(context.Background(), "d1")
	require.NoError(t, err)

	outcomes := svc.ExecuteParallel(context.Background(), []string{"d1"}, "workflow.yaml", nil)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "timeout", outcomes[0].Status)
}
