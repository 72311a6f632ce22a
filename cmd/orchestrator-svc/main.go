// Command orchestrator-svc runs the Orchestrator Service (§4.10): it
// discovers deployments through an in-process Deployment Registry and
// dispatches workflow executions onto them with bounded concurrency.
package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/bootstrap"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/server"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/validate"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/tracker"
	"github.com/thatAverageGuy/configurable-agents-sub001/orchestrator"
	"github.com/thatAverageGuy/configurable-agents-sub001/registry"
	"github.com/thatAverageGuy/configurable-agents-sub001/repository"
)

func main() {
	ctx := context.Background()

	comps, err := bootstrap.Setup(ctx, "orchestrator")
	if err != nil {
		panic(fmt.Sprintf("bootstrap failed: %v", err))
	}
	defer comps.Shutdown(ctx)

	// The orchestrator and registry share this process's Postgres lease
	// table rather than round-tripping over HTTP (single-process
	// deployment topology, per orchestrator.Service's doc comment).
	var store registry.Store = registry.NewMemoryStore()
	if comps.DB != nil {
		store = repository.NewDeploymentRepository(comps.DB)
	}
	registrySvc := registry.NewService(store)
	client := orchestrator.NewClient(registrySvc)

	var recorder runtime.Recorder
	if comps.DB != nil {
		recorder = repository.NewExecutionRepository(comps.DB)
	}
	rt := runtime.New(llm.NewStub(nil), codeexec.Noop{}, tracker.Noop{}, recorder)

	cfg := orchestrator.DefaultConfig()
	cfg.BreakerFailureThreshold = comps.Config.Orchestrator.BreakerFailureThreshold
	cfg.MaxParallelExecutions = comps.Config.Orchestrator.MaxParallelExecutions
	cfg.ExecutionTimeout = comps.Config.Orchestrator.ExecutionTimeout

	svc := orchestrator.NewService(client, &orchestrator.LocalRuntimeExecutor{RT: rt}, cfg)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	handlers := orchestrator.NewHandlers(svc)
	handlers.Register(e)

	srv := server.New(comps.Config.Service.Name, comps.Config.Service.Port, e, comps.Logger)
	if err := srv.Start(); err != nil {
		comps.Logger.Error("orchestrator server stopped", "error", err)
	}
}
