// Command registry runs the Deployment Registry Service (§4.8): the
// HTTP lease table long-lived workers register with and the Orchestrator
// discovers deployments through.
package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/bootstrap"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/server"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/validate"
	"github.com/thatAverageGuy/configurable-agents-sub001/registry"
	"github.com/thatAverageGuy/configurable-agents-sub001/repository"
)

func main() {
	ctx := context.Background()

	comps, err := bootstrap.Setup(ctx, "registry", bootstrap.WithoutRedis())
	if err != nil {
		panic(fmt.Sprintf("bootstrap failed: %v", err))
	}
	defer comps.Shutdown(ctx)

	var store registry.Store = registry.NewMemoryStore()
	if comps.DB != nil {
		store = repository.NewDeploymentRepository(comps.DB)
	}
	svc := registry.NewService(store)

	sweepSpec := fmt.Sprintf("@every %s", comps.Config.Registry.SweepInterval)
	sweeper, err := registry.NewSweeper(svc, sweepSpec)
	if err != nil {
		comps.Logger.Error("failed to build registry sweeper", "error", err)
		return
	}
	sweeper.Start()
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	handlers := registry.NewHandlers(svc)
	handlers.Register(e)

	srv := server.New(comps.Config.Service.Name, comps.Config.Service.Port, e, comps.Logger)
	if err := srv.Start(); err != nil {
		comps.Logger.Error("registry server stopped", "error", err)
	}
}
