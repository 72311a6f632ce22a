// Command webhook runs the Webhook Ingress (§4.11): signature-verified,
// idempotent, rate-limited entry points that kick off workflow executions
// asynchronously for the generic endpoint and Slack's Events API.
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
	"github.com/thatAverageGuy/configurable-agents-sub001/repository"
	"github.com/thatAverageGuy/configurable-agents-sub001/webhooks"
)

func main() {
	ctx := context.Background()

	comps, err := bootstrap.Setup(ctx, "webhook")
	if err != nil {
		panic(fmt.Sprintf("bootstrap failed: %v", err))
	}
	defer comps.Shutdown(ctx)

	var recorder runtime.Recorder
	var idempotency webhooks.IdempotencyStore = webhooks.NewMemoryIdempotencyStore()
	if comps.DB != nil {
		recorder = repository.NewExecutionRepository(comps.DB)
		idempotency = repository.NewWebhookEventRepository(comps.DB)
	}
	rt := runtime.New(llm.NewStub(nil), codeexec.Noop{}, tracker.Noop{}, recorder)

	limiter := webhooks.NewLimiter(comps.RateLimiter, comps.Config.Webhook.RateLimitPerMin)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()

	generic := &webhooks.GenericHandler{
		Runtime:     rt,
		Idempotency: idempotency,
		Limiter:     limiter,
		Config: webhooks.Config{
			SigningSecret:    comps.Config.Webhook.SigningSecret,
			RequireSignature: comps.Config.Webhook.RequireSignature,
			ConfigDir:        comps.Config.Webhook.ConfigDir,
		},
	}
	generic.Register(e)

	if comps.Config.Webhook.SlackSigningSecret != "" {
		slackHandler := webhooks.NewSlackHandler(webhooks.SlackConfig{
			SigningSecret: comps.Config.Webhook.SlackSigningSecret,
			BotToken:      comps.Config.Webhook.SlackBotToken,
			ConfigDir:     comps.Config.Webhook.ConfigDir,
		}, rt)
		slackHandler.Register(e)
	}

	srv := server.New(comps.Config.Service.Name, comps.Config.Service.Port, e, comps.Logger)
	if err := srv.Start(); err != nil {
		comps.Logger.Error("webhook server stopped", "error", err)
	}
}
