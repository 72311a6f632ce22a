package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Config controls the generic webhook endpoint's signature and idempotency
// enforcement (§4.11's "optional/required by config" wording).
type Config struct {
	SigningSecret     string
	RequireSignature  bool
	ConfigDir         string // directory holding "<workflow_name>.yaml" configs
}

// GenericHandler implements the generic webhook endpoint: signature
// verification, idempotency gating, and asynchronous workflow invocation.
//
// Grounded on original_source/webhooks/router.py's
// _process_generic_webhook, adapted from FastAPI's BackgroundTasks to a
// plain goroutine (§5: the endpoint returns an acknowledgment, not the
// final result).
type GenericHandler struct {
	Runtime     *runtime.Runtime
	Idempotency IdempotencyStore
	Limiter     *Limiter
	Config      Config
}

type genericRequest struct {
	WorkflowName string         `json:"workflow_name" validate:"required"`
	Inputs       map[string]any `json:"inputs" validate:"required"`
	WebhookID    string         `json:"webhook_id,omitempty"`
}

// Register mounts the generic and health webhook routes onto e.
func (h *GenericHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/generic", h.handleGeneric)
	e.GET("/webhooks/health", h.health)
}

func (h *GenericHandler) handleGeneric(c echo.Context) error {
	ctx := c.Request().Context()

	if allowed, err := h.Limiter.Allow(ctx, "generic"); err == nil && !allowed {
		return c.JSON(http.StatusTooManyRequests, errBody(errors.New("rate limit exceeded")))
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	sig := c.Request().Header.Get("X-Signature")
	if h.Config.RequireSignature || h.Config.SigningSecret != "" {
		if sig == "" {
			return c.JSON(http.StatusForbidden, errBody(&models.InvalidSignatureError{Reason: "missing X-Signature header"}))
		}
		if !verifyHMAC(h.Config.SigningSecret, body, sig) {
			return c.JSON(http.StatusForbidden, errBody(&models.InvalidSignatureError{Reason: "signature mismatch"}))
		}
	}

	var req genericRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	if req.WebhookID != "" {
		seen, err := h.Idempotency.IsProcessed(ctx, req.WebhookID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errBody(err))
		}
		if seen {
			return c.JSON(http.StatusConflict, errBody(&models.ReplayAttackError{WebhookID: req.WebhookID}))
		}
		if err := h.Idempotency.MarkProcessed(ctx, req.WebhookID, "generic"); err != nil {
			return c.JSON(http.StatusConflict, errBody(&models.ReplayAttackError{WebhookID: req.WebhookID}))
		}
	}

	configPath := filepath.Join(h.Config.ConfigDir, req.WorkflowName+".yaml")
	h.invokeAsync(configPath, req.WorkflowName, req.Inputs)

	return c.JSON(http.StatusOK, map[string]any{
		"status":        "accepted",
		"workflow_name": req.WorkflowName,
	})
}

// invokeAsync runs the workflow in the background; the HTTP handler never
// waits on it (§4.11, §5 suspension points).
func (h *GenericHandler) invokeAsync(configPath, workflowName string, inputs map[string]any) {
	ch := h.Runtime.RunAsync(context.Background(), configPath, inputs)
	go func() {
		res := <-ch
		if res.Err != nil {
			slog.Error("webhook-triggered workflow failed", "workflow_name", workflowName, "error", res.Err)
			return
		}
		slog.Info("webhook-triggered workflow completed", "workflow_name", workflowName, "execution_id", res.Result.ExecutionID, "status", res.Result.Status)
	}()
}

func (h *GenericHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":             "healthy",
		"require_signature":  h.Config.RequireSignature,
		"signature_configured": h.Config.SigningSecret != "",
	})
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
