package orchestrator

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers wires Service onto an echo router, matching the HTTP —
// Orchestrator surface of §6. Domain errors (unknown deployment, missing
// connection) translate to 4xx; unexpected errors to 5xx (§7).
type Handlers struct {
	svc *Service
}

// NewHandlers creates orchestrator HTTP handlers.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts the orchestrator routes onto e.
func (h *Handlers) Register(e *echo.Echo) {
	e.POST("/connections/:id", h.connect)
	e.DELETE("/connections/:id", h.disconnect)
	e.GET("/connections", h.connections)
	e.POST("/execute/:id", h.executeOn)
	e.POST("/execute-parallel", h.executeParallel)
	e.GET("/health", h.health)
}

func (h *Handlers) connect(c echo.Context) error {
	conn, err := h.svc.Connect(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, errBody(err))
	}
	return c.JSON(http.StatusOK, conn)
}

func (h *Handlers) disconnect(c echo.Context) error {
	if !h.svc.Disconnect(c.Param("id")) {
		return c.JSON(http.StatusNotFound, errBody(errors.New("connection not found")))
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "disconnected", "deployment_id": c.Param("id")})
}

func (h *Handlers) connections(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Connections())
}

type executeRequest struct {
	ConfigPath string         `json:"config_path" validate:"required"`
	Inputs     map[string]any `json:"inputs,omitempty"`
}

func (h *Handlers) executeOn(c echo.Context) error {
	var req executeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	result, err := h.svc.ExecuteOn(c.Request().Context(), c.Param("id"), req.ConfigPath, req.Inputs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, result)
}

type executeParallelRequest struct {
	DeploymentIDs []string       `json:"deployment_ids" validate:"required,min=1"`
	ConfigPath    string         `json:"config_path" validate:"required"`
	Inputs        map[string]any `json:"inputs,omitempty"`
}

func (h *Handlers) executeParallel(c echo.Context) error {
	var req executeParallelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	outcomes := h.svc.ExecuteParallel(c.Request().Context(), req.DeploymentIDs, req.ConfigPath, req.Inputs)
	return c.JSON(http.StatusOK, outcomes)
}

func (h *Handlers) health(c echo.Context) error {
	unhealthy := h.svc.UnhealthyConnections(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"connections": len(h.svc.Connections()),
		"unhealthy":   unhealthy,
	})
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
