package registry

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Handlers wires Service onto an echo router, matching the HTTP — Deployment
// Registry surface of §6.
type Handlers struct {
	svc *Service
}

// NewHandlers creates registry HTTP handlers.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts the registry routes onto e.
func (h *Handlers) Register(e *echo.Echo) {
	e.POST("/deployments/register", h.register)
	e.POST("/deployments/:id/heartbeat", h.heartbeat)
	e.GET("/deployments", h.list)
	e.GET("/deployments/:id", h.get)
	e.DELETE("/deployments/:id", h.delete)
	e.GET("/health", h.health)
}

type registerRequest struct {
	DeploymentID   string         `json:"deployment_id" validate:"required"`
	DeploymentName string         `json:"deployment_name"`
	Host           string         `json:"host" validate:"required"`
	Port           int            `json:"port" validate:"required,gt=0"`
	TTLSeconds     int            `json:"ttl_seconds" validate:"required,gt=0"`
	WorkflowName   string         `json:"workflow_name,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (h *Handlers) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err))
	}

	d := &models.Deployment{
		DeploymentID:   req.DeploymentID,
		DeploymentName: req.DeploymentName,
		Host:           req.Host,
		Port:           req.Port,
		WorkflowName:   req.WorkflowName,
		Metadata:       req.Metadata,
		TTLSeconds:     req.TTLSeconds,
	}

	stored, err := h.svc.Register(c.Request().Context(), d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, struct {
		models.Deployment
		IsAlive bool `json:"is_alive"`
	}{*stored, stored.IsAlive(time.Now())})
}

func (h *Handlers) heartbeat(c echo.Context) error {
	id := c.Param("id")
	ts, ok, err := h.svc.Heartbeat(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	if !ok {
		return c.JSON(http.StatusNotFound, errBody(errors.New("deployment not found")))
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "last_heartbeat": ts})
}

func (h *Handlers) list(c echo.Context) error {
	includeDead := c.QueryParam("include_dead") == "true"
	deployments, err := h.svc.List(c.Request().Context(), includeDead)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, deployments)
}

func (h *Handlers) get(c echo.Context) error {
	id := c.Param("id")
	d, ok, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	if !ok {
		return c.JSON(http.StatusNotFound, errBody(errors.New("deployment not found")))
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handlers) delete(c echo.Context) error {
	id := c.Param("id")
	ok, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	if !ok {
		return c.JSON(http.StatusNotFound, errBody(errors.New("deployment not found")))
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "deleted", "deployment_id": id})
}

func (h *Handlers) health(c echo.Context) error {
	registered, active, err := h.svc.HealthCounts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errBody(err))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":     "healthy",
		"registered": registered,
		"active":     active,
	})
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
