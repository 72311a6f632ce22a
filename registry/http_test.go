package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/validate"
)

func newTestServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc := NewService(NewMemoryStore())
	e := echo.New()
	e.Validator = validate.New()
	NewHandlers(svc).Register(e)
	return e, svc
}

func doRequest(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterHandlerRejectsMissingDeploymentID(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doRequest(e, http.MethodPost, "/deployments/register", map[string]any{
		"host": "localhost", "port": 9000, "ttl_seconds": 30,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandlerAcceptsValidRequest(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doRequest(e, http.MethodPost, "/deployments/register", map[string]any{
		"deployment_id": "d1", "host": "localhost", "port": 9000, "ttl_seconds": 30,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetHandlerReturnsNotFoundForUnknownID(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doRequest(e, http.MethodGet, "/deployments/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandlerReportsCounts(t *testing.T) {
	e, _ := newTestServer(t)
	doRequest(e, http.MethodPost, "/deployments/register", map[string]any{
		"deployment_id": "d1", "host": "localhost", "port": 9000, "ttl_seconds": 30,
	})

	rec := doRequest(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["registered"])
}
