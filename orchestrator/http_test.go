package orchestrator

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

func newTestHTTPServer(t *testing.T, exec Executor) *echo.Echo {
	t.Helper()
	svc, _ := newTestService(t, exec)
	e := echo.New()
	e.Validator = validate.New()
	NewHandlers(svc).Register(e)
	return e
}

func doHTTPRequest(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
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

func TestConnectHandlerReturns404ForUnknownDeployment(t *testing.T) {
	e := newTestHTTPServer(t, &fakeExecutor{})
	rec := doHTTPRequest(e, http.MethodPost, "/connections/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectThenExecuteOnHandler(t *testing.T) {
	e := newTestHTTPServer(t, &fakeExecutor{})

	rec := doHTTPRequest(e, http.MethodPost, "/connections/d1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doHTTPRequest(e, http.MethodPost, "/execute/d1", map[string]any{
		"config_path": "irrelevant.yaml",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "exec-d1", result["ExecutionID"])
}

func TestExecuteOnHandlerRejectsMissingConfigPath(t *testing.T) {
	e := newTestHTTPServer(t, &fakeExecutor{})
	doHTTPRequest(e, http.MethodPost, "/connections/d1", nil)

	rec := doHTTPRequest(e, http.MethodPost, "/execute/d1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteParallelHandlerRejectsEmptyDeploymentIDs(t *testing.T) {
	e := newTestHTTPServer(t, &fakeExecutor{})
	rec := doHTTPRequest(e, http.MethodPost, "/execute-parallel", map[string]any{
		"config_path": "irrelevant.yaml",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandlerListsUnhealthyConnections(t *testing.T) {
	e := newTestHTTPServer(t, &fakeExecutor{})
	doHTTPRequest(e, http.MethodPost, "/connections/d1", nil)

	rec := doHTTPRequest(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["connections"])
}
