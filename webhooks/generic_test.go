package webhooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/validate"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/codeexec"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/llm"
	"github.com/thatAverageGuy/configurable-agents-sub001/engine/runtime"
)

const oneNodeWorkflowYAML = `
schema_version: "1"
name: echo
state:
  x:
    type: int
  summary:
    type: str
nodes:
  - id: a
    prompt: "echo {x}"
    output_schema:
      type: str
    outputs: ["summary"]
edges:
  - kind: linear
    from: START
    to: a
  - kind: linear
    from: a
    to: END
`

func newTestHandler(t *testing.T, cfg Config) *GenericHandler {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yaml"), []byte(oneNodeWorkflowYAML), 0o644))
	cfg.ConfigDir = dir

	rt := runtime.New(llm.NewStub(nil), codeexec.Noop{}, nil, nil)
	return &GenericHandler{
		Runtime:     rt,
		Idempotency: NewMemoryIdempotencyStore(),
		Limiter:     nil,
		Config:      cfg,
	}
}

func doGeneric(h *GenericHandler, body []byte, sigHeader string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Validator = validate.New()
	h.Register(e)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/generic", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sigHeader != "" {
		req.Header.Set("X-Signature", sigHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenericWebhookAcceptsValidRequest(t *testing.T) {
	h := newTestHandler(t, Config{})
	body, _ := json.Marshal(map[string]any{"workflow_name": "echo", "inputs": map[string]any{"x": 1}})

	rec := doGeneric(h, body, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	time.Sleep(10 * time.Millisecond) // let the background invocation run
}

func TestGenericWebhookRejectsMissingWorkflowName(t *testing.T) {
	h := newTestHandler(t, Config{})
	body, _ := json.Marshal(map[string]any{"inputs": map[string]any{}})

	rec := doGeneric(h, body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenericWebhookRequiresSignatureWhenConfigured(t *testing.T) {
	h := newTestHandler(t, Config{SigningSecret: "shh", RequireSignature: true})
	body, _ := json.Marshal(map[string]any{"workflow_name": "echo", "inputs": map[string]any{"x": 1}})

	rec := doGeneric(h, body, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGenericWebhookAcceptsValidSignature(t *testing.T) {
	h := newTestHandler(t, Config{SigningSecret: "shh", RequireSignature: true})
	body, _ := json.Marshal(map[string]any{"workflow_name": "echo", "inputs": map[string]any{"x": 1}})

	rec := doGeneric(h, body, "sha256="+computeHMAC("shh", body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenericWebhookRejectsBadSignature(t *testing.T) {
	h := newTestHandler(t, Config{SigningSecret: "shh", RequireSignature: true})
	body, _ := json.Marshal(map[string]any{"workflow_name": "echo", "inputs": map[string]any{"x": 1}})

	rec := doGeneric(h, body, "sha256=deadbeef")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGenericWebhookIdempotencyRejectsReplay(t *testing.T) {
	h := newTestHandler(t, Config{})
	body, _ := json.Marshal(map[string]any{
		"workflow_name": "echo",
		"inputs":        map[string]any{"x": 1},
		"webhook_id":    "w1",
	})

	first := doGeneric(h, body, "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := doGeneric(h, body, "")
	assert.Equal(t, http.StatusConflict, second.Code)
}
