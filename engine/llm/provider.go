// Package llm defines the blocking "generate structured output" contract
// the core consumes from the LLM provider (§1) and a deterministic stub
// implementation used by tests and the end-to-end scenarios of §8.
package llm

import (
	"context"
	"strings"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// Request is one generation call: a resolved prompt, the node's output
// schema, and any tool names the node declared.
type Request struct {
	Prompt string
	Schema models.OutputSchema
	Tools  []string
}

// Result is a successful generation: the raw parsed content (matching the
// shape Request.Schema expects) plus token usage for the tracker.
type Result struct {
	Content    any
	TokensUsed int64
}

// Provider is the blocking LLM generation contract. Implementations return
// *models.LLMAPIError for transient/rate-limit failures (Retryable=true)
// and *models.LLMConfigError for misconfiguration.
type Provider interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Transform is a pure string transform a StubProvider applies to its
// prompt to produce deterministic, testable output.
type Transform func(string) string

// StubProvider echoes its prompt through a configurable Transform, for use
// in tests and the end-to-end scenarios of §8 (e.g. uppercasing).
type StubProvider struct {
	Transform Transform
}

// NewStub creates a StubProvider. A nil transform defaults to identity.
func NewStub(transform Transform) *StubProvider {
	if transform == nil {
		transform = func(s string) string { return s }
	}
	return &StubProvider{Transform: transform}
}

// Generate implements Provider by applying Transform to the prompt and
// wrapping the result per the schema's shape.
func (p *StubProvider) Generate(_ context.Context, req Request) (Result, error) {
	text := p.Transform(req.Prompt)

	if req.Schema.IsObject() {
		content := make(map[string]any, len(req.Schema.Fields))
		for _, f := range req.Schema.Fields {
			switch f.Type {
			case models.TypeString:
				content[f.Name] = text
			case models.TypeInt:
				content[f.Name] = float64(len(strings.Fields(text)))
			default:
				content[f.Name] = text
			}
		}
		return Result{Content: content, TokensUsed: int64(len(strings.Fields(text)))}, nil
	}

	return Result{Content: text, TokensUsed: int64(len(strings.Fields(text)))}, nil
}
