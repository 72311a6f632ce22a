// Package models holds the shared domain entities described by the data
// model: workflow configuration, execution records, deployment leases,
// memory entries and webhook events, plus the typed error kinds every
// higher layer wraps its failures in.
package models

import "fmt"

// TemplateResolutionError is raised when a placeholder in a template cannot
// be resolved against the explicit inputs or the state instance.
type TemplateResolutionError struct {
	Variable        string
	AvailableInputs []string
	AvailableState  []string
	Suggestion      string
}

func (e *TemplateResolutionError) Error() string {
	msg := fmt.Sprintf("Variable '%s' not found", e.Variable)
	if len(e.AvailableInputs) > 0 {
		msg += fmt.Sprintf(". Available inputs: %v", e.AvailableInputs)
	}
	if len(e.AvailableState) > 0 {
		msg += fmt.Sprintf(". Available state fields: %v", e.AvailableState)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// ControlFlowError is raised by the condition evaluator for a rejected or
// unevaluable expression.
type ControlFlowError struct {
	Expression string
	Reason     string
}

func (e *ControlFlowError) Error() string {
	return fmt.Sprintf("control flow error in %q: %s", e.Expression, e.Reason)
}

// OutputBuilderError is raised when an LLM/code result fails to validate
// against a node's declared output schema.
type OutputBuilderError struct {
	NodeID string
	Reason string
}

func (e *OutputBuilderError) Error() string {
	return fmt.Sprintf("output builder error for node %q: %s", e.NodeID, e.Reason)
}

// StateInitializationError is raised when inputs fail to satisfy the state
// schema at execution start.
type StateInitializationError struct {
	Field  string
	Reason string
}

func (e *StateInitializationError) Error() string {
	return fmt.Sprintf("state initialization error for field %q: %s", e.Field, e.Reason)
}

// NodeExecutionError wraps any LLM, code, or validation failure encountered
// while executing a node.
type NodeExecutionError struct {
	NodeID    string
	Reason    string
	Retryable bool
	Err       error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q execution failed: %s", e.NodeID, e.Reason)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }

// LLMProviderError is the base provider-adapter error kind.
type LLMProviderError struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *LLMProviderError) Error() string { return fmt.Sprintf("llm provider error: %s", e.Reason) }
func (e *LLMProviderError) Unwrap() error  { return e.Err }

// LLMConfigError indicates a misconfigured provider (missing key, bad model name).
type LLMConfigError struct {
	Reason string
}

func (e *LLMConfigError) Error() string { return fmt.Sprintf("llm config error: %s", e.Reason) }

// LLMAPIError carries a retryable flag for rate-limit/transient provider failures.
type LLMAPIError struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *LLMAPIError) Error() string { return fmt.Sprintf("llm api error: %s", e.Reason) }
func (e *LLMAPIError) Unwrap() error  { return e.Err }

// QualityGateError is raised only when a gate's policy is "fail".
type QualityGateError struct {
	Failed []string
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gates failed: %v", e.Failed)
}

// InvalidSignatureError is raised by the webhook ingress when HMAC
// verification fails or the signature header is missing but required.
type InvalidSignatureError struct {
	Reason string
}

func (e *InvalidSignatureError) Error() string { return fmt.Sprintf("invalid signature: %s", e.Reason) }

// ReplayAttackError is raised when a webhook_id has already been processed.
type ReplayAttackError struct {
	WebhookID string
}

func (e *ReplayAttackError) Error() string {
	return fmt.Sprintf("webhook %q already processed", e.WebhookID)
}

// WebhookError is the generic webhook ingress failure kind.
type WebhookError struct {
	Reason string
	Err    error
}

func (e *WebhookError) Error() string { return fmt.Sprintf("webhook error: %s", e.Reason) }
func (e *WebhookError) Unwrap() error  { return e.Err }

// GraphBuilderError is raised at compile time for a structurally invalid
// workflow config (missing START edge, dangling node reference, etc.).
type GraphBuilderError struct {
	Reason string
}

func (e *GraphBuilderError) Error() string { return fmt.Sprintf("graph builder error: %s", e.Reason) }

// ConfigLoadError is raised when the declarative config cannot be parsed.
type ConfigLoadError struct {
	Reason string
	Err    error
}

func (e *ConfigLoadError) Error() string { return fmt.Sprintf("config load error: %s", e.Reason) }
func (e *ConfigLoadError) Unwrap() error  { return e.Err }

// ConfigValidationError is raised when the parsed config violates an
// invariant of §3 (e.g. more than one START edge).
type ConfigValidationError struct {
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s", e.Reason)
}

// MemoryScopeError is raised when an AgentMemory is constructed with a scope
// that requires identifiers its caller didn't supply (§4.13): workflow
// scope needs a workflow id, node scope needs both a workflow and node id.
type MemoryScopeError struct {
	Scope  string
	Reason string
}

func (e *MemoryScopeError) Error() string {
	return fmt.Sprintf("memory scope %q error: %s", e.Scope, e.Reason)
}
