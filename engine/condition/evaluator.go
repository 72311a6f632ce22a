// Package condition evaluates the restricted boolean DSL of §4.2 over a
// state instance. Host-language evaluation is never used: every expression
// is first parsed and validated against the grammar below (rejecting
// calls, indexing, dunders, and import/eval-like tokens), then translated
// into a Common Expression Language (CEL) source string and compiled
// through google/cel-go with an expression cache — the same compile+cache
// shape as the teacher's cmd/workflow-runner/condition/evaluator.go.
//
//	expr    := or_expr
//	or_expr := and_expr ('or' and_expr)*
//	and_expr:= unary ('and' unary)*
//	unary   := 'not'? atom
//	atom    := 'state.' IDENT (OP literal)? | '(' expr ')' | IDENT
//	OP      := '==' | '!=' | '>' | '<' | '>=' | '<='
//	literal := number | quoted_string | 'true' | 'false'
package condition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// reservedSentinel is the "default" route logic, which always evaluates true.
const reservedSentinel = "default"

// forbiddenIdents names import/eval-like identifiers rejected anywhere
// they'd otherwise be accepted as a bare-identifier atom.
var forbiddenIdents = map[string]bool{
	"import": true, "eval": true, "exec": true, "compile": true,
	"globals": true, "locals": true, "open": true, "__import__": true,
	"os": true, "sys": true, "subprocess": true,
}

// Evaluator compiles and caches condition expressions.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
	env   *cel.Env
}

// NewEvaluator creates a new condition evaluator with caching.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(cel.Variable("state", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &Evaluator{
		cache: make(map[string]cel.Program),
		env:   env,
	}, nil
}

// Eval evaluates expr against state and returns the boolean result. Missing
// state fields evaluate to false; the sentinel "default" always evaluates
// to true.
func (e *Evaluator) Eval(expr string, state map[string]any) (bool, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == reservedSentinel {
		return true, nil
	}

	prg, err := e.compiled(trimmed)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{"state": state})
	if err != nil {
		return false, &models.ControlFlowError{Expression: expr, Reason: err.Error()}
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, &models.ControlFlowError{Expression: expr, Reason: "expression did not evaluate to a boolean"}
	}
	return result, nil
}

func (e *Evaluator) compiled(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	celSrc, err := translate(expr)
	if err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(celSrc)
	if issues != nil && issues.Err() != nil {
		return nil, &models.ControlFlowError{Expression: expr, Reason: issues.Err().Error()}
	}
	prg, err = e.env.Program(ast)
	if err != nil {
		return nil, &models.ControlFlowError{Expression: expr, Reason: err.Error()}
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

// ClearCache clears the compiled expression cache.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}

// CacheSize returns the number of cached expressions.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// translate parses expr against the grammar above and emits an equivalent
// CEL source string, rewriting every "state.field" and bare "state.field OP
// literal" atom into a has()-guarded access so that a missing field
// evaluates to false rather than erroring, per §4.2.
func translate(expr string) (string, error) {
	p := &parser{toks: tokenize(expr), expr: expr}
	out, err := p.parseOr()
	if err != nil {
		return "", err
	}
	if p.peek().kind != tokEOF {
		return "", &models.ControlFlowError{Expression: expr, Reason: fmt.Sprintf("unexpected token %q", p.peek().text)}
	}
	return out, nil
}
