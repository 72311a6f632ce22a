// Package template resolves "{name}" and "{a.b.c}" placeholders in a prompt
// string against a two-tier source: explicit inputs shadow workflow state.
//
// Grounded on the teacher's cmd/workflow-runner/resolver/resolver.go, which
// uses gjson for dotted-path extraction and regexp for placeholder
// scanning; generalized here from the teacher's "$nodes.x"/"${...}" scheme
// to the spec's bare "{name}"/"{a.b.c}" grammar, and extended with the
// typo-suggestion behavior of original_source's core/template.py.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tidwall/gjson"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

// placeholderPattern matches "{name}" or "{a.b.c}" per the grammar of §4.1:
// [A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\}`)

// maxSuggestionDistance is the edit-distance cutoff for "did you mean" suggestions.
const maxSuggestionDistance = 2

// Resolver substitutes placeholders in a template string.
type Resolver struct{}

// New creates a new Resolver.
func New() *Resolver { return &Resolver{} }

// Resolve replaces every placeholder in tmpl with the string form of its
// resolved value. inputs are consulted first, then dotted lookups into
// state. Any other brace content is left untouched (literal).
func (r *Resolver) Resolve(tmpl string, inputs map[string]any, state map[string]any) (string, error) {
	var resolveErr error
	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if resolveErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		value, err := r.resolveName(name, inputs, state)
		if err != nil {
			resolveErr = err
			return match
		}
		return stringify(value)
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

// ExtractVariables returns the deduplicated, order-preserved set of
// placeholder names referenced by tmpl, independent of resolution. Ported
// from original_source's extract_variables helper.
func ExtractVariables(tmpl string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (r *Resolver) resolveName(name string, inputs map[string]any, state map[string]any) (any, error) {
	top, rest, dotted := strings.Cut(name, ".")

	if v, ok := inputs[name]; ok {
		return v, nil
	}
	// Dotted lookup within an explicit input's nested structure.
	if dotted {
		if v, ok := inputs[top]; ok {
			return navigate(v, rest, name)
		}
	}

	if v, ok := state[name]; ok {
		return v, nil
	}
	if dotted {
		if v, ok := state[top]; ok {
			return navigate(v, rest, name)
		}
	}

	return nil, r.notFoundError(name, top, dotted, inputs, state)
}

// navigate descends a dotted path into a nested value using gjson, which
// also lets navigation into slices ("a.0.b") work for free.
func navigate(root any, path string, fullName string) (any, error) {
	raw, err := json.Marshal(root)
	if err != nil {
		return nil, &models.TemplateResolutionError{Variable: fullName}
	}
	switch raw[0] {
	case '{', '[':
		// navigable
	default:
		return nil, &models.TemplateResolutionError{Variable: fullName, Suggestion: "path descends into a non-navigable scalar"}
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, &models.TemplateResolutionError{Variable: fullName}
	}
	return result.Value(), nil
}

func (r *Resolver) notFoundError(fullName, topName string, dotted bool, inputs, state map[string]any) error {
	inputKeys := sortedKeys(inputs)
	stateKeys := sortedKeys(state)

	candidate := topName
	if !dotted {
		candidate = fullName
	}
	suggestion := suggest(candidate, append(append([]string{}, inputKeys...), stateKeys...))

	return &models.TemplateResolutionError{
		Variable:        fullName,
		AvailableInputs: inputKeys,
		AvailableState:  stateKeys,
		Suggestion:      suggestion,
	}
}

// suggest returns the closest candidate within maxSuggestionDistance edits,
// case-insensitively, or "" if none qualifies.
func suggest(name string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	lname := strings.ToLower(name)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(lname, strings.ToLower(c))
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	if bestDist <= maxSuggestionDistance {
		return best
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringify converts a resolved value to its canonical textual form.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
