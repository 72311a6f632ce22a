package condition

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thatAverageGuy/configurable-agents-sub001/models"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokStateField // "state.<ident>"
	tokIdent
	tokOp
	tokNumber
	tokString
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	text string
}

var tokenPattern = regexp.MustCompile(strings.Join([]string{
	`state\.[A-Za-z_][A-Za-z0-9_]*`,
	`==|!=|>=|<=|>|<`,
	`\(|\)`,
	`"[^"]*"|'[^']*'`,
	`-?\d+(?:\.\d+)?`,
	`[A-Za-z_][A-Za-z0-9_]*`,
}, "|"))

// invalidCharPattern matches anything tokenPattern would skip over — the
// grammar has no indexing ("[") or other punctuation, so any such
// character occurring outside a recognized token is rejected outright.
var invalidCharPattern = regexp.MustCompile(`[^\sA-Za-z0-9_."'()=!<>-]`)

func tokenize(expr string) []token {
	if m := invalidCharPattern.FindString(expr); m != "" {
		return []token{{kind: tokIdent, text: "\x00invalid:" + m}}
	}

	var toks []token
	matches := tokenPattern.FindAllString(expr, -1)
	for _, m := range matches {
		switch {
		case strings.HasPrefix(m, "state."):
			toks = append(toks, token{kind: tokStateField, text: m})
		case m == "and":
			toks = append(toks, token{kind: tokAnd, text: m})
		case m == "or":
			toks = append(toks, token{kind: tokOr, text: m})
		case m == "not":
			toks = append(toks, token{kind: tokNot, text: m})
		case m == "true":
			toks = append(toks, token{kind: tokTrue, text: m})
		case m == "false":
			toks = append(toks, token{kind: tokFalse, text: m})
		case m == "(":
			toks = append(toks, token{kind: tokLParen, text: m})
		case m == ")":
			toks = append(toks, token{kind: tokRParen, text: m})
		case m == "==" || m == "!=" || m == ">=" || m == "<=" || m == ">" || m == "<":
			toks = append(toks, token{kind: tokOp, text: m})
		case strings.HasPrefix(m, `"`) || strings.HasPrefix(m, `'`):
			toks = append(toks, token{kind: tokString, text: m})
		case isNumber(m):
			toks = append(toks, token{kind: tokNumber, text: m})
		default:
			toks = append(toks, token{kind: tokIdent, text: m})
		}
	}
	return toks
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i++
	}
	if i >= len(s) {
		return false
	}
	seenDigit := false
	for ; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			seenDigit = true
			continue
		}
		if s[i] == '.' {
			continue
		}
		return false
	}
	return seenDigit
}

type parser struct {
	toks []token
	pos  int
	expr string
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	tok := p.toks[p.pos]
	return tok
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) errf(format string, args ...any) error {
	return &models.ControlFlowError{Expression: p.expr, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (string, error) {
	left, err := p.parseAnd()
	if err != nil {
		return "", err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return "", err
		}
		left = fmt.Sprintf("(%s || %s)", left, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (string, error) {
	left, err := p.parseUnary()
	if err != nil {
		return "", err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return "", err
		}
		left = fmt.Sprintf("(%s && %s)", left, right)
	}
	return left, nil
}

func (p *parser) parseUnary() (string, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(!%s)", inner), nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (string, error) {
	tok := p.peek()

	switch tok.kind {
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return "", err
		}
		if p.peek().kind != tokRParen {
			return "", p.errf("expected closing parenthesis")
		}
		p.next()
		return fmt.Sprintf("(%s)", inner), nil

	case tokStateField:
		p.next()
		field := strings.TrimPrefix(tok.text, "state.")
		if strings.Contains(field, "__") {
			return "", p.errf("identifier %q uses a reserved dunder pattern", tok.text)
		}
		if p.peek().kind == tokOp {
			op := p.next().text
			lit, err := p.parseLiteral()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(has(state.%s) && state.%s %s %s)", field, field, op, lit), nil
		}
		return fmt.Sprintf("(has(state.%s) && bool(state.%s))", field, field), nil

	case tokIdent:
		if strings.HasPrefix(tok.text, "\x00invalid:") {
			return "", p.errf("disallowed character %q", strings.TrimPrefix(tok.text, "\x00invalid:"))
		}
		if strings.Contains(tok.text, "__") {
			return "", p.errf("identifier %q uses a reserved dunder pattern", tok.text)
		}
		if forbiddenIdents[strings.ToLower(tok.text)] {
			return "", p.errf("identifier %q is not permitted in a condition", tok.text)
		}
		p.next()
		if tok.text == reservedSentinel {
			return "true", nil
		}
		return "", p.errf("unknown identifier %q (expected 'state.<field>', 'default', or a parenthesized expression)", tok.text)

	case tokTrue:
		p.next()
		return "true", nil
	case tokFalse:
		p.next()
		return "false", nil

	default:
		return "", p.errf("unexpected token %q", tok.text)
	}
}

func (p *parser) parseLiteral() (string, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.text, nil
	case tokString:
		// Normalize single-quoted strings to CEL's double-quoted form.
		if strings.HasPrefix(tok.text, "'") {
			return `"` + strings.Trim(tok.text, "'") + `"`, nil
		}
		return tok.text, nil
	case tokTrue:
		return "true", nil
	case tokFalse:
		return "false", nil
	default:
		return "", p.errf("expected a literal, got %q", tok.text)
	}
}
