// Package scoper rewrites style rules so they only apply within one
// component's rendered markup, and stamps the matching scope attribute into
// template text.
//
// The rewrite is a single pass over the token stream produced by
// gorilla/css/scanner: everything up to a "{" is a selector prelude and is
// rewritten; declarations and at-rule preludes stream through verbatim.
// Scoping is cosmetic relative to a working build, so any internal failure
// degrades to returning the input unchanged instead of aborting the
// compile.
package scoper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/aurelia/sfc-vite/internal/logging"
)

var (
	globalRe   = regexp.MustCompile(`:global\(([^)]*)\)`)
	hostArgRe  = regexp.MustCompile(`^:host\(([^)]*)\)`)
	percentRe  = regexp.MustCompile(`^\d+(\.\d+)?%$`)
	startTagRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9-]*)`)
)

// Scoper rewrites selectors against a scope identifier.
type Scoper struct {
	logger logging.Logger
}

// New creates a Scoper.
func New(logger logging.Logger) *Scoper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scoper{logger: logger.WithComponent("scoper")}
}

// Scope rewrites every selector list in css to carry the scope attribute
// selector. On any rewriting failure the original CSS is returned
// unmodified with a logged warning.
func (s *Scoper) Scope(css, scopeID string) string {
	out, err := rewrite(css, scopeID)
	if err != nil {
		s.logger.Warn(context.Background(), err, "style scoping failed, emitting unscoped css",
			"scope_id", scopeID)
		return css
	}
	return out
}

// ScopeTemplate stamps the scope identifier as a valueless attribute onto
// every element start tag in template markup, so scoped attribute selectors
// match the rendered elements.
func ScopeTemplate(template, scopeID string) string {
	return startTagRe.ReplaceAllString(template, "<${1} "+scopeID)
}

func rewrite(css, scopeID string) (string, error) {
	sc := scanner.New(css)

	var out strings.Builder
	var seg strings.Builder

	for {
		tok := sc.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			out.WriteString(seg.String())
			return out.String(), nil
		case scanner.TokenError:
			return "", fmt.Errorf("css scan error at %d:%d: %s", tok.Line, tok.Column, tok.Value)
		case scanner.TokenChar:
			switch tok.Value {
			case "{":
				out.WriteString(rewritePrelude(seg.String(), scopeID))
				out.WriteString("{")
				seg.Reset()
			case "}", ";":
				out.WriteString(seg.String())
				out.WriteString(tok.Value)
				seg.Reset()
			default:
				seg.WriteString(tok.Value)
			}
		default:
			seg.WriteString(tok.Value)
		}
	}
}

// rewritePrelude rewrites one selector list, preserving the surrounding
// whitespace of the prelude text.
func rewritePrelude(prelude, scopeID string) string {
	// At-rule preludes (@media, @keyframes, @supports, ...) pass through.
	if strings.Contains(prelude, "@") {
		return prelude
	}

	afterLead := strings.TrimLeft(prelude, " \t\r\n")
	lead := prelude[:len(prelude)-len(afterLead)]
	core := strings.TrimRight(afterLead, " \t\r\n")
	trail := afterLead[len(core):]

	if core == "" {
		return prelude
	}

	parts := strings.Split(core, ",")
	for i, part := range parts {
		parts[i] = scopeSelector(strings.TrimSpace(part), scopeID)
	}

	return lead + strings.Join(parts, ", ") + trail
}

// scopeSelector rewrites a single selector per the scoping rules.
func scopeSelector(sel, scopeID string) string {
	attr := "[" + scopeID + "]"

	switch {
	case sel == "":
		return sel
	case globalRe.MatchString(sel):
		// :global(X) escapes scoping entirely; the wrapper is removed.
		return strings.TrimSpace(globalRe.ReplaceAllString(sel, "$1"))
	case strings.HasPrefix(sel, ":host"):
		if m := hostArgRe.FindStringSubmatch(sel); m != nil {
			// :host(X) becomes the attribute selector directly followed by
			// X, appended rather than nested.
			return attr + strings.TrimSpace(m[1]) + sel[len(m[0]):]
		}
		return attr + sel[len(":host"):]
	case isExempt(sel):
		return sel
	default:
		// Compound-selector constraint: no separating space.
		return sel + attr
	}
}

// isExempt reports selectors that target markup outside the component or
// are keyframe-internal tokens, none of which may be localized.
func isExempt(sel string) bool {
	switch sel {
	case "html", "body", "*", "from", "to":
		return true
	}
	if strings.HasPrefix(sel, "::") {
		return true
	}
	return percentRe.MatchString(sel)
}
