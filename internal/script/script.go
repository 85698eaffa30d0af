// Package script analyzes the script section of a component: it separates
// import statements from the body, derives the component's public name and
// splices the component-declaration decorator into the body.
//
// Analysis is textual pattern matching over the narrow, well-known shapes
// these scripts take (import statements, a default-exported decorated
// class); it does not attempt to parse the scripting language.
package script

import (
	"regexp"
	"strings"
	"unicode"
)

// fallbackClassName names components whose script declares no class at all.
const fallbackClassName = "AnonymousComponent"

var (
	importStartRe = regexp.MustCompile(`^import\b`)
	sideEffectRe  = regexp.MustCompile(`^import\s+(?:'[^']*'|"[^"]*");?$`)
	// declarationRe isolates the customElement(...) argument object; the
	// explicit name is only looked up inside it, never in the class body,
	// where "name:" is an ordinary typed field.
	declarationRe = regexp.MustCompile(`customElement\s*\(\s*\{([^}]*)\}`)
	nameRe        = regexp.MustCompile("name\\s*:\\s*(?:'([^']*)'|\"([^\"]*)\"|`([^`]*)`|([A-Za-z][\\w-]*))")
	classRe       = regexp.MustCompile(`class\s+([A-Za-z_$][\w$]*)`)
	exportClassRe = regexp.MustCompile(`(?m)^([ \t]*)export\s+default\s+class\b`)
)

// ImportSplit is the result of separating imports from the script body.
type ImportSplit struct {
	// Imports holds complete import statements in first-occurrence order
	// with duplicates collapsed.
	Imports []string
	// Body is the script with import statements removed, line order
	// preserved.
	Body string
}

// SplitImports separates import statements from the rest of the script.
// A statement that does not terminate on its starting line is accumulated
// across lines until a terminator or a "from" clause is seen.
func SplitImports(source string) ImportSplit {
	lines := strings.Split(source, "\n")

	var imports []string
	seen := make(map[string]struct{})
	var body []string

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !importStartRe.MatchString(trimmed) {
			body = append(body, lines[i])
			continue
		}

		stmt := trimmed
		for !importTerminated(stmt) && i+1 < len(lines) {
			i++
			stmt += " " + strings.TrimSpace(lines[i])
		}

		if _, dup := seen[stmt]; !dup {
			seen[stmt] = struct{}{}
			imports = append(imports, stmt)
		}
	}

	return ImportSplit{Imports: imports, Body: strings.Join(body, "\n")}
}

func importTerminated(stmt string) bool {
	if strings.Contains(stmt, " from ") {
		return true
	}
	if strings.HasSuffix(stmt, ";") {
		return true
	}
	return sideEffectRe.MatchString(stmt)
}

// DeriveName determines the component's public name. An explicit name value
// inside a customElement(...) declaration wins; otherwise the declared class
// identifier is converted to kebab-case; a script with no class falls back
// to a fixed identifier converted the same way.
func DeriveName(body string) string {
	if call := declarationRe.FindStringSubmatch(body); call != nil {
		if m := nameRe.FindStringSubmatch(call[1]); m != nil {
			for _, group := range m[1:] {
				if group != "" {
					return group
				}
			}
		}
	}

	if m := classRe.FindStringSubmatch(body); m != nil {
		return KebabCase(m[1])
	}

	return KebabCase(fallbackClassName)
}

// Decorate inserts the component-declaration decorator immediately before
// the default-exported class, referencing the synthesized template constant
// by name. A body without a default-exported class, or one that already
// declares customElement itself, is returned unchanged.
func Decorate(body, name string) string {
	if declarationRe.MatchString(body) {
		return body
	}

	loc := exportClassRe.FindStringSubmatchIndex(body)
	if loc == nil {
		return body
	}

	indent := body[loc[2]:loc[3]]
	decorator := indent + "@customElement({ name: '" + name + "', template })\n"

	return body[:loc[0]] + decorator + body[loc[0]:]
}

// KebabCase converts an identifier to lowercase hyphen-separated form.
// Hyphens are inserted at letter/digit-to-uppercase boundaries and at
// uppercase-run-to-titlecase boundaries, so "MyAwesomeComponent" becomes
// "my-awesome-component" and "HTTPServer" becomes "http-server".
func KebabCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}

		prevLowerOrDigit := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
		upperRunEnds := i > 0 && unicode.IsUpper(runes[i-1]) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if prevLowerOrDigit || upperRunEnds {
			b.WriteRune('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
