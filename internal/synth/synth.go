// Package synth assembles the final module source text from the collected
// imports, the optional stylesheet import, the template string and the
// decorated class body.
package synth

import "strings"

// FrameworkImport is the component-declaration import every synthesized
// module must carry.
const FrameworkImport = "import { customElement } from 'aurelia';"

// Synthesize builds the output module. The framework import is added with
// union semantics when the script did not already import it; the style
// side-effect import is emitted only when styleImportPath is non-empty.
// Output ordering is fixed: imports, style import, blank line, template
// constant, blank line, decorated class body.
func Synthesize(imports []string, styleImportPath, template, decoratedBody string) string {
	var b strings.Builder

	if !hasFrameworkImport(imports) {
		b.WriteString(FrameworkImport)
		b.WriteByte('\n')
	}
	for _, imp := range imports {
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	if styleImportPath != "" {
		b.WriteString("import '")
		b.WriteString(styleImportPath)
		b.WriteString("';\n")
	}

	b.WriteByte('\n')
	b.WriteString("const template = `")
	b.WriteString(EscapeTemplate(template))
	b.WriteString("`;\n")
	b.WriteByte('\n')

	b.WriteString(decoratedBody)
	if !strings.HasSuffix(decoratedBody, "\n") {
		b.WriteByte('\n')
	}

	return b.String()
}

// hasFrameworkImport reports whether an existing import already binds
// customElement from the framework package.
func hasFrameworkImport(imports []string) bool {
	for _, imp := range imports {
		if strings.Contains(imp, "customElement") && strings.Contains(imp, "'aurelia'") {
			return true
		}
		if strings.Contains(imp, "customElement") && strings.Contains(imp, `"aurelia"`) {
			return true
		}
	}
	return false
}

// EscapeTemplate makes template text safe to embed in a backtick string
// literal: backslashes and backticks are escaped, and "${" is escaped so
// binding expressions in the template are not interpreted as host-language
// string interpolation. Backslashes must be handled first.
func EscapeTemplate(template string) string {
	template = strings.ReplaceAll(template, `\`, `\\`)
	template = strings.ReplaceAll(template, "`", "\\`")
	template = strings.ReplaceAll(template, "${", "\\${")
	return template
}
