// Package splitter parses single-file-component documents into their
// script, template and style sections.
//
// Documents are tokenized with golang.org/x/net/html rather than parsed
// into a full tree: the tokenizer never fails on malformed markup, which
// matches the availability-over-conformance stance of this pipeline. A
// missing script or template section is the only fatal condition.
package splitter

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/aurelia/sfc-vite/internal/errors"
	"github.com/aurelia/sfc-vite/internal/logging"
	"github.com/aurelia/sfc-vite/internal/types"
)

// DefaultStyleLanguage is assumed when a style section has no lang
// attribute.
const DefaultStyleLanguage = "css"

// Splitter splits composite documents into discrete sections.
type Splitter struct {
	logger logging.Logger
}

// New creates a Splitter. A nil logger disables duplicate-section warnings.
func New(logger logging.Logger) *Splitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Splitter{logger: logger.WithComponent("splitter")}
}

// Parse splits raw document text into sections. It fails with a structure
// error when no script or no template section is found; additional script
// or template sections beyond the first are ignored with a warning.
func (s *Splitter) Parse(path, raw string) (*types.ParsedSections, error) {
	z := html.NewTokenizer(strings.NewReader(raw))

	var out types.ParsedSections
	scripts, templates := 0, 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or an unrecoverable tokenizer state: either way the
			// best-effort pass is over.
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		switch string(name) {
		case "template":
			templates++
			var inner string
			if tt == html.StartTagToken {
				inner = rawInner(z)
			}
			if templates == 1 {
				out.Template = inner
			}
		case "script":
			attrs := tagAttrs(z, hasAttr)
			scripts++
			var text string
			if tt == html.StartTagToken {
				text = rawText(z)
			}
			if scripts == 1 {
				out.Script = text
			}
			_ = attrs // script lang defaults to the host's base language
		case "style":
			attrs := tagAttrs(z, hasAttr)
			var text string
			if tt == html.StartTagToken {
				text = rawText(z)
			}
			lang := attrs["lang"]
			if lang == "" {
				lang = DefaultStyleLanguage
			}
			_, scoped := attrs["scoped"]
			out.Styles = append(out.Styles, types.StyleBlock{
				RawCSS:   text,
				Language: lang,
				Scoped:   scoped,
			})
		}
	}

	if scripts == 0 {
		return nil, apperrors.NewStructureError(path, "script")
	}
	if templates == 0 {
		return nil, apperrors.NewStructureError(path, "template")
	}
	if scripts > 1 {
		s.logger.Warn(context.Background(), nil, "multiple script sections found, using the first",
			"path", path, "count", scripts)
	}
	if templates > 1 {
		s.logger.Warn(context.Background(), nil, "multiple template sections found, using the first",
			"path", path, "count", templates)
	}

	return &out, nil
}

// tagAttrs drains the current tag's attributes into a map.
func tagAttrs(z *html.Tokenizer, hasAttr bool) map[string]string {
	attrs := make(map[string]string)
	for hasAttr {
		key, val, more := z.TagAttr()
		attrs[string(key)] = string(val)
		hasAttr = more
	}
	return attrs
}

// rawText reads the content of a raw-text element (script or style) up to
// its end tag. The tokenizer delivers the whole content as text tokens
// without entity decoding.
func rawText(z *html.Tokenizer) string {
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.EndTagToken:
			return b.String()
		default:
			return b.String()
		}
	}
}

// rawInner accumulates the verbatim markup between a <template> start tag
// and its matching end tag, tracking nesting so inner <template> elements
// stay part of the captured text. An unclosed template runs to EOF.
func rawInner(z *html.Tokenizer) string {
	var b strings.Builder
	depth := 1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}

		// TagName lowercases the shared buffer in place, so the raw bytes
		// must be copied first.
		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "template" {
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "template" {
				depth--
				if depth == 0 {
					return b.String()
				}
			}
		}

		b.WriteString(raw)
	}
}
