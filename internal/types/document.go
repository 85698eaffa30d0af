// Package types holds the core data model shared across the compiler:
// source documents, parsed sections and the virtual-id scheme.
package types

import "time"

// File and virtual-id conventions. The stylesheet suffix is appended to the
// component path, never substituted for it.
const (
	// ComponentExt is the single-file-component extension.
	ComponentExt = ".au"
	// StyleExt marks the stylesheet artifact of a component file.
	StyleExt = ".au.css"
	// VirtualPrefix marks module ids synthesized by this plugin.
	VirtualPrefix = "virtual:"
)

// SourceDocument is a component file as read from disk. It is created per
// load request, never mutated, and discarded after compilation.
type SourceDocument struct {
	AbsolutePath string
	RawText      string
	ModTime      time.Time
	Size         int64
}

// StyleBlock is one <style> section of a source document.
type StyleBlock struct {
	RawCSS   string
	Language string // declared lang attribute, "css" when absent
	Scoped   bool
}

// ParsedSections is the result of splitting a source document. Exactly one
// script and one template section are required; style blocks keep document
// order.
type ParsedSections struct {
	Script   string
	Template string
	Styles   []StyleBlock
}

// VirtualID builds the virtual module id for a component path.
func VirtualID(path string) string {
	return VirtualPrefix + path
}

// VirtualStyleID builds the virtual stylesheet id for a component path.
func VirtualStyleID(path string) string {
	return VirtualPrefix + path + ".css"
}
