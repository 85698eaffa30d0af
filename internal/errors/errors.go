// Package errors defines the structured error taxonomy for the compiler.
//
// Every aborting error carries the absolute path of the offending source
// document and a human-readable cause so the developer can locate the
// failing section. Style-scoping failures are deliberately not represented
// here: scoping degrades to unscoped output instead of erroring.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Type categorizes compiler errors.
type Type string

const (
	// TypeStructure indicates a required document section is missing.
	TypeStructure Type = "structure"
	// TypeFileNotFound indicates a virtual id's target is absent on disk.
	TypeFileNotFound Type = "file_not_found"
	// TypePreprocess indicates a style-language compilation failure.
	TypePreprocess Type = "preprocess"
	// TypeScriptCompile indicates the underlying script transpiler failed.
	TypeScriptCompile Type = "script_compile"
)

// CompileError is a structured error with source-document context.
type CompileError struct {
	Type     Type
	Code     string
	Message  string
	Cause    error
	FilePath string
	Line     int
	Column   int
	Context  map[string]interface{}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *CompileError) Is(target error) bool {
	var t *CompileError
	if errors.As(target, &t) {
		return e.Type == t.Type && (t.Code == "" || e.Code == t.Code)
	}

	return false
}

// WithLocation adds line/column information within the source document.
func (e *CompileError) WithLocation(line, column int) *CompileError {
	e.Line = line
	e.Column = column

	return e
}

// WithContext attaches additional context to the error.
func (e *CompileError) WithContext(key string, value interface{}) *CompileError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// NewStructureError reports a missing required section in a source document.
func NewStructureError(path, section string) *CompileError {
	return &CompileError{
		Type:     TypeStructure,
		Code:     "missing_" + section,
		Message:  fmt.Sprintf("document has no <%s> section", section),
		FilePath: path,
	}
}

// NewFileNotFoundError reports a virtual id whose target does not exist.
func NewFileNotFoundError(path string, cause error) *CompileError {
	return &CompileError{
		Type:     TypeFileNotFound,
		Code:     "file_not_found",
		Message:  "component file does not exist",
		Cause:    cause,
		FilePath: path,
	}
}

// NewPreprocessError reports a style-language compilation failure.
func NewPreprocessError(path, language string, cause error) *CompileError {
	e := &CompileError{
		Type:     TypePreprocess,
		Code:     "preprocess_failed",
		Message:  fmt.Sprintf("%s preprocessing failed", language),
		Cause:    cause,
		FilePath: path,
	}

	return e.WithContext("language", language)
}

// NewScriptCompileError reports a transpiler failure for the script section.
func NewScriptCompileError(path string, cause error) *CompileError {
	return &CompileError{
		Type:     TypeScriptCompile,
		Code:     "script_compile_failed",
		Message:  "script transpilation failed",
		Cause:    cause,
		FilePath: path,
	}
}

// IsType reports whether err is a CompileError of the given type.
func IsType(err error, t Type) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Type == t
	}

	return false
}
