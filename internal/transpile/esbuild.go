// Package transpile wraps the external script transpiler. Synthesized
// module text goes in, browser-ready JavaScript plus an optional source map
// comes out.
package transpile

import (
	"encoding/base64"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	apperrors "github.com/aurelia/sfc-vite/internal/errors"
)

// Result is the transpiler output for one module.
type Result struct {
	Code      string
	SourceMap string // external source-map JSON, empty when disabled
}

// Transpiler turns synthesized module text into executable JavaScript.
type Transpiler interface {
	Transpile(path, source string) (Result, error)
}

// Options carries the typescript compiler overrides surfaced in plugin
// configuration.
type Options struct {
	Target                 string // "esnext" when empty
	ExperimentalDecorators bool
	Minify                 bool
	Sourcemap              bool
}

// ESBuild is the default Transpiler, backed by esbuild's transform API.
type ESBuild struct {
	opts Options
}

// NewESBuild creates the default transpiler.
func NewESBuild(opts Options) *ESBuild {
	return &ESBuild{opts: opts}
}

// Transpile compiles TypeScript module text to an ES module. Decorator
// syntax in the class body requires the experimental-decorators dialect.
func (t *ESBuild) Transpile(path, source string) (Result, error) {
	sourcemap := api.SourceMapNone
	if t.opts.Sourcemap {
		sourcemap = api.SourceMapExternal
	}

	tsconfig := `{"compilerOptions":{}}`
	if t.opts.ExperimentalDecorators {
		tsconfig = `{"compilerOptions":{"experimentalDecorators":true}}`
	}

	result := api.Transform(source, api.TransformOptions{
		Loader:            api.LoaderTS,
		Format:            api.FormatESModule,
		Target:            target(t.opts.Target),
		Sourcemap:         sourcemap,
		Sourcefile:        path,
		TsconfigRaw:       tsconfig,
		MinifyWhitespace:  t.opts.Minify,
		MinifyIdentifiers: t.opts.Minify,
		MinifySyntax:      t.opts.Minify,
	})

	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		err := apperrors.NewScriptCompileError(path, fmt.Errorf("%s", msg.Text))
		if msg.Location != nil {
			err = err.WithLocation(msg.Location.Line, msg.Location.Column)
		}
		return Result{}, err
	}

	return Result{Code: string(result.Code), SourceMap: string(result.Map)}, nil
}

func target(name string) api.Target {
	switch name {
	case "es2017":
		return api.ES2017
	case "es2018":
		return api.ES2018
	case "es2019":
		return api.ES2019
	case "es2020":
		return api.ES2020
	case "es2021":
		return api.ES2021
	case "es2022":
		return api.ES2022
	default:
		return api.ESNext
	}
}

// SourceMapComment renders an external source map as an inline base64 data
// URI reference, appended to module output.
func SourceMapComment(mapJSON string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(mapJSON))
	return "//# sourceMappingURL=data:application/json;base64," + encoded
}
