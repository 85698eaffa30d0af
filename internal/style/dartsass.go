package style

import (
	"github.com/bep/godartsass/v2"
)

// dartSassEngine wraps the dart-sass embedded protocol as the built-in
// scss/sass engine. Starting the transpiler spawns the external dart-sass
// process, so construction is deferred until the first scss/sass section.
type dartSassEngine struct {
	transpiler *godartsass.Transpiler
}

func newDartSassEngine() (Engine, error) {
	transpiler, err := godartsass.Start(godartsass.Options{})
	if err != nil {
		return nil, err
	}
	return &dartSassEngine{transpiler: transpiler}, nil
}

// Compile transpiles scss or indented-syntax sass to CSS.
func (e *dartSassEngine) Compile(source, language string, _ map[string]interface{}) (string, error) {
	syntax := godartsass.SourceSyntaxSCSS
	if language == "sass" {
		syntax = godartsass.SourceSyntaxSASS
	}

	result, err := e.transpiler.Execute(godartsass.Args{
		Source:       source,
		SourceSyntax: syntax,
		OutputStyle:  godartsass.OutputStyleExpanded,
	})
	if err != nil {
		return "", err
	}

	return result.CSS, nil
}

// Close shuts down the dart-sass process.
func (e *dartSassEngine) Close() error {
	return e.transpiler.Close()
}
