// Package style runs style sections through their declared preprocessing
// language and, for scoped sections, through the selector scoper.
//
// User-supplied preprocessor functions override built-in handling per
// language tag. Built-in scss/sass support delegates to a dart-sass engine
// started lazily on first use; stylus and less require an injected engine.
// Preprocessing failures propagate as preprocess errors, unlike scoping
// failures which degrade gracefully inside the scoper.
package style

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/aurelia/sfc-vite/internal/errors"
	"github.com/aurelia/sfc-vite/internal/logging"
	"github.com/aurelia/sfc-vite/internal/scoper"
)

// Preprocessor is a user-supplied style transform for one language tag.
// It receives the raw section text and the configured preprocessor options.
type Preprocessor func(source string, options map[string]interface{}) (string, error)

// Engine compiles a style language to plain CSS. Implementations wrap
// external compilers (dart-sass, a stylus or less binary, ...).
type Engine interface {
	Compile(source, language string, options map[string]interface{}) (string, error)
}

// Options configures the pipeline.
type Options struct {
	// Preprocessors maps language tags to user functions; a present entry
	// overrides built-in handling for that tag.
	Preprocessors map[string]Preprocessor
	// Engines maps language tags to external engines. "scss"/"sass" fall
	// back to the built-in dart-sass engine when absent.
	Engines map[string]Engine
	// PreprocessorOptions is passed through to preprocessors and engines.
	PreprocessorOptions map[string]interface{}
}

// Pipeline processes style sections.
type Pipeline struct {
	opts   Options
	scoper *scoper.Scoper
	logger logging.Logger

	sassOnce sync.Once
	sass     Engine
	sassErr  error
}

// NewPipeline creates a style pipeline.
func NewPipeline(opts Options, sc *scoper.Scoper, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sc == nil {
		sc = scoper.New(logger)
	}
	return &Pipeline{opts: opts, scoper: sc, logger: logger.WithComponent("style")}
}

// Process runs one style section through its language's preprocessor and,
// when scoped, through the selector scoper.
func (p *Pipeline) Process(ctx context.Context, path, source, language string, scoped bool, scopeID string) (string, error) {
	out, err := p.preprocess(ctx, path, source, language)
	if err != nil {
		return "", err
	}

	if scoped {
		out = p.scoper.Scope(out, scopeID)
	}

	return out, nil
}

func (p *Pipeline) preprocess(ctx context.Context, path, source, language string) (string, error) {
	if fn, ok := p.opts.Preprocessors[language]; ok {
		out, err := fn(source, p.opts.PreprocessorOptions)
		if err != nil {
			return "", apperrors.NewPreprocessError(path, language, err)
		}
		return out, nil
	}

	switch language {
	case "", "css":
		return source, nil
	case "scss", "sass":
		engine, err := p.sassEngine()
		if err != nil {
			return "", apperrors.NewPreprocessError(path, language, err)
		}
		out, err := engine.Compile(source, language, p.opts.PreprocessorOptions)
		if err != nil {
			return "", apperrors.NewPreprocessError(path, language, err)
		}
		return out, nil
	case "stylus", "less":
		engine, ok := p.opts.Engines[language]
		if !ok || engine == nil {
			return "", apperrors.NewPreprocessError(path, language,
				fmt.Errorf("no %s engine configured", language))
		}
		out, err := engine.Compile(source, language, p.opts.PreprocessorOptions)
		if err != nil {
			return "", apperrors.NewPreprocessError(path, language, err)
		}
		return out, nil
	default:
		// Unrecognized language tags pass through unchanged.
		p.logger.Debug(ctx, "unrecognized style language, passing through",
			"language", language, "path", path)
		return source, nil
	}
}

// sassEngine resolves the scss/sass engine: an injected one wins, otherwise
// the built-in dart-sass engine is started once and reused.
func (p *Pipeline) sassEngine() (Engine, error) {
	if engine, ok := p.opts.Engines["scss"]; ok && engine != nil {
		return engine, nil
	}

	p.sassOnce.Do(func() {
		p.sass, p.sassErr = newDartSassEngine()
	})

	return p.sass, p.sassErr
}

// Close releases external engine resources.
func (p *Pipeline) Close() error {
	if closer, ok := p.sass.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
