// Package plugin implements the resolution/load façade a build tool calls:
// resolving component and stylesheet specifiers to virtual module ids, and
// producing compiled content for those ids.
//
// Data flows one direction per request: raw file -> splitter -> script
// analysis / style pipeline -> synthesizer -> transpiler -> result cache.
// The cache and modification-time tracker are owned by the Plugin instance
// rather than package state, so a server session can reset them explicitly.
package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aurelia/sfc-vite/internal/cache"
	"github.com/aurelia/sfc-vite/internal/config"
	apperrors "github.com/aurelia/sfc-vite/internal/errors"
	"github.com/aurelia/sfc-vite/internal/identity"
	"github.com/aurelia/sfc-vite/internal/logging"
	"github.com/aurelia/sfc-vite/internal/registry"
	"github.com/aurelia/sfc-vite/internal/scoper"
	"github.com/aurelia/sfc-vite/internal/script"
	"github.com/aurelia/sfc-vite/internal/splitter"
	"github.com/aurelia/sfc-vite/internal/style"
	"github.com/aurelia/sfc-vite/internal/synth"
	"github.com/aurelia/sfc-vite/internal/transpile"
	"github.com/aurelia/sfc-vite/internal/types"
)

// ReloadNotifier receives the module ids selected for reload after a hot
// update. The dev server implements it.
type ReloadNotifier interface {
	NotifyReload(modules []string)
}

// Plugin is the compiler façade.
type Plugin struct {
	cfg         *config.Config
	fingerprint []byte

	cache      *cache.ResultCache
	tracker    *identity.Tracker
	splitter   *splitter.Splitter
	scoper     *scoper.Scoper
	pipeline   *style.Pipeline
	transpiler transpile.Transpiler
	graph      *registry.ModuleGraph
	logger     logging.Logger

	notifier ReloadNotifier
	compiles atomic.Int64
}

// Option customizes plugin construction.
type Option func(*Plugin)

// WithTranspiler overrides the script transpiler.
func WithTranspiler(t transpile.Transpiler) Option {
	return func(p *Plugin) { p.transpiler = t }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Plugin) { p.logger = l }
}

// WithStyleOptions sets preprocessors and engines for the style pipeline.
func WithStyleOptions(opts style.Options) Option {
	return func(p *Plugin) {
		if opts.PreprocessorOptions == nil {
			opts.PreprocessorOptions = p.cfg.Style.PreprocessorOptions
		}
		p.pipeline = style.NewPipeline(opts, p.scoper, p.logger)
	}
}

// WithGraph shares a module graph with the host.
func WithGraph(g *registry.ModuleGraph) Option {
	return func(p *Plugin) { p.graph = g }
}

// New creates a Plugin for the given configuration.
func New(cfg *config.Config, opts ...Option) *Plugin {
	if cfg == nil {
		cfg = config.Default()
	}

	p := &Plugin{
		cfg:         cfg,
		fingerprint: cfg.Fingerprint(),
		cache:       cache.New(cfg.CacheCapacity),
		tracker:     identity.NewTracker(),
		logger:      logging.NewNop(),
		graph:       registry.New(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.logger = p.logger.WithComponent("plugin")
	p.splitter = splitter.New(p.logger)
	p.scoper = scoper.New(p.logger)
	if p.pipeline == nil {
		p.pipeline = style.NewPipeline(style.Options{
			PreprocessorOptions: cfg.Style.PreprocessorOptions,
		}, p.scoper, p.logger)
	}
	if p.transpiler == nil {
		p.transpiler = transpile.NewESBuild(transpile.Options{
			Target:                 cfg.TypeScript.Target,
			ExperimentalDecorators: cfg.TypeScript.ExperimentalDecorators,
			Minify:                 cfg.TypeScript.Minify,
			Sourcemap:              cfg.TypeScript.Sourcemap,
		})
	}

	return p
}

// Graph exposes the module graph shared with the dev server.
func (p *Plugin) Graph() *registry.ModuleGraph {
	return p.graph
}

// Compiles returns the number of full compilations performed; cache hits do
// not count.
func (p *Plugin) Compiles() int64 {
	return p.compiles.Load()
}

// ResolveID maps an import specifier to a virtual module id, or returns ""
// when the specifier is not a component or component-stylesheet import so
// other resolvers in the host pipeline may claim it. Relative specifiers
// resolve against the importer's directory; bare specifiers pass through
// unchanged, importer or not.
func (p *Plugin) ResolveID(specifier, importer string) string {
	switch {
	case strings.HasSuffix(specifier, types.StyleExt):
	case strings.HasSuffix(specifier, types.ComponentExt):
	default:
		return ""
	}

	resolved := specifier
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		if importer != "" {
			resolved = filepath.Join(filepath.Dir(importer), specifier)
		} else {
			resolved = filepath.Clean(specifier)
		}
	}

	if p.excluded(resolved) {
		return ""
	}

	return types.VirtualPrefix + resolved
}

// excluded applies the include/exclude glob filters to a component path.
func (p *Plugin) excluded(path string) bool {
	base := filepath.Base(strings.TrimSuffix(path, ".css"))

	for _, pattern := range p.cfg.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
	}

	if len(p.cfg.Include) == 0 {
		return false
	}
	for _, pattern := range p.cfg.Include {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return false
		}
	}
	return true
}

// Load produces content for a virtual id. The boolean result reports
// whether this plugin handled the id at all; ids without the virtual prefix
// or a recognized suffix are passed over without error.
func (p *Plugin) Load(ctx context.Context, id string) (string, bool, error) {
	if !strings.HasPrefix(id, types.VirtualPrefix) {
		return "", false, nil
	}
	target := strings.TrimPrefix(id, types.VirtualPrefix)

	switch {
	case strings.HasSuffix(target, types.StyleExt):
		out, err := p.loadStyle(ctx, strings.TrimSuffix(target, ".css"))
		return out, true, err
	case strings.HasSuffix(target, types.ComponentExt):
		out, err := p.loadModule(ctx, target)
		return out, true, err
	default:
		return "", false, nil
	}
}

// readDocument stats the file before reading so a missing component fails
// fast with a file-not-found error instead of an opaque I/O failure.
func readDocument(path string) (*types.SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewFileNotFoundError(path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewFileNotFoundError(path, err)
	}

	return &types.SourceDocument{
		AbsolutePath: path,
		RawText:      string(raw),
		ModTime:      info.ModTime(),
		Size:         info.Size(),
	}, nil
}

func (p *Plugin) loadModule(ctx context.Context, path string) (string, error) {
	doc, err := readDocument(path)
	if err != nil {
		return "", err
	}

	key := identity.DeriveCacheKey(path, "module", p.fingerprint, doc.RawText, doc.ModTime, doc.Size)
	if !p.tracker.ShouldRecompile(path, doc.ModTime, p.cache.Has(key)) {
		if out, ok := p.cache.Get(key); ok {
			return out, nil
		}
	}

	out, err := p.compileModule(path, doc)
	if err != nil {
		return "", err
	}

	p.compiles.Add(1)
	p.cache.Set(key, out)
	p.logger.Debug(ctx, "compiled module", "path", path)

	return out, nil
}

func (p *Plugin) compileModule(path string, doc *types.SourceDocument) (string, error) {
	sections, err := p.splitter.Parse(path, doc.RawText)
	if err != nil {
		return "", err
	}

	split := script.SplitImports(sections.Script)
	name := script.DeriveName(split.Body)
	decorated := script.Decorate(split.Body, name)

	scopeID := identity.DeriveScopeID(path)
	template := sections.Template
	if anyScoped(sections.Styles) {
		template = scoper.ScopeTemplate(template, scopeID)
	}

	styleImport := ""
	if len(sections.Styles) > 0 {
		styleImport = types.VirtualStyleID(path)
	}

	source := synth.Synthesize(split.Imports, styleImport, template, decorated)

	result, err := p.transpiler.Transpile(path, source)
	if err != nil {
		return "", err
	}

	out := result.Code
	if result.SourceMap != "" {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += transpile.SourceMapComment(result.SourceMap) + "\n"
	}

	return out, nil
}

func (p *Plugin) loadStyle(ctx context.Context, path string) (string, error) {
	doc, err := readDocument(path)
	if err != nil {
		return "", err
	}

	key := identity.DeriveCacheKey(path, "style", p.fingerprint, doc.RawText, doc.ModTime, doc.Size)
	if !p.tracker.ShouldRecompile(path, doc.ModTime, p.cache.Has(key)) {
		if out, ok := p.cache.Get(key); ok {
			return out, nil
		}
	}

	sections, err := p.splitter.Parse(path, doc.RawText)
	if err != nil {
		return "", err
	}

	scopeID := identity.DeriveScopeID(path)
	parts := make([]string, 0, len(sections.Styles))
	for _, block := range sections.Styles {
		processed, err := p.pipeline.Process(ctx, path, block.RawCSS, block.Language, block.Scoped, scopeID)
		if err != nil {
			return "", err
		}
		parts = append(parts, processed)
	}

	out := strings.Join(parts, "\n")
	p.compiles.Add(1)
	p.cache.Set(key, out)
	p.logger.Debug(ctx, "compiled stylesheet", "path", path, "sections", len(sections.Styles))

	return out, nil
}

func anyScoped(blocks []types.StyleBlock) bool {
	for _, b := range blocks {
		if b.Scoped {
			return true
		}
	}
	return false
}

// ConfigureServer attaches the plugin to a dev-server session and returns
// the post-configuration callback, which resets all compiler state so a
// (re)configured server never serves stale artifacts.
func (p *Plugin) ConfigureServer(notifier ReloadNotifier) func() {
	p.notifier = notifier
	return func() {
		p.Reset()
	}
}

// Reset clears the result cache and all tracked modification times.
func (p *Plugin) Reset() {
	p.cache.Clear()
	p.tracker.Reset()
}

// HandleHotUpdate reacts to a changed file. For recognized component files
// it purges all cached artifacts and modification-time records for that
// path, then selects modules to reload per the configured policy and
// notifies the server. Other files are ignored. The selected module ids are
// returned.
func (p *Plugin) HandleHotUpdate(file string, modules []string) []string {
	if !strings.HasSuffix(file, types.ComponentExt) {
		return nil
	}

	// Keys are "<path>?<hex>"; including the separator keeps a sibling
	// component whose path merely extends this one out of the purge.
	p.cache.PurgePrefix(file + "?")
	p.tracker.Forget(file)

	selected := modules
	if len(selected) == 0 {
		selected = p.graph.Importers(file)
	}
	if p.cfg.ReloadPolicy == config.ReloadPolicyFirst && len(selected) > 1 {
		selected = selected[:1]
	}

	if p.notifier != nil && len(selected) > 0 {
		p.notifier.NotifyReload(selected)
	}
	p.graph.Broadcast(registry.Event{Path: file, Modules: selected, Time: time.Now()})

	return selected
}

// Close releases external resources held by the style pipeline.
func (p *Plugin) Close() error {
	return p.pipeline.Close()
}

// CacheStats surfaces cache counters for diagnostics.
func (p *Plugin) CacheStats() (hits, misses, evictions int64) {
	return p.cache.Stats()
}
