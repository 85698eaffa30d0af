package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurelia/sfc-vite/internal/config"
	apperrors "github.com/aurelia/sfc-vite/internal/errors"
	"github.com/aurelia/sfc-vite/internal/transpile"
	"github.com/aurelia/sfc-vite/internal/types"
)

// passthroughTranspiler hands the synthesized source back untouched so tests
// can assert on module structure without a real esbuild round trip.
type passthroughTranspiler struct{}

func (passthroughTranspiler) Transpile(path, source string) (transpile.Result, error) {
	return transpile.Result{Code: source}, nil
}

type captureNotifier struct {
	modules [][]string
}

func (c *captureNotifier) NotifyReload(modules []string) {
	c.modules = append(c.modules, modules)
}

func newTestPlugin(t *testing.T, cfg *config.Config) *Plugin {
	t.Helper()
	p := New(cfg, WithTranspiler(passthroughTranspiler{}))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func writeComponent(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const greetingComponent = `<template>
  <div class="greeting">${message}</div>
</template>
<script>
export default class Greeting {
  message = 'hello';
}
</script>
<style scoped>
.greeting { color: red; }
</style>
`

func TestResolveID(t *testing.T) {
	p := newTestPlugin(t, nil)

	tests := []struct {
		name      string
		specifier string
		importer  string
		want      string
	}{
		{
			name:      "relative component against importer directory",
			specifier: "./component.au",
			importer:  "/src/index.js",
			want:      "virtual:/src/component.au",
		},
		{
			name:      "parent-relative component",
			specifier: "../shared/component.au",
			importer:  "/src/pages/home.js",
			want:      "virtual:/src/shared/component.au",
		},
		{
			name:      "bare specifier passes through",
			specifier: "component.au",
			importer:  "/src/index.js",
			want:      "virtual:component.au",
		},
		{
			name:      "stylesheet specifier",
			specifier: "./component.au.css",
			importer:  "/src/index.js",
			want:      "virtual:/src/component.au.css",
		},
		{
			name:      "relative without importer cleans in place",
			specifier: "./component.au",
			importer:  "",
			want:      "virtual:component.au",
		},
		{
			name:      "unrelated specifier declined",
			specifier: "./util.ts",
			importer:  "/src/index.js",
			want:      "",
		},
		{
			name:      "plain css declined",
			specifier: "./site.css",
			importer:  "/src/index.js",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ResolveID(tt.specifier, tt.importer))
		})
	}
}

func TestResolveID_ExcludeFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Exclude = []string{"*.skip.au"}
	p := newTestPlugin(t, cfg)

	assert.Equal(t, "", p.ResolveID("./legacy.skip.au", "/src/index.js"))
	assert.Equal(t, "virtual:/src/ok.au", p.ResolveID("./ok.au", "/src/index.js"))
}

func TestResolveID_IncludeFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Include = []string{"app-*.au"}
	p := newTestPlugin(t, cfg)

	assert.Equal(t, "virtual:/src/app-shell.au", p.ResolveID("./app-shell.au", "/src/index.js"))
	assert.Equal(t, "", p.ResolveID("./other.au", "/src/index.js"))
}

func TestLoad_Module(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)

	out, handled, err := p.Load(context.Background(), types.VirtualID(path))
	require.NoError(t, err)
	require.True(t, handled)

	assert.Contains(t, out, "import { customElement } from 'aurelia';")
	assert.Contains(t, out, "import 'virtual:"+path+".css';")
	assert.Contains(t, out, "const template = `")
	assert.Contains(t, out, "@customElement({ name: 'greeting', template })")
	assert.Contains(t, out, "export default class Greeting")
	// Interpolation inside the template literal must be escaped.
	assert.Contains(t, out, "\\${message}")
}

func TestLoad_ModuleExplicitNameWins(t *testing.T) {
	p := newTestPlugin(t, nil)
	doc := `<template><div></div></template>
<script>
@customElement({ name: 'explicit-tag', template })
export default class SomethingElse {}
</script>`
	path := writeComponent(t, t.TempDir(), "named.au", doc)

	out, _, err := p.Load(context.Background(), types.VirtualID(path))
	require.NoError(t, err)
	assert.Contains(t, out, "@customElement({ name: 'explicit-tag', template })")
	// The declared class keeps exactly one decorator.
	assert.Equal(t, 1, strings.Count(out, "@customElement"))
}

func TestLoad_ModuleTypedNameFieldUsesClassName(t *testing.T) {
	p := newTestPlugin(t, nil)
	doc := `<template><div></div></template>
<script>
export default class UserCard {
  name: string = '';
}
</script>`
	path := writeComponent(t, t.TempDir(), "user-card.au", doc)

	out, _, err := p.Load(context.Background(), types.VirtualID(path))
	require.NoError(t, err)
	assert.Contains(t, out, "@customElement({ name: 'user-card', template })")
}

func TestLoad_ScopedTemplateStamped(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)

	out, _, err := p.Load(context.Background(), types.VirtualID(path))
	require.NoError(t, err)
	assert.Contains(t, out, "<div data-v-")
}

func TestLoad_Stylesheet(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)

	out, handled, err := p.Load(context.Background(), types.VirtualStyleID(path))
	require.NoError(t, err)
	require.True(t, handled)

	assert.Contains(t, out, ".greeting[data-v-")
	assert.Contains(t, out, "color: red;")
}

func TestLoad_StylesheetEmptyForStylelessComponent(t *testing.T) {
	p := newTestPlugin(t, nil)
	doc := `<template><div></div></template>
<script>export default class Plain {}</script>`
	path := writeComponent(t, t.TempDir(), "plain.au", doc)

	out, handled, err := p.Load(context.Background(), types.VirtualStyleID(path))
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "", out)

	module, _, err := p.Load(context.Background(), types.VirtualID(path))
	require.NoError(t, err)
	assert.NotContains(t, module, ".au.css")
}

func TestLoad_UnrecognizedIDsPassedOver(t *testing.T) {
	p := newTestPlugin(t, nil)

	for _, id := range []string{"/src/app.ts", "virtual:/src/app.ts", "virtual:/src/site.css"} {
		out, handled, err := p.Load(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, handled, "id %q must be left to other loaders", id)
		assert.Equal(t, "", out)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	p := newTestPlugin(t, nil)

	_, handled, err := p.Load(context.Background(), "virtual:/nope/missing.au")
	require.Error(t, err)
	assert.True(t, handled)
	assert.True(t, apperrors.IsType(err, apperrors.TypeFileNotFound))
	assert.Contains(t, err.Error(), "/nope/missing.au")
}

func TestLoad_StructureErrorPropagates(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "broken.au", "<template><div></div></template>")

	_, _, err := p.Load(context.Background(), types.VirtualID(path))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeStructure))
}

func TestLoad_CacheAvoidsRecompilation(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)
	id := types.VirtualID(path)

	first, _, err := p.Load(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Compiles())

	second, _, err := p.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), p.Compiles(), "unchanged file must be served from cache")

	hits, _, _ := p.CacheStats()
	assert.GreaterOrEqual(t, hits, int64(1))
}

func TestLoad_ModificationForcesRecompilation(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)
	id := types.VirtualID(path)

	_, _, err := p.Load(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.Compiles())

	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	_, _, err = p.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Compiles(), "touched file must recompile")
}

func TestReset(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)
	id := types.VirtualID(path)

	_, _, err := p.Load(context.Background(), id)
	require.NoError(t, err)

	p.Reset()

	_, _, err = p.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Compiles())
}

func TestConfigureServer_PostConfigureResets(t *testing.T) {
	p := newTestPlugin(t, nil)
	path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)
	id := types.VirtualID(path)

	_, _, err := p.Load(context.Background(), id)
	require.NoError(t, err)

	post := p.ConfigureServer(&captureNotifier{})
	post()

	_, _, err = p.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Compiles())
}

func TestHandleHotUpdate(t *testing.T) {
	t.Run("purges cached artifacts for the changed path", func(t *testing.T) {
		p := newTestPlugin(t, nil)
		path := writeComponent(t, t.TempDir(), "greeting.au", greetingComponent)
		id := types.VirtualID(path)

		_, _, err := p.Load(context.Background(), id)
		require.NoError(t, err)
		_, _, err = p.Load(context.Background(), types.VirtualStyleID(path))
		require.NoError(t, err)
		require.Equal(t, int64(2), p.Compiles())

		p.HandleHotUpdate(path, []string{id})

		_, _, err = p.Load(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.Compiles(), "purged module must recompile")
	})

	t.Run("leaves path-extending siblings cached", func(t *testing.T) {
		p := newTestPlugin(t, nil)
		dir := t.TempDir()
		path := writeComponent(t, dir, "x.au", greetingComponent)
		sibling := writeComponent(t, dir, "x.au.backup.au", greetingComponent)

		_, _, err := p.Load(context.Background(), types.VirtualID(path))
		require.NoError(t, err)
		_, _, err = p.Load(context.Background(), types.VirtualID(sibling))
		require.NoError(t, err)
		require.Equal(t, int64(2), p.Compiles())

		p.HandleHotUpdate(path, nil)

		_, _, err = p.Load(context.Background(), types.VirtualID(sibling))
		require.NoError(t, err)
		assert.Equal(t, int64(2), p.Compiles(), "sibling must stay cached")

		_, _, err = p.Load(context.Background(), types.VirtualID(path))
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.Compiles(), "changed file must recompile")
	})

	t.Run("notifies with every affected module by default", func(t *testing.T) {
		p := newTestPlugin(t, nil)
		notifier := &captureNotifier{}
		p.ConfigureServer(notifier)

		selected := p.HandleHotUpdate("/src/app.au", []string{"m1", "m2"})
		assert.Equal(t, []string{"m1", "m2"}, selected)
		require.Len(t, notifier.modules, 1)
		assert.Equal(t, []string{"m1", "m2"}, notifier.modules[0])
	})

	t.Run("first policy narrows to one module", func(t *testing.T) {
		cfg := config.Default()
		cfg.ReloadPolicy = config.ReloadPolicyFirst
		p := newTestPlugin(t, cfg)
		notifier := &captureNotifier{}
		p.ConfigureServer(notifier)

		selected := p.HandleHotUpdate("/src/app.au", []string{"m1", "m2", "m3"})
		assert.Equal(t, []string{"m1"}, selected)
	})

	t.Run("falls back to the module graph when no modules are given", func(t *testing.T) {
		p := newTestPlugin(t, nil)
		p.Graph().Record("/src/app.au", "virtual:/src/app.au")

		selected := p.HandleHotUpdate("/src/app.au", nil)
		assert.Equal(t, []string{"virtual:/src/app.au"}, selected)
	})

	t.Run("ignores non-component files", func(t *testing.T) {
		p := newTestPlugin(t, nil)
		notifier := &captureNotifier{}
		p.ConfigureServer(notifier)

		assert.Nil(t, p.HandleHotUpdate("/src/readme.md", []string{"m1"}))
		assert.Empty(t, notifier.modules)
	})
}
