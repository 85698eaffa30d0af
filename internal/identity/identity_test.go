package identity

import (
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var scopeIDRe = regexp.MustCompile(`^data-v-[0-9a-f]{8}$`)

func TestDeriveScopeID(t *testing.T) {
	t.Run("stable across calls", func(t *testing.T) {
		first := DeriveScopeID("/src/components/button.au")
		second := DeriveScopeID("/src/components/button.au")
		assert.Equal(t, first, second)
	})

	t.Run("format", func(t *testing.T) {
		assert.Regexp(t, scopeIDRe, DeriveScopeID("/src/app.au"))
	})

	t.Run("distinct paths get distinct ids", func(t *testing.T) {
		paths := []string{
			"/src/app.au",
			"/src/components/button.au",
			"/src/components/card.au",
			"/src/views/home.au",
			"/src/views/about.au",
		}
		seen := make(map[string]string)
		for _, path := range paths {
			id := DeriveScopeID(path)
			if prev, dup := seen[id]; dup {
				t.Fatalf("scope id collision between %s and %s", prev, path)
			}
			seen[id] = path
		}
	})
}

func TestDeriveScopeID_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("always well-formed", prop.ForAll(
		func(path string) bool {
			return scopeIDRe.MatchString(DeriveScopeID(path))
		},
		gen.AnyString(),
	))

	properties.Property("deterministic", prop.ForAll(
		func(path string) bool {
			return DeriveScopeID(path) == DeriveScopeID(path)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestDeriveCacheKey(t *testing.T) {
	now := time.Now()
	base := DeriveCacheKey("/src/app.au", "module", []byte("cfg"), "raw", now, 42)

	t.Run("prefixed with path", func(t *testing.T) {
		assert.Regexp(t, `^/src/app\.au\?[0-9a-f]+$`, base)
	})

	t.Run("changes with every input", func(t *testing.T) {
		variants := []string{
			DeriveCacheKey("/src/other.au", "module", []byte("cfg"), "raw", now, 42),
			DeriveCacheKey("/src/app.au", "style", []byte("cfg"), "raw", now, 42),
			DeriveCacheKey("/src/app.au", "module", []byte("cfg2"), "raw", now, 42),
			DeriveCacheKey("/src/app.au", "module", []byte("cfg"), "raw2", now, 42),
			DeriveCacheKey("/src/app.au", "module", []byte("cfg"), "raw", now.Add(time.Second), 42),
			DeriveCacheKey("/src/app.au", "module", []byte("cfg"), "raw", now, 43),
		}
		for i, variant := range variants {
			assert.NotEqual(t, base, variant, "variant %d should differ", i)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, base, DeriveCacheKey("/src/app.au", "module", []byte("cfg"), "raw", now, 42))
	})
}

func TestTracker(t *testing.T) {
	t.Run("recompiles on first sight", func(t *testing.T) {
		tr := NewTracker()
		assert.True(t, tr.ShouldRecompile("/a.au", time.Now(), false))
	})

	t.Run("cache hit with unchanged mtime skips recompile", func(t *testing.T) {
		tr := NewTracker()
		mtime := time.Now()
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, false))
		assert.False(t, tr.ShouldRecompile("/a.au", mtime, true))
	})

	t.Run("advanced mtime forces recompile despite cache hit", func(t *testing.T) {
		tr := NewTracker()
		mtime := time.Now()
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, false))
		assert.True(t, tr.ShouldRecompile("/a.au", mtime.Add(time.Second), true))
	})

	t.Run("cache miss always recompiles", func(t *testing.T) {
		tr := NewTracker()
		mtime := time.Now()
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, false))
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, false))
	})

	t.Run("forget clears the recorded time", func(t *testing.T) {
		tr := NewTracker()
		mtime := time.Now()
		tr.ShouldRecompile("/a.au", mtime, false)
		tr.Forget("/a.au")
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, true))
	})

	t.Run("reset clears everything", func(t *testing.T) {
		tr := NewTracker()
		mtime := time.Now()
		tr.ShouldRecompile("/a.au", mtime, false)
		tr.ShouldRecompile("/b.au", mtime, false)
		tr.Reset()
		assert.True(t, tr.ShouldRecompile("/a.au", mtime, true))
		assert.True(t, tr.ShouldRecompile("/b.au", mtime, true))
	})
}
