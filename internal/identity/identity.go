// Package identity derives component scope identifiers and compilation
// cache keys, and tracks file modification times for recompile decisions.
package identity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const scopePrefix = "data-v-"

// DeriveScopeID maps an absolute file path to a stable scope identifier of
// the form "data-v-XXXXXXXX". It depends on the path string only, so the
// same file keeps its scope token across edits and recompiles. The digest
// is truncated to 32 bits; two files colliding is vanishingly unlikely for
// project-sized component sets.
func DeriveScopeID(path string) string {
	sum := xxhash.Sum64String(path)
	return scopePrefix + fmt.Sprintf("%08x", uint32(sum))
}

// DeriveCacheKey digests everything that affects a compiled artifact: the
// component path, the requested artifact kind ("module" or "style"), the
// serialized active configuration, the raw file bytes and the file stats.
// The key is rendered as "<path>?<hex>" so all keys of one path can be
// purged with a prefix scan.
func DeriveCacheKey(path, kind string, configFingerprint []byte, rawText string, modTime time.Time, size int64) string {
	d := xxhash.New()

	var stamp [16]byte
	binary.LittleEndian.PutUint64(stamp[0:8], uint64(modTime.UnixNano()))
	binary.LittleEndian.PutUint64(stamp[8:16], uint64(size))

	// Field separators keep adjacent inputs from aliasing each other.
	_, _ = d.WriteString(path)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(kind)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(configFingerprint)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(rawText)
	_, _ = d.Write(stamp[:])

	return path + "?" + strconv.FormatUint(d.Sum64(), 16)
}

// Tracker records the last seen modification time per component path and
// decides whether a load request needs a fresh compile.
type Tracker struct {
	mu       sync.Mutex
	modTimes map[string]time.Time
}

// NewTracker creates an empty modification-time tracker.
func NewTracker() *Tracker {
	return &Tracker{modTimes: make(map[string]time.Time)}
}

// ShouldRecompile returns true when no cached output exists for the
// request's key, or when the file's modification time has advanced past the
// last recorded time for path. When a recompile is needed the recorded
// modification time is updated as a side effect.
func (t *Tracker) ShouldRecompile(path string, modTime time.Time, cacheHit bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.modTimes[path]
	if cacheHit && seen && !modTime.After(last) {
		return false
	}

	t.modTimes[path] = modTime
	return true
}

// Forget drops the recorded modification time for path. Invoked on
// hot-update events so the next load always recompiles.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.modTimes, path)
}

// Reset drops all recorded modification times.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modTimes = make(map[string]time.Time)
}
