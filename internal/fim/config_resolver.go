package fim

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NotConfigured is the sentinel ConfigResolver.Resolve returns when no
// monitored directory covers a path.
const NotConfigured = -1

// ConfigResolver maps an arbitrary path to the index of the most
// specific configured monitored directory (spec.md §4.1). It owns the
// symlink-resolution cache (fim_symlink_mutex in the source) behind its
// own RWMutex, independent of the engine's entry/scan mutexes.
type ConfigResolver struct {
	mu        sync.RWMutex
	dirs      []MonitoredDir
	realPaths []string // resolved real path per dir, refreshed by Refresh
}

// NewConfigResolver builds a resolver over dirs and resolves every
// directory's real path immediately.
func NewConfigResolver(dirs []MonitoredDir) *ConfigResolver {
	r := &ConfigResolver{dirs: dirs, realPaths: make([]string, len(dirs))}
	r.Refresh()
	return r
}

// Refresh re-resolves every directory's real path. Scheduled scans call
// this once per cycle (fim_get_real_path is recomputed fresh on every
// scan in the source); realtime/whodata lookups reuse the cached value.
func (r *ConfigResolver) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.dirs {
		r.realPaths[i] = resolveRealPath(d)
	}
}

func resolveRealPath(d MonitoredDir) string {
	if !d.Options.Has(CheckFollow) {
		return filepath.Clean(d.Path)
	}
	if d.SymbolicLink != "" {
		return filepath.Clean(d.SymbolicLink)
	}
	target, err := filepath.EvalSymlinks(d.Path)
	if err != nil {
		return "" // broken link: no real path, mirrors the source's empty string
	}
	return filepath.Clean(target)
}

// RealPath returns the cached resolved path for a monitored directory
// index, or "" if index is out of range.
func (r *ConfigResolver) RealPath(index int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.realPaths) {
		return ""
	}
	return r.realPaths[index]
}

// DirCount returns the number of configured monitored directories.
func (r *ConfigResolver) DirCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dirs)
}

// Dir returns the configuration for a monitored directory index.
func (r *ConfigResolver) Dir(index int) (MonitoredDir, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.dirs) {
		return MonitoredDir{}, false
	}
	return r.dirs[index], true
}

// Resolve returns the index of the monitored directory whose real path
// is the longest prefix of path terminating on a path separator, or
// NotConfigured if none matches. Ties are impossible because real paths
// are unique by construction (spec.md §4.1).
func (r *ConfigResolver) Resolve(path string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	full := trailSep(filepath.Clean(path))
	best, bestLen := NotConfigured, -1

	for i, real := range r.realPaths {
		if real == "" {
			continue
		}
		re := trailSep(real)
		if strings.HasPrefix(full, re) && len(re) > bestLen {
			best, bestLen = i, len(re)
		}
	}

	return best
}

// RecursionDepth returns how many directory levels below the monitored
// root at index path sits: an entry directly inside the root is depth 0,
// an entry inside one of its subdirectories is depth 1, and so on. It
// returns (0, false) if path is not within that root. Root paths ("/" on
// POSIX, "X:\" on Windows) are depth 0.
func (r *ConfigResolver) RecursionDepth(path string, index int) (int, bool) {
	r.mu.RLock()
	real := r.realPaths[index]
	r.mu.RUnlock()

	if real == "" {
		return 0, false
	}

	path = filepath.Clean(path)
	if len(real) > len(path) {
		return 0, false
	}
	if path != real && !strings.HasPrefix(path, trailSep(real)) {
		return 0, false
	}

	depth := -1
	switch {
	case len(real) == 1: // POSIX filesystem root: "/"
		depth = 0
	case len(real) == 3 && real[1] == ':' && (real[2] == '\\' || real[2] == '/'): // Windows drive root: "X:\"
		depth = 0
	}

	rest := path[len(real):]
	for _, ch := range rest {
		if ch == os.PathSeparator {
			depth++
		}
	}

	return depth, true
}

// trailSep ensures p ends in exactly one path separator, the normalized
// form Resolve's prefix comparison relies on (the Go equivalent of the
// source's trail_path_separator, made explicit per DESIGN.md's Open
// Question #2 decision). Case is not folded here; on Windows callers
// lowercase paths before resolution.
func trailSep(p string) string {
	if p == "" {
		return p
	}
	if strings.HasSuffix(p, string(os.PathSeparator)) {
		return p
	}
	return p + string(os.PathSeparator)
}
