package fim

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Scan runs one complete scheduled traversal cycle, fim_scan (spec.md
// §4.6). It blocks for the duration of the scan; callers that want
// periodic scanning drive Scan from their own ticker goroutine.
func (e *Engine) Scan() {
	e.scanMu.Lock()
	defer e.scanMu.Unlock()

	scanID := e.newScanID()
	start := e.nowFunc()
	e.emitBracket("scan_start", scanID)

	if e.diffQuota != nil {
		if kb, err := e.diffQuota.FolderSizeKB(); err != nil {
			e.log.Warn("failed to measure diff quota", "error", err)
		} else {
			e.diffFolderSizeKB = kb
			e.log.Debug2("diff folder size", "kb", kb)
		}
	}

	e.entryMu.Lock()
	e.store.SetAllUnscanned()
	e.entryMu.Unlock()

	e.resolver.Refresh()
	dirCount := e.resolver.DirCount()

	for i := 0; i < dirCount; i++ {
		if !e.canContinue() {
			break
		}
		real := e.resolver.RealPath(i)
		if real == "" {
			continue
		}
		dir, _ := e.resolver.Dir(i)

		e.checker(real, i, ModeScheduled, nil, true, scanID)

		if dir.RealtimeActive && e.realtime != nil {
			e.realtime.AddDir(real, dir.Options.Has(CheckFollow))
		}
	}

	// Hook point for the out-of-scope Windows registry scan
	// (fim_registry_scan in the source); left unimplemented per
	// spec.md §1's Non-goals.
	e.onAfterDirectoryScan()

	// check_deleted_files runs every cycle regardless of file_limit_enabled
	// in the source; only the refill pass and the DB-state alert are
	// gated by capacity tracking being turned on.
	e.checkDeletedFiles()

	if e.capacityEnabled {
		if e.store.Full() {
			for i := 0; i < dirCount; i++ {
				real := e.resolver.RealPath(i)
				if real == "" {
					continue
				}
				e.checker(real, i, ModeScheduled, nil, false, scanID)
			}
		}
		if alert := e.dbState.Check(e.store.Count()); alert != nil {
			e.emitDbStateAlert(alert)
		}
	}

	e.log.Debug1("fim_scan finished", "elapsed_ms", e.nowFunc().Sub(start).Milliseconds(), "entries", e.store.Count())
	e.emitBracket("scan_end", scanID)

	if !e.baseline() {
		e.setBaseline()
	} else if e.realtime != nil && e.realtime.QueueOverflow() {
		e.realtime.SanitizeWatchMap()
	}
}

// onAfterDirectoryScan is the seam a Windows build would hook to run a
// registry scan after the filesystem traversal; the core carries the
// call site without an implementation (spec.md §9 "SUPPLEMENTED
// FEATURES").
func (e *Engine) onAfterDirectoryScan() {}

// checkDeletedFiles sweeps every entry left unscanned by this cycle's
// traversal and issues one deletion event per path, satisfying
// invariant I3.
func (e *Engine) checkDeletedFiles() {
	type pending struct {
		path     string
		data     FileData
		dirIndex int
	}

	e.entryMu.Lock()
	paths := e.store.NotScanned()
	pend := make([]pending, 0, len(paths))
	for _, p := range paths {
		entry, ok := e.store.Get(p)
		if !ok {
			continue
		}
		pend = append(pend, pending{path: p, data: entry.Data, dirIndex: e.resolver.Resolve(p)})
	}
	if err := e.store.DeleteNotScanned(paths); err != nil {
		e.log.Error("failed to delete not-scanned entries", "error", err)
	}
	e.entryMu.Unlock()

	for _, pd := range pend {
		if !e.canContinue() {
			return
		}
		var tags string
		if dir, ok := e.resolver.Dir(pd.dirIndex); ok {
			tags = dir.Tags
			if dir.Options.Has(CheckSeeChanges) && e.diff != nil {
				e.diff.ProcessDelete(pd.path)
			}
		}
		ev := Build(BuildParams{
			Path:      pd.path,
			OldData:   &pd.data,
			Kind:      EventDeleted,
			Mode:      ModeScheduled,
			Tags:      tags,
			Timestamp: e.nowFunc().Unix(),
		})
		e.emit(ev)
	}
}

// processMissingEntry is fim_process_missing_entry: path was just found
// absent from disk. If it was a tracked file, that's a plain deletion.
// Otherwise path may have been a directory that was itself moved or
// removed out from under the watch; its descendants are still sitting
// in the store under the "path/" prefix, so each gets its own deletion
// event the same way the source's "pathname/%" LIKE pattern fans one
// missing directory out into many missing files.
func (e *Engine) processMissingEntry(path string, dir MonitoredDir, mode Mode, w *WhodataEvt, report bool) {
	e.entryMu.Lock()
	_, existed := e.store.Get(path)
	e.entryMu.Unlock()

	if existed {
		e.deleteFileEvent(path, mode, w, report)
		return
	}

	prefix := path + string(os.PathSeparator)
	descendants := e.store.GetPathsMatching(prefix)
	if len(descendants) > 0 {
		for _, d := range descendants {
			if !e.canContinue() {
				return
			}
			e.deleteFileEvent(d, mode, w, report)
		}
		return
	}

	if dir.Options.Has(CheckSeeChanges) && e.diff != nil {
		e.diff.ProcessDelete(path)
	}
}

// checker is fim_checker (spec.md §4.6): the recursive traversal and
// per-path dispatch shared by scheduled, realtime, and whodata modes.
func (e *Engine) checker(path string, dirIndex int, mode Mode, w *WhodataEvt, report bool, scanID string) {
	if !e.canContinue() {
		return
	}

	dir, ok := e.resolver.Dir(dirIndex)
	if !ok {
		return
	}

	if mode != ModeScheduled {
		active := (mode == ModeRealtime && dir.RealtimeActive) || (mode == ModeWhodata && dir.WhodataActive)
		if !active {
			return
		}
	}

	resolvedIdx := e.resolver.Resolve(path)
	if resolvedIdx == NotConfigured {
		e.log.Debug2("path escaped its configured root", "path", path)
		return
	}
	dirIndex = resolvedIdx
	dir, _ = e.resolver.Dir(dirIndex)

	depth, within := e.resolver.RecursionDepth(path, dirIndex)
	if !within || depth > dir.RecursionLevel {
		return
	}

	info, statErr := e.statFunc(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			e.processMissingEntry(path, dir, mode, w, report)
			return
		}
		e.log.Warn("stat failed", "path", path, "error", statErr)
		return
	}

	if _, skip := e.skipFS[fsTypeName(path)]; skip {
		return
	}

	if info.IsDir() {
		e.checkDirectory(path, dirIndex, dir, depth, mode, report, scanID)
		return
	}

	if e.shouldIgnore(path, dir, info) {
		return
	}

	e.rateLimiter.Allow()

	e.entryMu.Lock()
	ev := e.processFile(path, mode, dirIndex, w, false)
	if ev != nil {
		ev.ScanID = scanID
	}
	e.entryMu.Unlock()

	if report {
		e.emit(ev)
	}
}

func (e *Engine) checkDirectory(path string, dirIndex int, dir MonitoredDir, depth int, mode Mode, report bool, scanID string) {
	if depth == dir.RecursionLevel {
		return
	}

	if dir.RealtimeActive && e.realtime != nil {
		e.realtime.AddDir(path, dir.Options.Has(CheckFollow))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		e.log.Warn("readdir failed", "path", path, "error", err)
		return
	}

	for _, entry := range entries {
		if !e.canContinue() {
			return
		}
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		child := filepath.Join(path, name)
		if runtime.GOOS == "windows" {
			child = strings.ToLower(child)
		}
		e.checker(child, dirIndex, mode, nil, report, scanID)
	}
}

// shouldIgnore applies the ignore-list, ignore-regex, and restrict-regex
// filters. Per spec.md §4.6 these apply to regular files only; symlinks
// pass through to the file pipeline unfiltered. The skip-filesystem
// check runs earlier in checker, ahead of the directory/file branch, so
// it also stops traversal from descending into a skipped mount.
func (e *Engine) shouldIgnore(path string, dir MonitoredDir, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}

	lower := strings.ToLower(path)
	for _, prefix := range e.ignorePrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}

	for _, re := range e.ignoreRegexes {
		if re != nil && re.MatchString(path) {
			return true
		}
	}

	if dir.Restrict != nil && !dir.Restrict.MatchString(path) {
		return true
	}

	return false
}
