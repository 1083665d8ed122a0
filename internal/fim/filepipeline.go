package fim

import (
	"errors"
)

// errNoChange signals that the store already holds an identical
// checksum for this path — fim_update_db_data's "no event" branch — as
// distinct from a genuine store failure.
var errNoChange = errors.New("fim: no attribute change")

// processFile runs the reconciliation pipeline for a single path,
// transcribed from create_db.c's _fim_file (spec.md §4.7). Callers must
// hold entryMu. w carries whodata provenance when mode == ModeWhodata.
// bypassScanned lets the collision resolver re-enter the pipeline for a
// path already marked scanned earlier in the same cycle.
func (e *Engine) processFile(path string, mode Mode, dirIndex int, w *WhodataEvt, bypassScanned bool) *Event {
	dir, ok := e.resolver.Dir(dirIndex)
	if !ok {
		e.log.Debug1("path no longer configured", "path", path)
		return nil
	}

	if mode == ModeScheduled && !bypassScanned {
		scanned, err := e.store.FileIsScanned(path)
		if err != nil {
			e.log.Error("store error checking scanned flag", "path", path, "error", err)
			return nil
		}
		if scanned {
			return nil
		}
	}

	info, statErr := e.statFunc(path)
	if statErr != nil {
		e.log.Warn("stat failed", "path", path, "error", statErr)
		return nil
	}

	newData, err := Extract(path, dir.Options, info, e.fileMaxSize, e.prefilterCmd)
	if err != nil {
		e.log.Warn("attribute extraction failed", "path", path, "error", err)
		return nil
	}
	newData.Mode = mode

	saved, err := e.updateStoreData(path, newData, mode)
	switch {
	case errors.Is(err, errNoChange):
		return nil
	case err != nil:
		e.log.Error("store update failed", "path", path, "error", err)
		return nil
	}

	kind := EventAdded
	if saved != nil {
		kind = EventModified
	}

	var diffText string
	if dir.Options.Has(CheckSeeChanges) && e.diff != nil {
		diffText, _ = e.diff.FileDiff(path)
	}

	var audit *Audit
	if w != nil {
		audit = &w.Audit
	}

	return Build(BuildParams{
		Path:      path,
		OldData:   saved,
		NewData:   &newData,
		Kind:      kind,
		Mode:      mode,
		Tags:      dir.Tags,
		Audit:     audit,
		Diff:      diffText,
		HardLinks: e.hardLinksExcluding(path, newData),
		Timestamp: newData.LastEvent,
	})
}

// updateStoreData is fim_update_db_data (spec.md §4.7 step 3). It
// returns the previously saved FileData (nil if this is a new entry),
// or errNoChange when the checksum is unchanged, or a wrapped store/
// collision error otherwise.
func (e *Engine) updateStoreData(path string, newData FileData, mode Mode) (*FileData, error) {
	entry, existed := e.store.Get(path)
	var saved *FileData
	if existed {
		d := entry.Data
		saved = &d
	}

	if mode != ModeScheduled {
		// Realtime/whodata rely on the watcher collaborator to have
		// already told us this path changed; skip collision resolution
		// and insert directly.
		if err := e.store.Insert(path, newData, saved); err != nil {
			return saved, Errorf(ErrStoreError, path, err)
		}
		return saved, nil
	}

	if !existed {
		if newData.Inode != 0 {
			exists, err := e.store.DataExists(newData.Inode, newData.Dev)
			if err != nil {
				return nil, Errorf(ErrStoreError, path, err)
			}
			if exists {
				if err := e.resolveCollision(newData.Inode, newData.Dev); err != nil {
					return nil, err
				}
			}
		}
		if err := e.store.Insert(path, newData, nil); err != nil {
			return nil, Errorf(ErrStoreError, path, err)
		}
		return nil, nil
	}

	if newData.Checksum == entry.Data.Checksum {
		e.store.SetScanned(path)
		return saved, errNoChange
	}

	sameIdentity := newData.Inode != 0 && entry.Data.Inode == newData.Inode && entry.Data.Dev == newData.Dev
	if sameIdentity {
		if err := e.store.Insert(path, newData, saved); err != nil {
			return nil, Errorf(ErrStoreError, path, err)
		}
		return saved, nil
	}

	if newData.Inode != 0 {
		exists, err := e.store.DataExists(newData.Inode, newData.Dev)
		if err != nil {
			return nil, Errorf(ErrStoreError, path, err)
		}
		if exists {
			if err := e.resolveCollision(newData.Inode, newData.Dev); err != nil {
				return nil, err
			}
		}
	}

	if err := e.store.Insert(path, newData, saved); err != nil {
		return nil, Errorf(ErrStoreError, path, err)
	}
	return saved, nil
}

// forceUpdateFile is _fim_file_force_update: an unconditional insert
// used only by the collision resolver once it has proven the visited
// set is saturated (spec.md §4.5 step 3, last bullet). It produces a
// modified event (or added, if saved has no checksum), accepting the
// known false-positive risk documented in spec.md §7's
// CollisionUnresolvable policy; when Build finds no attribute change it
// returns no event, though the store insert has still been made.
func (e *Engine) forceUpdateFile(path string, saved FileData, dirIndex int) (*Event, error) {
	dir, ok := e.resolver.Dir(dirIndex)
	if !ok {
		return nil, nil
	}

	info, statErr := e.statFunc(path)
	if statErr != nil {
		return nil, Errorf(ErrStatFailed, path, statErr)
	}

	newData, err := Extract(path, dir.Options, info, e.fileMaxSize, e.prefilterCmd)
	if err != nil {
		return nil, Errorf(ErrExtractFailed, path, err)
	}
	newData.Mode = ModeScheduled

	if err := e.store.Insert(path, newData, &saved); err != nil {
		return nil, Errorf(ErrStoreError, path, err)
	}

	kind := EventModified
	oldPtr := &saved
	if saved.Checksum == "" {
		kind = EventAdded
		oldPtr = nil
	}

	ev := Build(BuildParams{
		Path:      path,
		OldData:   oldPtr,
		NewData:   &newData,
		Kind:      kind,
		Mode:      ModeScheduled,
		Tags:      dir.Tags,
		HardLinks: e.hardLinksExcluding(path, newData),
		Timestamp: newData.LastEvent,
	})
	if ev == nil && kind == EventModified {
		// Build can legitimately suppress a modified event with no
		// attribute diff; force-update still performed the store
		// mutation the caller needed, so this is not an error.
		return nil, nil
	}
	return ev, nil
}

// hardLinksExcluding returns the other paths claiming d's (inode, dev),
// omitting path itself, or nil if fewer than two paths share the inode
// (spec.md §4.4).
func (e *Engine) hardLinksExcluding(path string, d FileData) []string {
	if d.Inode == 0 {
		return nil
	}
	paths := e.store.PathsFromInode(d.Inode, d.Dev)
	if len(paths) < 2 {
		return nil
	}
	out := make([]string, 0, len(paths)-1)
	for _, p := range paths {
		if p != path {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
