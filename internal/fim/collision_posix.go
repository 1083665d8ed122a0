//go:build !windows

package fim

import (
	"os"
	"syscall"
)

type identity struct {
	inode, dev uint64
}

func statIdentity(info os.FileInfo) (identity, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return identity{}, false
	}
	return identity{inode: uint64(st.Ino), dev: uint64(st.Dev)}, true
}

type collisionOutcome int

const (
	collisionResolved collisionOutcome = iota
	collisionAdded
	collisionError
)

// resolveCollision is InodeCollisionResolver (spec.md §4.5). The caller
// must hold entryMu on entry; resolveCollision releases it for the
// duration of the outer loop and re-acquires it before returning, so the
// caller's own unlock (deferred or explicit) remains balanced.
func (e *Engine) resolveCollision(inode, dev uint64) error {
	stack := make([]string, 0, 4)
	visited := make(map[string]struct{}, 4)
	e.store.AppendPathsFromInode(inode, dev, &stack, visited)

	e.entryMu.Unlock()
	defer e.entryMu.Lock()

	for len(stack) > 0 {
		path := stack[len(stack)-1]

		e.entryMu.Lock()
		outcome, ev := e.processFileFromDB(path, &stack, visited)
		e.entryMu.Unlock()

		switch outcome {
		case collisionResolved:
			stack = stack[:len(stack)-1]
		case collisionAdded:
			// Newly discovered paths were pushed above path; leave it
			// in place and let the stack's LIFO order resolve them
			// first.
		case collisionError:
			e.log.Error("collision resolution failed", "path", path)
			return Errorf(ErrCollisionUnresolvable, path, nil)
		}

		if ev != nil {
			e.emit(ev)
		}
	}

	return nil
}

// processFileFromDB is process_file_from_db (spec.md §4.5 step 3). The
// caller must hold entryMu.
func (e *Engine) processFileFromDB(path string, stack *[]string, visited map[string]struct{}) (collisionOutcome, *Event) {
	entry, ok := e.store.Get(path)
	if !ok {
		return collisionResolved, nil
	}

	idx := e.resolver.Resolve(path)
	if idx == NotConfigured {
		if err := e.store.Remove(path); err != nil && err != ErrNotFound {
			return collisionError, nil
		}
		return collisionResolved, nil
	}
	dir, _ := e.resolver.Dir(idx)

	info, statErr := e.statFunc(path)
	if statErr != nil {
		if !os.IsNotExist(statErr) {
			e.log.Warn("stat failed during collision resolution", "path", path, "error", statErr)
			return collisionError, nil
		}

		if dir.Options.Has(CheckSeeChanges) && e.diff != nil {
			e.diff.ProcessDelete(path)
		}
		if err := e.store.Remove(path); err != nil && err != ErrNotFound {
			return collisionError, nil
		}

		old := entry.Data
		ev := Build(BuildParams{
			Path:      path,
			OldData:   &old,
			Kind:      EventDeleted,
			Mode:      ModeScheduled,
			Tags:      dir.Tags,
			Timestamp: e.nowFunc().Unix(),
		})
		return collisionResolved, ev
	}

	id, ok := statIdentity(info)
	if !ok {
		return collisionError, nil
	}

	if id.inode == entry.Data.Inode && id.dev == entry.Data.Dev {
		return collisionResolved, e.processFile(path, ModeScheduled, idx, nil, true)
	}

	exists, err := e.store.DataExists(id.inode, id.dev)
	if err != nil {
		return collisionError, nil
	}
	if !exists {
		return collisionResolved, e.processFile(path, ModeScheduled, idx, nil, true)
	}

	if added := e.store.AppendPathsFromInode(id.inode, id.dev, stack, visited); added > 0 {
		return collisionAdded, nil
	}

	ev, err := e.forceUpdateFile(path, entry.Data, idx)
	if err != nil {
		e.log.Warn("forced update after saturated collision resolution", "path", path, "error", err)
		return collisionError, nil
	}
	return collisionResolved, ev
}
