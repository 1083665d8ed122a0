package fim

import "time"

// HandleRealtimeEvent is the realtime entry point (fim_realtime_event):
// the realtime watcher collaborator calls this once per path it
// observed changing. It reenters the same reconciliation pipeline
// scheduled scans use, under the entry mutex, giving total per-path
// ordering regardless of which mode produced the observation.
func (e *Engine) HandleRealtimeEvent(path string) {
	e.delayForSettle()

	idx := e.resolver.Resolve(path)
	if idx == NotConfigured {
		e.log.Debug2("realtime event for unconfigured path ignored", "path", path)
		return
	}
	e.checker(path, idx, ModeRealtime, nil, true, "")
}

// HandleWhodataEvent is the whodata entry point (fim_whodata_event),
// carrying the provenance of the change alongside its path.
func (e *Engine) HandleWhodataEvent(evt WhodataEvt) {
	e.delayForSettle()

	idx := e.resolver.Resolve(evt.Path)
	if idx == NotConfigured {
		e.log.Debug2("whodata event for unconfigured path ignored", "path", evt.Path)
		return
	}
	e.checker(evt.Path, idx, ModeWhodata, &evt, true, "")
}

// delayForSettle sleeps rtDelay before the caller stats the path,
// giving editor write-replace sequences (write to temp, rename over
// original) time to settle before the engine observes an intermediate
// state (spec.md §5).
func (e *Engine) delayForSettle() {
	if e.rtDelay > 0 {
		time.Sleep(e.rtDelay)
	}
}

// deleteFileEvent is fim_delete_file_event (spec.md §4.8). path must
// already be known absent from disk; mode/whodata describe the trigger,
// sendAlert controls whether a deletion event is actually built (the
// scan's quiet refill pass wants the store mutation without the alert).
func (e *Engine) deleteFileEvent(path string, mode Mode, w *WhodataEvt, sendAlert bool) {
	idx := e.resolver.Resolve(path)
	if idx == NotConfigured {
		e.log.Debug1("deletion for unconfigured path ignored", "path", path)
		return
	}
	dir, _ := e.resolver.Dir(idx)

	if mode == ModeRealtime && !dir.RealtimeActive {
		return
	}
	if mode == ModeWhodata && !dir.WhodataActive {
		return
	}

	if dir.Options.Has(CheckSeeChanges) && e.diff != nil {
		e.diff.ProcessDelete(path)
	}

	e.entryMu.Lock()
	entry, existed := e.store.Get(path)
	if !existed {
		e.entryMu.Unlock()
		return
	}

	if err := e.store.Remove(path); err != nil {
		e.entryMu.Unlock()
		e.log.Error("failed to remove deleted path from store", "path", path, "error", err)
		return
	}

	var ev *Event
	if sendAlert {
		var audit *Audit
		if w != nil {
			audit = &w.Audit
		}
		ev = Build(BuildParams{
			Path:      path,
			OldData:   &entry.Data,
			Kind:      EventDeleted,
			Mode:      mode,
			Tags:      dir.Tags,
			Audit:     audit,
			Timestamp: e.nowFunc().Unix(),
		})
	}
	e.entryMu.Unlock()

	e.emit(ev)
}
