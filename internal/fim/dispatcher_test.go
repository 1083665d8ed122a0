package fim

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHandleRealtimeEventReportsAddedFile(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTransport{}
	e := NewEngine(Config{
		Store: NewMemoryStore(0),
		Dirs: []MonitoredDir{
			{Path: dir, Options: testCheckOpts, RecursionLevel: 10, RealtimeActive: true},
		},
		Transport: tr,
	})
	e.Scan() // establish baseline over the empty directory

	path := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	e.HandleRealtimeEvent(path)

	events := tr.eventsSnapshot()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}
	if events[0].Data.Mode != "realtime" || events[0].Data.Type != "added" {
		t.Errorf("unexpected event: %+v", events[0].Data)
	}
}

func TestHandleRealtimeEventIgnoresUnconfiguredPath(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTransport{}
	e := newTestEngine(t, dir, tr)
	e.Scan()

	e.HandleRealtimeEvent("/not/a/monitored/path")

	if got := tr.eventsSnapshot(); len(got) != 0 {
		t.Fatalf("expected no events for an unconfigured path, got %d", len(got))
	}
}

func TestHandleWhodataEventCarriesAudit(t *testing.T) {
	dir := t.TempDir()
	tr := &fakeTransport{}
	e := NewEngine(Config{
		Store: NewMemoryStore(0),
		Dirs: []MonitoredDir{
			{Path: dir, Options: testCheckOpts, RecursionLevel: 10, WhodataActive: true},
		},
		Transport: tr,
	})
	e.Scan()

	path := filepath.Join(dir, "audited.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	e.HandleWhodataEvent(WhodataEvt{Path: path, Audit: Audit{UserName: "root", ProcessName: "vi"}})

	events := tr.eventsSnapshot()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}
	if events[0].Data.Mode != "whodata" {
		t.Errorf("Mode = %q, want %q", events[0].Data.Mode, "whodata")
	}
	if events[0].Data.Audit == nil || events[0].Data.Audit.UserName != "root" {
		t.Errorf("expected audit to be carried through, got %+v", events[0].Data.Audit)
	}
}

func TestHandleRealtimeEventFansOutDirectoryDeletion(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	tr := &fakeTransport{}
	e := NewEngine(Config{
		Store: NewMemoryStore(0),
		Dirs: []MonitoredDir{
			{Path: dir, Options: testCheckOpts, RecursionLevel: 10, RealtimeActive: true},
		},
		Transport: tr,
	})
	e.Scan() // baseline: sub/a.txt and sub/b.txt are now tracked rows

	if err := os.RemoveAll(sub); err != nil {
		t.Fatalf("remove sub: %v", err)
	}

	// The watcher observed the directory itself vanish, not its (already
	// gone) children — checker must fan that out into one deletion per
	// descendant still sitting in the store.
	e.HandleRealtimeEvent(sub)

	events := tr.eventsSnapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 deletion events for the directory's descendants, got %d: %+v", len(events), events)
	}
	seen := map[string]bool{}
	for _, ev := range events {
		if ev.Data.Type != "deleted" {
			t.Errorf("unexpected event type %q for %q", ev.Data.Type, ev.Data.Path)
		}
		seen[ev.Data.Path] = true
	}
	if !seen[filepath.Join(sub, "a.txt")] || !seen[filepath.Join(sub, "b.txt")] {
		t.Errorf("expected deletions for both descendants, got %+v", events)
	}
	if _, ok := e.store.Get(filepath.Join(sub, "a.txt")); ok {
		t.Error("expected descendant to be removed from the store")
	}
}

func TestDeleteFileEventDropsAlertForInactiveMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tr := &fakeTransport{}
	e := NewEngine(Config{
		Store: NewMemoryStore(0),
		Dirs: []MonitoredDir{
			{Path: dir, Options: testCheckOpts, RecursionLevel: 10}, // realtime not active
		},
		Transport: tr,
	})
	e.Scan()

	e.deleteFileEvent(path, ModeRealtime, nil, true)

	if got := tr.eventsSnapshot(); len(got) != 0 {
		t.Fatalf("expected no event for a mode not active on this directory, got %d", len(got))
	}
	// The store mutation should not have happened either, since the
	// deletion was rejected before reaching entryMu.
	if _, ok := e.store.Get(path); !ok {
		t.Error("expected the store entry to remain untouched")
	}
}
