package fim

import "testing"

func TestBuildNoDiffSuppression(t *testing.T) {
	data := FileData{Size: 10, Options: CheckSize}
	ev := Build(BuildParams{
		Path:    "/a",
		Kind:    EventModified,
		OldData: &data,
		NewData: &data,
	})
	if ev != nil {
		t.Errorf("expected nil event when nothing changed, got %+v", ev)
	}
}

func TestBuildAddedEvent(t *testing.T) {
	data := FileData{Size: 10, Options: CheckSize}
	ev := Build(BuildParams{
		Path:    "/a",
		Kind:    EventAdded,
		NewData: &data,
	})
	if ev == nil {
		t.Fatal("expected a non-nil added event")
	}
	if ev.Kind != EventAdded {
		t.Errorf("Kind = %v, want EventAdded", ev.Kind)
	}
	if ev.NewAttributes == nil || *ev.NewAttributes.Size != 10 {
		t.Errorf("expected new attributes size 10, got %+v", ev.NewAttributes)
	}
}

func TestBuildModifiedEventListsChangedAttributes(t *testing.T) {
	oldData := FileData{Size: 10, Options: CheckSize | CheckMD5, HashMD5: "aaa"}
	newData := FileData{Size: 20, Options: CheckSize | CheckMD5, HashMD5: "bbb"}

	ev := Build(BuildParams{
		Path:    "/a",
		Kind:    EventModified,
		OldData: &oldData,
		NewData: &newData,
	})
	if ev == nil {
		t.Fatal("expected a non-nil modified event")
	}

	want := map[string]bool{"size": true, "md5": true}
	if len(ev.ChangedAttributes) != len(want) {
		t.Fatalf("ChangedAttributes = %v, want keys of %v", ev.ChangedAttributes, want)
	}
	for _, a := range ev.ChangedAttributes {
		if !want[a] {
			t.Errorf("unexpected changed attribute %q", a)
		}
	}
}

func TestBuildDeletedEventUsesOldAttributes(t *testing.T) {
	oldData := FileData{Size: 5, Options: CheckSize}
	ev := Build(BuildParams{
		Path:    "/a",
		Kind:    EventDeleted,
		OldData: &oldData,
	})
	if ev == nil {
		t.Fatal("expected a non-nil deleted event")
	}
	if ev.NewAttributes == nil || *ev.NewAttributes.Size != 5 {
		t.Errorf("expected deleted event's attributes to reflect old data, got %+v", ev.NewAttributes)
	}
	if ev.OldAttributes != nil {
		t.Error("expected no old_attributes key on a deletion event")
	}
}

func TestBuildCarriesHardLinksAndAudit(t *testing.T) {
	newData := FileData{Size: 1, Options: CheckSize}
	audit := Audit{UserName: "root", ProcessName: "cp"}

	ev := Build(BuildParams{
		Path:      "/a",
		Kind:      EventAdded,
		NewData:   &newData,
		HardLinks: []string{"/b", "/c"},
		Audit:     &audit,
	})
	if ev == nil {
		t.Fatal("expected a non-nil event")
	}
	if len(ev.HardLinks) != 2 {
		t.Errorf("HardLinks = %v, want 2 entries", ev.HardLinks)
	}
	if ev.Audit == nil || ev.Audit.UserName != "root" {
		t.Errorf("expected audit to be carried through, got %+v", ev.Audit)
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	newData := FileData{Size: 1, Options: CheckSize}
	ev := Build(BuildParams{Path: "/a", Kind: EventAdded, NewData: &newData, Timestamp: 100})
	env := ev.Envelope()

	if env.Type != "event" {
		t.Errorf("Type = %q, want %q", env.Type, "event")
	}
	if env.Data.Path != "/a" || env.Data.Type != "added" || env.Data.Mode != "scheduled" {
		t.Errorf("unexpected envelope data: %+v", env.Data)
	}
	if env.Data.Version != 2.0 {
		t.Errorf("Version = %v, want 2.0", env.Data.Version)
	}
}
