package fim

// BuildParams is the input to Build (spec.md §4.4): a path, the old and
// new attribute sets (one or both may be nil depending on Kind), the
// event's classification and mode, and optional context attached by the
// caller (tags from the resolved MonitoredDir, whodata audit info, a
// textual diff, and the other paths sharing this entry's inode).
type BuildParams struct {
	Path      string
	OldData   *FileData
	NewData   *FileData
	Kind      EventKind
	Mode      Mode
	Tags      string
	Audit     *Audit
	Diff      string
	HardLinks []string // other paths sharing (inode, dev), excluding Path
	Timestamp int64
	ScanID    string
}

// Build produces an Event from params, or nil when a modified event's
// diff set is empty (invariant I6 / no-diff suppression).
func Build(p BuildParams) *Event {
	var changed []string
	if p.Kind == EventModified {
		if p.OldData == nil || p.NewData == nil {
			return nil
		}
		changed = compareAttrs(*p.OldData, *p.NewData)
		if len(changed) == 0 {
			return nil
		}
	}

	ev := &Event{
		Kind:        p.Kind,
		Mode:        p.Mode,
		Timestamp:   p.Timestamp,
		Path:        p.Path,
		Tags:        p.Tags,
		ContentDiff: p.Diff,
		ScanID:      p.ScanID,
	}

	switch p.Kind {
	case EventAdded:
		if p.NewData == nil {
			return nil
		}
		ev.NewAttributes = toAttributes(*p.NewData)
	case EventDeleted:
		if p.OldData == nil {
			return nil
		}
		// The wire shape's "attributes" field always reflects the last
		// known state; for a deletion that is old_data, and there is no
		// "old_attributes" key (that appears only on modified events).
		ev.NewAttributes = toAttributes(*p.OldData)
	case EventModified:
		ev.NewAttributes = toAttributes(*p.NewData)
		ev.OldAttributes = toAttributes(*p.OldData)
		ev.ChangedAttributes = changed
	}

	if len(p.HardLinks) > 0 {
		ev.HardLinks = p.HardLinks
	}

	if p.Audit != nil {
		ev.Audit = toAuditJSON(*p.Audit)
	}

	return ev
}

// compareAttrs yields the changed-attribute names for a modified event,
// each gated by the option bit that governs the corresponding field
// (spec.md §4.4, transcribed from fim_json_compare_attrs).
func compareAttrs(oldData, newData FileData) []string {
	var changed []string

	if oldData.Options.Has(CheckSize) && oldData.Size != newData.Size {
		changed = append(changed, "size")
	}
	if oldData.Options.Has(CheckPerm) && oldData.Perm != newData.Perm {
		changed = append(changed, "permission")
	}
	if oldData.Options.Has(CheckAttrs) && oldData.Attributes != newData.Attributes {
		changed = append(changed, "attributes")
	}
	if oldData.Options.Has(CheckOwner) {
		if oldData.UID != "" && newData.UID != "" && oldData.UID != newData.UID {
			changed = append(changed, "uid")
		}
		if oldData.UserName != "" && newData.UserName != "" && oldData.UserName != newData.UserName {
			changed = append(changed, "user_name")
		}
	}
	if oldData.Options.Has(CheckGroup) {
		if oldData.GID != "" && newData.GID != "" && oldData.GID != newData.GID {
			changed = append(changed, "gid")
		}
		if oldData.GroupName != "" && newData.GroupName != "" && oldData.GroupName != newData.GroupName {
			changed = append(changed, "group_name")
		}
	}
	if oldData.Options.Has(CheckMtime) && oldData.Mtime != newData.Mtime {
		changed = append(changed, "mtime")
	}
	if oldData.Options.Has(CheckInode) && oldData.Inode != newData.Inode {
		changed = append(changed, "inode")
	}
	if oldData.Options.Has(CheckMD5) && oldData.HashMD5 != newData.HashMD5 {
		changed = append(changed, "md5")
	}
	if oldData.Options.Has(CheckSHA1) && oldData.HashSHA1 != newData.HashSHA1 {
		changed = append(changed, "sha1")
	}
	if oldData.Options.Has(CheckSHA256) && oldData.HashSHA256 != newData.HashSHA256 {
		changed = append(changed, "sha256")
	}

	return changed
}

func toAttributes(d FileData) *Attributes {
	a := &Attributes{Type: "file"}

	if d.Options.Has(CheckSize) {
		v := d.Size
		a.Size = &v
	}
	if d.Options.Has(CheckPerm) {
		a.Perm = d.Perm
	}
	if d.Options.Has(CheckAttrs) {
		a.Attributes = d.Attributes
	}
	if d.Options.Has(CheckOwner) {
		a.UID = d.UID
	}
	if d.Options.Has(CheckGroup) {
		a.GID = d.GID
	}
	if d.UserName != "" {
		a.UserName = d.UserName
	}
	if d.GroupName != "" {
		a.GroupName = d.GroupName
	}
	if d.Options.Has(CheckInode) {
		v := d.Inode
		a.Inode = &v
	}
	if d.Options.Has(CheckMtime) {
		v := d.Mtime
		a.Mtime = &v
	}
	if d.Options.Has(CheckMD5) {
		a.HashMD5 = d.HashMD5
	}
	if d.Options.Has(CheckSHA1) {
		a.HashSHA1 = d.HashSHA1
	}
	if d.Options.Has(CheckSHA256) {
		a.HashSHA256 = d.HashSHA256
	}
	if d.Checksum != "" {
		a.Checksum = d.Checksum
	}

	return a
}

func toAuditJSON(a Audit) *AuditJSON {
	return &AuditJSON{
		UserID:        a.UserID,
		UserName:      a.UserName,
		ProcessName:   a.ProcessName,
		ProcessID:     a.ProcessID,
		CWD:           a.CWD,
		GroupID:       a.GroupID,
		GroupName:     a.GroupName,
		AuditUID:      a.AuditUID,
		AuditName:     a.AuditName,
		EffectiveUID:  a.EffectiveUID,
		EffectiveName: a.EffectiveName,
		ParentName:    a.ParentName,
		ParentCWD:     a.ParentCWD,
		PPID:          a.PPID,
	}
}

// Envelope renders ev in the stable wire shape of spec.md §6.
func (ev *Event) Envelope() EventEnvelope {
	return EventEnvelope{
		Type: "event",
		Data: EventData{
			Path:              ev.Path,
			Version:           2.0,
			Mode:              ev.Mode.String(),
			Type:              ev.Kind.String(),
			Timestamp:         ev.Timestamp,
			HardLinks:         ev.HardLinks,
			Attributes:        ev.NewAttributes,
			ChangedAttributes: ev.ChangedAttributes,
			OldAttributes:     ev.OldAttributes,
			Audit:             ev.Audit,
			ContentChanges:    ev.ContentDiff,
			Tags:              ev.Tags,
			ScanID:            ev.ScanID,
		},
	}
}
