package bookmark

import "time"

// EnsureRootMetadata fills metadata gaps across the tree, stamping now
// wherever LastModified is absent. Existing timestamps are never
// overwritten. A zero Version is lifted to CurrentVersion.
func EnsureRootMetadata(root *Root, now time.Time) *Root {
	out := root.Clone()
	if out == nil {
		return NewRoot(now)
	}
	if out.Version == 0 {
		out.Version = CurrentVersion
	}
	fillTimestamp(&out.Metadata, &now)
	for ci := range out.Categories {
		c := &out.Categories[ci]
		fillTimestamp(&c.Metadata, &now)
		for bi := range c.Bundles {
			b := &c.Bundles[bi]
			fillTimestamp(&b.Metadata, &now)
			for mi := range b.Bookmarks {
				fillTimestamp(&b.Bookmarks[mi].Metadata, &now)
			}
		}
	}
	return out
}

// EnsureRootMetadataWithoutTimestamp performs the same gap-filling but
// leaves absent timestamps absent, so nodes read from the remote never
// pretend to be newer than they provably are. Absent timestamps compare
// as infinitely old (see IsNewerThan).
func EnsureRootMetadataWithoutTimestamp(root *Root) *Root {
	out := root.Clone()
	if out == nil {
		return &Root{Version: CurrentVersion}
	}
	if out.Version == 0 {
		out.Version = CurrentVersion
	}
	return out
}

// UpdateAllLastSynced refreshes every node's in-memory LastSynced. The
// per-document value persisted in the local store is written separately
// by the sync shell.
func UpdateAllLastSynced(root *Root, t time.Time) *Root {
	out := root.Clone()
	if out == nil {
		return nil
	}
	set := func(m *Metadata) {
		ts := t
		m.LastSynced = &ts
	}
	set(&out.Metadata)
	for ci := range out.Categories {
		c := &out.Categories[ci]
		set(&c.Metadata)
		for bi := range c.Bundles {
			b := &c.Bundles[bi]
			set(&b.Metadata)
			for mi := range b.Bookmarks {
				set(&b.Bookmarks[mi].Metadata)
			}
		}
	}
	return out
}

// IsNewerThan reports whether a is strictly newer than b. A missing
// timestamp is infinitely old: it never wins, and anything present beats
// it.
func IsNewerThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// ModifiedSince reports whether the node changed strictly after the
// cutoff. A node without a timestamp counts as unchanged.
func ModifiedSince(m Metadata, cutoff *time.Time) bool {
	return IsNewerThan(m.LastModified, cutoff)
}

// IsTombstoned reports whether the node is soft-deleted and pending
// remote propagation.
func IsTombstoned(m Metadata) bool {
	return m.IsDeleted
}

func fillTimestamp(m *Metadata, now *time.Time) {
	if m.LastModified == nil {
		ts := *now
		m.LastModified = &ts
	}
}
