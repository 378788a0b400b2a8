package models

import (
	"strings"

	"github.com/google/uuid"
)

// RefreshChangeSet is everything one refresh of an entry writes. It is applied
// atomically so readers never observe a partially refreshed entry.
//
// A change set never carries the state users edit. Hidden flags, descriptor
// path overrides and the entry defaults are read again from the store when the
// change set is applied.
type RefreshChangeSet struct {
	EntryID uuid.UUID
	// DefaultVersion, when set, becomes the default version of the entry.
	DefaultVersion *string
	// Versions are inserted or updated by (entry_id, name).
	Versions []Version
	// InsertOnly fails the change set when one of Versions already exists.
	InsertOnly bool
	// SourceFiles replace the stored files of the version they belong to. Only
	// versions present as keys are touched.
	SourceFiles map[uuid.UUID][]SourceFile
	// StaleVersionIDs are deleted.
	StaleVersionIDs []uuid.UUID
	Events          []Event
}

func sameDescriptorPath(a, b string) bool {
	return "/"+strings.TrimPrefix(a, "/") == "/"+strings.TrimPrefix(b, "/")
}

// MergeRefreshed returns the row to store for a refreshed version given the
// stored row, which is nil for a new version. The hidden flag, the descriptor
// path override and the dirty bit always come from the stored row. The version
// is only synced if it was validated against its current effective path.
func MergeRefreshed(entry *Entry, stored *Version, refreshed Version) Version {
	if stored != nil {
		refreshed.VersionID = stored.VersionID
		refreshed.Hidden = stored.Hidden
		refreshed.DirtyBit = stored.DirtyBit
		refreshed.DescriptorPathOverride = stored.DescriptorPathOverride
		refreshed.CreatedAt = stored.CreatedAt
	} else {
		refreshed.Hidden = false
		refreshed.DirtyBit = false
		refreshed.DescriptorPathOverride = nil
	}
	refreshed.EntryID = entry.EntryID
	if refreshed.Synced && !sameDescriptorPath(refreshed.EffectiveDescriptorPath(entry), refreshed.DescriptorPath) {
		refreshed.Synced = false
	}
	return refreshed
}

// ApplyToEntry updates the attributes of entry a refresh owns once the
// versions of the change set are written. written holds the stored rows of the
// written versions, deleted the names of the removed ones. It reports whether
// entry changed.
func (cs *RefreshChangeSet) ApplyToEntry(entry *Entry, written []Version, deleted []string) bool {
	changed := false
	if cs.DefaultVersion != nil {
		name := *cs.DefaultVersion
		entry.DefaultVersion = &name
		changed = true
	}
	if entry.DefaultVersion == nil {
		return changed
	}
	for _, name := range deleted {
		if name == *entry.DefaultVersion {
			entry.DefaultVersion = nil
			return true
		}
	}
	for i := range written {
		v := &written[i]
		if v.Name != *entry.DefaultVersion {
			continue
		}
		if v.Hidden {
			entry.DefaultVersion = nil
			return true
		}
		entry.Author = v.Author
		entry.Email = v.Email
		entry.Description = v.Description
		return true
	}
	return changed
}
