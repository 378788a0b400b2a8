// Package memdb is an in-memory entry and version store. It enforces the same
// uniqueness rules as the postgresql schema and is safe for concurrent use.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

type MemDB struct {
	mu       sync.RWMutex
	entries  map[uuid.UUID]models.Entry
	versions map[uuid.UUID]models.Version
	files    map[uuid.UUID][]models.SourceFile
	events   []models.Event
	now      func() time.Time
}

func New() *MemDB {
	return &MemDB{
		entries:  make(map[uuid.UUID]models.Entry),
		versions: make(map[uuid.UUID]models.Version),
		files:    make(map[uuid.UUID][]models.SourceFile),
		now:      time.Now,
	}
}

func (m *MemDB) Close(ctx context.Context) {}

func (m *MemDB) CreateEntry(ctx context.Context, entry *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.EntryID == uuid.Nil {
		entry.EntryID = uuid.New()
	}
	if entry.Path == "" {
		entry.Path = models.EntryPath(entry.SourceControl, entry.Organization, entry.Repository, entry.EntryName)
	}
	if entry.Mode == "" {
		entry.Mode = types.WorkflowModeFull
	}
	if !entry.EntryType.IsValid() {
		return dberror.ErrInvalidInput.Msg("invalid entry attributes")
	}
	for _, e := range m.entries {
		if e.Path == entry.Path {
			return dberror.ErrAlreadyExists.Msg("entry already exists")
		}
		if entry.CheckerID != nil && e.CheckerID != nil && *e.CheckerID == *entry.CheckerID {
			return dberror.ErrConstraintViolation.Msg("checker workflow is already assigned to another entry")
		}
	}
	if _, ok := m.entries[entry.EntryID]; ok {
		return dberror.ErrAlreadyExists.Msg("entry already exists")
	}
	now := m.now()
	entry.CreatedAt = now
	entry.LastUpdated = now
	m.entries[entry.EntryID] = copyEntry(*entry)
	return nil
}

func (m *MemDB) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	if entryID == uuid.Nil {
		return nil, dberror.ErrInvalidInput.Msg("entry_id cannot be empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("entry not found")
	}
	e = copyEntry(e)
	return &e, nil
}

func (m *MemDB) GetEntryByPath(ctx context.Context, path string) (*models.Entry, error) {
	if path == "" {
		return nil, dberror.ErrInvalidInput.Msg("path cannot be empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.Path == path {
			e = copyEntry(e)
			return &e, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("entry not found")
}

func (m *MemDB) ListEntries(ctx context.Context, sourceControl types.SourceControl, organization string) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []models.Entry
	for _, e := range m.entries {
		if e.SourceControl == sourceControl && e.Organization == organization {
			entries = append(entries, copyEntry(e))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *MemDB) UpdateEntry(ctx context.Context, entry *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateEntryLocked(entry)
}

func (m *MemDB) updateEntryLocked(entry *models.Entry) error {
	stored, ok := m.entries[entry.EntryID]
	if !ok {
		return dberror.ErrNotFound.Msg("entry not found for update")
	}
	stored.DefaultDescriptorPath = entry.DefaultDescriptorPath
	stored.DefaultTestParameterPath = entry.DefaultTestParameterPath
	stored.DefaultVersion = copyString(entry.DefaultVersion)
	stored.Author = entry.Author
	stored.Email = entry.Email
	stored.Description = entry.Description
	stored.ImageRegistry = entry.ImageRegistry
	stored.ImageNamespace = entry.ImageNamespace
	stored.ImageName = entry.ImageName
	stored.LastUpdated = m.now()
	entry.LastUpdated = stored.LastUpdated
	m.entries[entry.EntryID] = stored
	return nil
}

func (m *MemDB) UpdateDefaultDescriptorPath(ctx context.Context, entryID uuid.UUID, path string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[entryID]
	if !ok {
		return 0, dberror.ErrNotFound.Msg("entry not found for update")
	}
	now := m.now()
	stored.DefaultDescriptorPath = path
	stored.LastUpdated = now
	m.entries[entryID] = stored
	n := 0
	for id, v := range m.versions {
		if v.EntryID == entryID && !v.DirtyBit {
			v.Synced = false
			v.UpdatedAt = now
			m.versions[id] = v
			n++
		}
	}
	return n, nil
}

func (m *MemDB) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entryID]; !ok {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	delete(m.entries, entryID)
	for id, e := range m.entries {
		if e.CheckerID != nil && *e.CheckerID == entryID {
			e.CheckerID = nil
			m.entries[id] = e
		}
	}
	for id, v := range m.versions {
		if v.EntryID == entryID {
			delete(m.files, id)
			delete(m.versions, id)
		}
	}
	events := m.events[:0]
	for _, ev := range m.events {
		if ev.EntryID != entryID {
			events = append(events, ev)
		}
	}
	m.events = events
	return nil
}

func (m *MemDB) SetPublished(ctx context.Context, entryID uuid.UUID, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	e.IsPublished = published
	e.LastUpdated = m.now()
	m.entries[entryID] = e
	return nil
}

func (m *MemDB) CountPublished(ctx context.Context, entryType types.EntryType) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if e.IsPublished && e.EntryType == entryType {
			n++
		}
	}
	return n, nil
}

func (m *MemDB) SetChecker(ctx context.Context, entryID uuid.UUID, checkerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	if _, ok := m.entries[checkerID]; !ok {
		return dberror.ErrNotFound.Msg("checker entry not found")
	}
	for id, other := range m.entries {
		if id != entryID && other.CheckerID != nil && *other.CheckerID == checkerID {
			return dberror.ErrConstraintViolation.Msg("checker workflow is already assigned to another entry")
		}
	}
	e.CheckerID = &checkerID
	e.LastUpdated = m.now()
	m.entries[entryID] = e
	return nil
}

func (m *MemDB) CreateVersion(ctx context.Context, version *models.Version, files []models.SourceFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[version.EntryID]; !ok {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	if _, ok := m.versionByNameLocked(version.EntryID, version.Name); ok {
		return dberror.ErrAlreadyExists.Msg("version already exists")
	}
	if version.VersionID == uuid.Nil {
		version.VersionID = uuid.New()
	}
	now := m.now()
	version.CreatedAt = now
	version.UpdatedAt = now
	m.versions[version.VersionID] = copyVersion(*version)
	return m.replaceFilesLocked(version.VersionID, files)
}

func (m *MemDB) GetVersion(ctx context.Context, entryID uuid.UUID, name string) (*models.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versionByNameLocked(entryID, name)
	if !ok {
		return nil, dberror.ErrNotFound.Msg("version not found")
	}
	v = copyVersion(v)
	return &v, nil
}

func (m *MemDB) versionByNameLocked(entryID uuid.UUID, name string) (models.Version, bool) {
	for _, v := range m.versions {
		if v.EntryID == entryID && v.Name == name {
			return v, true
		}
	}
	return models.Version{}, false
}

func (m *MemDB) ListVersions(ctx context.Context, entryID uuid.UUID) ([]models.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var versions []models.Version
	for _, v := range m.versions {
		if v.EntryID == entryID {
			versions = append(versions, copyVersion(v))
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Name < versions[j].Name })
	return versions, nil
}

func (m *MemDB) UpdateVersion(ctx context.Context, version *models.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[version.VersionID]
	if !ok {
		return dberror.ErrNotFound.Msg("version not found for update")
	}
	v.Hidden = version.Hidden
	v.DescriptorPathOverride = copyString(version.DescriptorPathOverride)
	v.DirtyBit = version.DirtyBit
	v.Synced = version.Synced
	v.UpdatedAt = m.now()
	version.UpdatedAt = v.UpdatedAt
	m.versions[v.VersionID] = v
	return nil
}

func (m *MemDB) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.versions[versionID]; !ok {
		return dberror.ErrNotFound.Msg("version not found")
	}
	delete(m.versions, versionID)
	delete(m.files, versionID)
	return nil
}

func (m *MemDB) ListSourceFiles(ctx context.Context, versionID uuid.UUID) ([]models.SourceFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files := append([]models.SourceFile(nil), m.files[versionID]...)
	sort.Slice(files, func(i, j int) bool { return files[i].AbsolutePath < files[j].AbsolutePath })
	return files, nil
}

func (m *MemDB) replaceFilesLocked(versionID uuid.UUID, files []models.SourceFile) error {
	seen := make(map[string]bool, len(files))
	stored := make([]models.SourceFile, 0, len(files))
	now := m.now()
	for i := range files {
		f := &files[i]
		if seen[f.AbsolutePath] {
			return dberror.ErrAlreadyExists.Msg("duplicate source file path: " + f.AbsolutePath)
		}
		seen[f.AbsolutePath] = true
		if f.FileID == uuid.Nil {
			f.FileID = uuid.New()
		}
		f.VersionID = versionID
		f.CreatedAt = now
		stored = append(stored, *f)
	}
	m.files[versionID] = stored
	return nil
}

// SaveRefresh validates the whole change set before writing any of it so that
// a failure leaves the store untouched. User edited state is taken from the
// store, not from the change set.
func (m *MemDB) SaveRefresh(ctx context.Context, cs *models.RefreshChangeSet) error {
	if cs == nil || cs.EntryID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("change set must name an entry")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entryID := cs.EntryID
	entry, ok := m.entries[entryID]
	if !ok {
		return dberror.ErrNotFound.Msg("entry not found for update")
	}
	for _, files := range cs.SourceFiles {
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			if seen[f.AbsolutePath] {
				return dberror.ErrAlreadyExists.Msg("duplicate source file path: " + f.AbsolutePath)
			}
			seen[f.AbsolutePath] = true
		}
	}
	if cs.InsertOnly {
		for i := range cs.Versions {
			if _, ok := m.versionByNameLocked(entryID, cs.Versions[i].Name); ok {
				return dberror.ErrAlreadyExists.Msg("version already exists")
			}
		}
	}

	now := m.now()
	written := make([]models.Version, 0, len(cs.Versions))
	for i := range cs.Versions {
		proposed := cs.Versions[i].VersionID
		var stored *models.Version
		if existing, ok := m.versionByNameLocked(entryID, cs.Versions[i].Name); ok {
			stored = &existing
		}
		v := models.MergeRefreshed(&entry, stored, cs.Versions[i])
		if stored == nil {
			if v.VersionID == uuid.Nil {
				v.VersionID = uuid.New()
			}
			v.CreatedAt = now
		}
		v.UpdatedAt = now
		m.versions[v.VersionID] = copyVersion(v)
		if files, ok := cs.SourceFiles[proposed]; ok {
			if err := m.replaceFilesLocked(v.VersionID, files); err != nil {
				return err
			}
		}
		cs.Versions[i] = v
		written = append(written, v)
	}
	var deleted []string
	for _, id := range cs.StaleVersionIDs {
		if v, ok := m.versions[id]; ok && v.EntryID == entryID {
			deleted = append(deleted, v.Name)
			delete(m.versions, id)
			delete(m.files, id)
		}
	}
	if cs.ApplyToEntry(&entry, written, deleted) {
		entry.LastUpdated = now
		m.entries[entryID] = copyEntry(entry)
	}
	for i := range cs.Events {
		ev := &cs.Events[i]
		ev.EntryID = entryID
		if ev.EventID == uuid.Nil {
			ev.EventID = uuid.New()
		}
		ev.CreatedAt = now
		m.events = append(m.events, *ev)
	}
	return nil
}

func (m *MemDB) AddEvent(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[event.EntryID]; !ok {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	event.CreatedAt = m.now()
	m.events = append(m.events, *event)
	return nil
}

// ListEvents returns the events of an entry in insertion order.
func (m *MemDB) ListEvents(ctx context.Context, entryID uuid.UUID) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []models.Event
	for _, ev := range m.events {
		if ev.EntryID == entryID {
			events = append(events, ev)
		}
	}
	return events, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyEntry(e models.Entry) models.Entry {
	e.DefaultVersion = copyString(e.DefaultVersion)
	if e.CheckerID != nil {
		id := *e.CheckerID
		e.CheckerID = &id
	}
	return e
}

func copyVersion(v models.Version) models.Version {
	v.CommitID = copyString(v.CommitID)
	v.DescriptorPathOverride = copyString(v.DescriptorPathOverride)
	v.TestParameterPaths = append([]string(nil), v.TestParameterPaths...)
	if v.LastModified != nil {
		t := *v.LastModified
		v.LastModified = &t
	}
	if v.PublicAccessibleTestParameterFile != nil {
		b := *v.PublicAccessibleTestParameterFile
		v.PublicAccessibleTestParameterFile = &b
	}
	if v.ImageMetadata != nil {
		md := *v.ImageMetadata
		md.Checksums = append([]models.Checksum(nil), md.Checksums...)
		v.ImageMetadata = &md
	}
	return v
}
