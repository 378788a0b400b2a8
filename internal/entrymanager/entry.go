// Package entrymanager implements the operations on tools and workflows:
// registration, refresh, publication, checker workflows and hosted entries.
package entrymanager

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/schemavalidator"
	"github.com/mugiliam/hatchdockstore/internal/versionsync"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// Manager holds the collaborators of the entry operations. The store is taken
// from the context of each call.
type Manager struct {
	connectors versionsync.Connectors
	sync       *versionsync.Synchronizer
	now        func() time.Time
}

func New(connectors versionsync.Connectors, sync *versionsync.Synchronizer) *Manager {
	return &Manager{connectors: connectors, sync: sync, now: time.Now}
}

// Detail is an entry with its versions.
type Detail struct {
	Entry    models.Entry
	Versions []models.Version
}

func (m *Manager) Register(ctx context.Context, req *RegisterRequest) (*models.Entry, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	sc, _ := types.ParseSourceControl(req.SourceControl)
	if sc == types.SourceControlDockstore {
		return nil, ErrInvalidRequest.Msg("entries on " + string(sc) + " are created as hosted entries")
	}
	e := &models.Entry{
		EntryID:                  uuid.New(),
		EntryType:                types.EntryType(req.EntryType),
		Mode:                     types.WorkflowModeFull,
		SourceControl:            sc,
		Organization:             req.Organization,
		Repository:               req.Repository,
		EntryName:                req.EntryName,
		DescriptorLanguage:       parseLanguage(req.DescriptorLanguage),
		DefaultDescriptorPath:    req.DescriptorPath,
		DefaultTestParameterPath: req.TestParameterPath,
		ImageRegistry:            req.ImageRegistry,
		ImageNamespace:           req.ImageNamespace,
		ImageName:                req.ImageName,
	}
	if err := m.create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *Manager) create(ctx context.Context, e *models.Entry) error {
	if e.Path == "" {
		e.Path = models.EntryPath(e.SourceControl, e.Organization, e.Repository, e.EntryName)
	}
	if err := db.DB(ctx).CreateEntry(ctx, e); err != nil {
		if errors.Is(err, dberror.ErrAlreadyExists) {
			return ErrAlreadyExists.Msg("entry " + e.Path + " already exists")
		}
		if errors.Is(err, dberror.ErrConstraintViolation) {
			return ErrConstraintViolation.Err(err)
		}
		log.Ctx(ctx).Error().Err(err).Str("entry", e.Path).Msg("failed to create entry")
		return err
	}
	m.event(ctx, e.EntryID, nil, types.EventTypeRegister)
	log.Ctx(ctx).Info().Str("entry", e.Path).Str("mode", string(e.Mode)).Msg("entry registered")
	return nil
}

func (m *Manager) entry(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	e, err := db.DB(ctx).GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) || errors.Is(err, dberror.ErrInvalidInput) {
			return nil, ErrEntryNotFound.Msg("entry " + entryID.String() + " not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to load entry")
		return nil, err
	}
	return e, nil
}

func (m *Manager) version(ctx context.Context, entryID uuid.UUID, name string) (*models.Version, error) {
	v, err := db.DB(ctx).GetVersion(ctx, entryID, name)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrVersionNotFound.Msg("version " + name + " not found")
		}
		return nil, err
	}
	return v, nil
}

func (m *Manager) Get(ctx context.Context, entryID uuid.UUID) (*Detail, error) {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	versions, err := db.DB(ctx).ListVersions(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return &Detail{Entry: *e, Versions: versions}, nil
}

func (m *Manager) List(ctx context.Context, sc types.SourceControl, organization string) ([]models.Entry, error) {
	return db.DB(ctx).ListEntries(ctx, sc, organization)
}

// Delete removes an unpublished entry with its versions and files.
func (m *Manager) Delete(ctx context.Context, entryID uuid.UUID) error {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return err
	}
	if e.IsPublished {
		return ErrPublishedEntry.Msg("entry " + e.Path + " is published, unpublish it first")
	}
	if err := db.DB(ctx).DeleteEntry(ctx, entryID); err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	log.Ctx(ctx).Info().Str("entry", e.Path).Msg("entry deleted")
	return nil
}

// UpdateDefaultDescriptorPath changes the default descriptor path. Every version
// without its own path override is marked out of sync so the next refresh
// validates it against the new path.
func (m *Manager) UpdateDefaultDescriptorPath(ctx context.Context, entryID uuid.UUID, path string) (int, error) {
	if !schemavalidator.ValidDescriptorPath(path) {
		return 0, ErrInvalidRequest.Msg("invalid descriptor path " + schemavalidator.InQuotes(path))
	}
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return 0, err
	}
	if e.DefaultDescriptorPath == path {
		return 0, nil
	}
	n, err := db.DB(ctx).UpdateDefaultDescriptorPath(ctx, entryID, path)
	if err != nil {
		return 0, ErrUnableToUpdate.Err(err)
	}
	log.Ctx(ctx).Info().Str("entry", e.Path).Str("path", path).Int("desynced", n).Msg("default descriptor path changed")
	return n, nil
}

func (m *Manager) ListEvents(ctx context.Context, entryID uuid.UUID) ([]models.Event, error) {
	if _, err := m.entry(ctx, entryID); err != nil {
		return nil, err
	}
	return db.DB(ctx).ListEvents(ctx, entryID)
}

// event records an event. Failing to record one does not fail the operation.
func (m *Manager) event(ctx context.Context, entryID uuid.UUID, version *string, t types.EventType) {
	ev := &models.Event{EventID: uuid.New(), EntryID: entryID, VersionName: version, Type: t}
	if err := db.DB(ctx).AddEvent(ctx, ev); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event", string(t)).Msg("failed to record event")
	}
}
