package entrymanager

import (
	"context"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/schemavalidator"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// SetDefaultVersion makes name the default version. A hidden version cannot be
// the default.
func (m *Manager) SetDefaultVersion(ctx context.Context, entryID uuid.UUID, name string) (*models.Entry, error) {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	v, err := m.version(ctx, entryID, name)
	if err != nil {
		return nil, err
	}
	if v.Hidden {
		return nil, ErrHiddenDefaultVersion.Msg("version " + name + " is hidden and cannot be the default version")
	}
	e.DefaultVersion = &v.Name
	e.Author = v.Author
	e.Email = v.Email
	e.Description = v.Description
	if err := db.DB(ctx).UpdateEntry(ctx, e); err != nil {
		return nil, ErrUnableToUpdate.Err(err)
	}
	m.event(ctx, entryID, &v.Name, types.EventTypeDefaultChange)
	return e, nil
}

// SetVersionHidden hides or shows a version. The default version cannot be hidden.
func (m *Manager) SetVersionHidden(ctx context.Context, entryID uuid.UUID, name string, hidden bool) (*models.Version, error) {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	v, err := m.version(ctx, entryID, name)
	if err != nil {
		return nil, err
	}
	if hidden && e.DefaultVersion != nil && *e.DefaultVersion == name {
		return nil, ErrHiddenDefaultVersion.Msg("version " + name + " is the default version and cannot be hidden")
	}
	if v.Hidden == hidden {
		return v, nil
	}
	v.Hidden = hidden
	if err := db.DB(ctx).UpdateVersion(ctx, v); err != nil {
		return nil, ErrUnableToUpdate.Err(err)
	}
	return v, nil
}

// UpdateVersionDescriptorPath overrides the descriptor path of one version and
// marks only that version out of sync. Setting the entry default path again
// removes the override.
func (m *Manager) UpdateVersionDescriptorPath(ctx context.Context, entryID uuid.UUID, name, path string) (*models.Version, error) {
	if !schemavalidator.ValidDescriptorPath(path) {
		return nil, ErrInvalidRequest.Msg("invalid descriptor path " + schemavalidator.InQuotes(path))
	}
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.IsHosted() {
		return nil, ErrInvalidRequest.Msg("hosted versions cannot change their descriptor path")
	}
	v, err := m.version(ctx, entryID, name)
	if err != nil {
		return nil, err
	}
	if v.EffectiveDescriptorPath(e) == path {
		return v, nil
	}
	if path == e.DefaultDescriptorPath {
		v.DescriptorPathOverride = nil
		v.DirtyBit = false
	} else {
		p := path
		v.DescriptorPathOverride = &p
		v.DirtyBit = true
	}
	v.Synced = false
	if err := db.DB(ctx).UpdateVersion(ctx, v); err != nil {
		return nil, ErrUnableToUpdate.Err(err)
	}
	log.Ctx(ctx).Info().Str("entry", e.Path).Str("version", name).Str("path", path).Msg("version descriptor path changed")
	return v, nil
}
