package entrymanager

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// CreateHosted creates an entry whose files are edited through the service.
// It has no versions until the first edit.
func (m *Manager) CreateHosted(ctx context.Context, req *CreateHostedRequest) (*models.Entry, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	lang := parseLanguage(req.DescriptorLanguage)
	e := &models.Entry{
		EntryID:               uuid.New(),
		EntryType:             types.EntryType(req.EntryType),
		Mode:                  types.WorkflowModeHosted,
		SourceControl:         types.SourceControlDockstore,
		Organization:          req.Organization,
		Repository:            req.Name,
		DescriptorLanguage:    lang,
		DefaultDescriptorPath: defaultDescriptorPath(lang),
	}
	if err := m.create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// EditHosted applies the edited files on top of the latest version and stores
// the result as the next numbered version, which becomes the default. An edit
// that changes nothing is rejected.
func (m *Manager) EditHosted(ctx context.Context, entryID uuid.UUID, req *EditHostedRequest) (*models.Version, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !e.IsHosted() {
		return nil, ErrNotHosted.Msg("entry " + e.Path + " is not hosted")
	}
	versions, err := db.DB(ctx).ListVersions(ctx, entryID)
	if err != nil {
		return nil, err
	}

	latest, n := latestHosted(versions)
	files := make(map[string]string)
	fileTypes := make(map[string]types.FileType)
	if latest != nil {
		prior, err := db.DB(ctx).ListSourceFiles(ctx, latest.VersionID)
		if err != nil {
			return nil, err
		}
		for _, f := range prior {
			files[f.AbsolutePath] = f.Content
			fileTypes[f.AbsolutePath] = f.Type
		}
	}

	changed := false
	for _, f := range req.Files {
		old, exists := files[f.Path]
		switch {
		case !f.Content.Set:
			if !exists {
				return nil, ErrInvalidRequest.Msg("content of new file " + f.Path + " is missing")
			}
		case f.Content.IsNil():
			if exists {
				delete(files, f.Path)
				delete(fileTypes, f.Path)
				changed = true
			}
			continue
		default:
			if !exists || old != f.Content.Value {
				changed = true
			}
			files[f.Path] = f.Content.Value
		}
		if f.Type != "" {
			if fileTypes[f.Path] != f.Type {
				changed = true
			}
			fileTypes[f.Path] = f.Type
		}
	}
	if !changed {
		return nil, ErrNoChanges
	}

	name := strconv.Itoa(n + 1)
	v, sources, err := m.sync.BuildHostedVersion(ctx, e, name, files, fileTypes)
	if err != nil {
		return nil, err
	}
	// the new version must not exist yet, a concurrent edit may have taken its name
	cs := &models.RefreshChangeSet{
		EntryID:        entryID,
		DefaultVersion: &v.Name,
		Versions:       []models.Version{*v},
		InsertOnly:     true,
		SourceFiles:    map[uuid.UUID][]models.SourceFile{v.VersionID: sources},
		Events: []models.Event{{
			EventID:     uuid.New(),
			EntryID:     entryID,
			VersionName: &v.Name,
			Type:        types.EventTypeAddVersion,
		}},
	}
	if err := db.DB(ctx).SaveRefresh(ctx, cs); err != nil {
		if errors.Is(err, dberror.ErrAlreadyExists) {
			return nil, ErrConcurrentEdit.Msg("version " + name + " of " + e.Path + " was created by another edit")
		}
		return nil, ErrUnableToUpdate.Err(err)
	}
	log.Ctx(ctx).Info().Str("entry", e.Path).Str("version", name).Bool("valid", v.Valid).Msg("hosted version created")
	return &cs.Versions[0], nil
}

// latestHosted returns the highest numbered version and its number.
func latestHosted(versions []models.Version) (*models.Version, int) {
	var latest *models.Version
	n := 0
	for i := range versions {
		k, err := strconv.Atoi(versions[i].Name)
		if err != nil {
			continue
		}
		if k > n {
			n = k
			latest = &versions[i]
		}
	}
	return latest, n
}
