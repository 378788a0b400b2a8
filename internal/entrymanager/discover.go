package entrymanager

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/dockstoreyml"
	"github.com/mugiliam/hatchdockstore/internal/schemavalidator"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

type DiscoverRequest struct {
	SourceControl string `json:"source_control" validate:"required,sourceControlValidator"`
	Organization  string `json:"organization" validate:"required,nameFormatValidator"`
	Repository    string `json:"repository" validate:"required,nameFormatValidator"`
	Reference     string `json:"reference" validate:"required,noSpacesValidator"`
}

// DiscoverEntries registers or updates the entries a repository declares in its
// .dockstore.yml at ref and refreshes ref on each of them.
func (m *Manager) DiscoverEntries(ctx context.Context, req *DiscoverRequest) ([]models.Entry, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	sc, _ := types.ParseSourceControl(req.SourceControl)
	if sc == types.SourceControlDockstore {
		return nil, ErrInvalidRequest.Msg("hosted entries have no .dockstore.yml")
	}
	conn, err := m.connectors.Connector(sc)
	if err != nil {
		return nil, err
	}
	repo := scm.RepoCoordinate{SourceControl: sc, Organization: req.Organization, Repository: req.Repository}

	refs, err := conn.ListReferences(ctx, repo)
	if err != nil {
		return nil, err
	}
	var ref *scm.Reference
	for i := range refs {
		if refs[i].Name == req.Reference {
			ref = &refs[i]
			break
		}
	}
	if ref == nil {
		return nil, ErrVersionNotFound.Msg("reference " + req.Reference + " not found in " + repo.String())
	}

	content, err := conn.ReadFile(ctx, repo, dockstoreyml.Path, ref.Name)
	if err != nil {
		if errors.Is(err, scm.ErrFileNotFound) {
			return nil, dockstoreyml.ErrInvalidDockstoreYml.Msg(repo.String() + " has no " + dockstoreyml.Path + " at " + ref.Name)
		}
		return nil, err
	}
	file, err := dockstoreyml.Parse(content)
	if err != nil {
		return nil, err
	}

	var discovered []models.Entry
	for _, de := range file.Entries() {
		e, err := m.upsertDiscovered(ctx, repo, de)
		if err != nil {
			return discovered, err
		}
		if de.Filters.Accepts(ref.Name, ref.Type) {
			if err := m.refreshEntry(ctx, e, ref.Name, false); err != nil {
				return discovered, err
			}
			if ref.Type == types.ReferenceTypeTag && de.LatestTagAsDefault {
				if _, err := m.SetDefaultVersion(ctx, e.EntryID, ref.Name); err != nil {
					log.Ctx(ctx).Warn().Err(err).Str("entry", e.Path).Msg("latest tag not made default")
				}
			}
			if de.Publish {
				if _, err := m.Publish(ctx, e.EntryID); err != nil {
					log.Ctx(ctx).Warn().Err(err).Str("entry", e.Path).Msg("discovered entry not published")
				}
			}
		} else {
			log.Ctx(ctx).Debug().Str("entry", e.Path).Str("ref", ref.Name).Msg("reference filtered out")
		}
		current, err := m.entry(ctx, e.EntryID)
		if err != nil {
			return discovered, err
		}
		discovered = append(discovered, *current)
	}
	return discovered, nil
}

// upsertDiscovered creates the entry of a .dockstore.yml declaration or brings
// an existing one under .dockstore.yml control.
func (m *Manager) upsertDiscovered(ctx context.Context, repo scm.RepoCoordinate, de dockstoreyml.Entry) (*models.Entry, error) {
	if de.Name != "" && schemavalidator.V().Var(de.Name, "nameFormatValidator") != nil {
		return nil, dockstoreyml.ErrInvalidDockstoreYml.Msg("invalid entry name " + schemavalidator.InQuotes(de.Name))
	}
	testParam := ""
	if len(de.TestParameterFiles) > 0 {
		testParam = de.TestParameterFiles[0]
	}
	path := models.EntryPath(repo.SourceControl, repo.Organization, repo.Repository, de.Name)
	e, err := db.DB(ctx).GetEntryByPath(ctx, path)
	if err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return nil, err
	}
	if e == nil {
		e = &models.Entry{
			EntryID:                  uuid.New(),
			EntryType:                de.EntryType,
			Mode:                     types.WorkflowModeDockstoreYml,
			SourceControl:            repo.SourceControl,
			Organization:             repo.Organization,
			Repository:               repo.Repository,
			EntryName:                de.Name,
			Path:                     path,
			DescriptorLanguage:       de.Language,
			DefaultDescriptorPath:    de.PrimaryDescriptorPath,
			DefaultTestParameterPath: testParam,
		}
		applyAuthors(e, de.Authors)
		if err := m.create(ctx, e); err != nil {
			return nil, err
		}
		return e, nil
	}
	if e.EntryType != de.EntryType || e.DescriptorLanguage != de.Language {
		return nil, ErrConstraintViolation.Msg("entry " + path + " exists with a different type or language")
	}
	if e.DefaultDescriptorPath != de.PrimaryDescriptorPath {
		if _, err := db.DB(ctx).UpdateDefaultDescriptorPath(ctx, e.EntryID, de.PrimaryDescriptorPath); err != nil {
			return nil, ErrUnableToUpdate.Err(err)
		}
		e.DefaultDescriptorPath = de.PrimaryDescriptorPath
	}
	e.Mode = types.WorkflowModeDockstoreYml
	e.DefaultTestParameterPath = testParam
	applyAuthors(e, de.Authors)
	if err := db.DB(ctx).UpdateEntry(ctx, e); err != nil {
		return nil, ErrUnableToUpdate.Err(err)
	}
	return e, nil
}

// applyAuthors takes the first declared author. Metadata from the default
// version replaces it on the next refresh of that version.
func applyAuthors(e *models.Entry, authors []dockstoreyml.Author) {
	if len(authors) == 0 {
		return
	}
	e.Author = authors[0].Name
	e.Email = authors[0].Email
}
