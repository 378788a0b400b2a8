package entrymanager

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// AddCheckerWorkflow creates a checker workflow in the repository of the entry
// and links it. The checker is named after the entry and its language.
func (m *Manager) AddCheckerWorkflow(ctx context.Context, entryID uuid.UUID, req *AddCheckerRequest) (*models.Entry, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.IsChecker {
		return nil, ErrInvalidChecker.Msg("a checker workflow cannot have a checker")
	}
	if e.CheckerID != nil {
		return nil, ErrInvalidChecker.Msg("entry " + e.Path + " already has a checker workflow")
	}
	lang := e.DescriptorLanguage
	if req.DescriptorLanguage != "" {
		lang = parseLanguage(req.DescriptorLanguage)
	}
	name := e.EntryName
	if name == "" {
		name = e.Repository
	}
	checker := &models.Entry{
		EntryID:                  uuid.New(),
		EntryType:                types.EntryTypeWorkflow,
		Mode:                     e.Mode,
		SourceControl:            e.SourceControl,
		Organization:             e.Organization,
		Repository:               e.Repository,
		EntryName:                checkerName(name, lang),
		DescriptorLanguage:       lang,
		DefaultDescriptorPath:    req.DescriptorPath,
		DefaultTestParameterPath: req.TestParameterPath,
		IsChecker:                true,
	}
	if err := m.create(ctx, checker); err != nil {
		return nil, err
	}
	if err := m.link(ctx, e, checker.EntryID); err != nil {
		if derr := db.DB(ctx).DeleteEntry(ctx, checker.EntryID); derr != nil {
			log.Ctx(ctx).Error().Err(derr).Str("entry", checker.Path).Msg("failed to remove unlinked checker")
		}
		return nil, err
	}
	return checker, nil
}

// AssignChecker links an existing checker workflow. A checker already linked to
// another entry is rejected and the prior link stays in place.
func (m *Manager) AssignChecker(ctx context.Context, entryID, checkerID uuid.UUID) (*models.Entry, error) {
	if entryID == checkerID {
		return nil, ErrInvalidChecker.Msg("an entry cannot be its own checker")
	}
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	checker, err := m.entry(ctx, checkerID)
	if err != nil {
		return nil, err
	}
	if !checker.IsChecker {
		return nil, ErrInvalidChecker.Msg("entry " + checker.Path + " is not a checker workflow")
	}
	if err := m.link(ctx, e, checkerID); err != nil {
		return nil, err
	}
	return m.entry(ctx, entryID)
}

func (m *Manager) link(ctx context.Context, e *models.Entry, checkerID uuid.UUID) error {
	if err := db.DB(ctx).SetChecker(ctx, e.EntryID, checkerID); err != nil {
		if errors.Is(err, dberror.ErrConstraintViolation) {
			return ErrConstraintViolation.Msg("checker workflow is already assigned to another entry")
		}
		if errors.Is(err, dberror.ErrNotFound) {
			return ErrEntryNotFound.Err(err)
		}
		return ErrUnableToUpdate.Err(err)
	}
	e.CheckerID = &checkerID
	m.event(ctx, e.EntryID, nil, types.EventTypeAddChecker)
	log.Ctx(ctx).Info().Str("entry", e.Path).Str("checker_id", checkerID.String()).Msg("checker linked")
	return nil
}
