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

// BatchResult summarizes a refresh of every entry of an organization.
type BatchResult struct {
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors,omitempty"`
}

type BatchError struct {
	EntryPath string `json:"entry_path"`
	Error     string `json:"error"`
}

// Refresh reconciles every version of an entry with its repository. Nothing is
// written unless the whole refresh succeeds.
func (m *Manager) Refresh(ctx context.Context, entryID uuid.UUID, hard bool) (*Detail, error) {
	return m.refresh(ctx, entryID, "", hard)
}

// RefreshVersion reconciles a single version.
func (m *Manager) RefreshVersion(ctx context.Context, entryID uuid.UUID, name string, hard bool) (*Detail, error) {
	return m.refresh(ctx, entryID, name, hard)
}

func (m *Manager) refresh(ctx context.Context, entryID uuid.UUID, name string, hard bool) (*Detail, error) {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := m.refreshEntry(ctx, e, name, hard); err != nil {
		return nil, err
	}
	return m.Get(ctx, entryID)
}

func (m *Manager) refreshEntry(ctx context.Context, e *models.Entry, name string, hard bool) error {
	stored, err := db.DB(ctx).ListVersions(ctx, e.EntryID)
	if err != nil {
		return err
	}
	var cs *models.RefreshChangeSet
	if name == "" {
		cs, err = m.sync.RefreshEntry(ctx, e, stored, hard)
	} else {
		cs, err = m.sync.RefreshVersion(ctx, e, stored, name, hard)
	}
	if err != nil {
		return err
	}
	if err := db.DB(ctx).SaveRefresh(ctx, cs); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry", e.Path).Msg("failed to save refresh")
		if errors.Is(err, dberror.ErrNotFound) {
			return ErrEntryNotFound.Msg("entry " + e.Path + " was deleted during refresh")
		}
		return ErrUnableToUpdate.Err(err)
	}
	return nil
}

// RefreshOrganization refreshes every non-hosted entry of an organization one
// after the other. A failing entry is recorded and does not stop the batch.
func (m *Manager) RefreshOrganization(ctx context.Context, sc types.SourceControl, organization string) (*BatchResult, error) {
	entries, err := m.List(ctx, sc, organization)
	if err != nil {
		return nil, err
	}
	res := &BatchResult{}
	for i := range entries {
		e := &entries[i]
		if e.IsHosted() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		if err := m.refreshEntry(ctx, e, "", false); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BatchError{EntryPath: e.Path, Error: err.Error()})
			log.Ctx(ctx).Warn().Err(err).Str("entry", e.Path).Msg("refresh failed")
			continue
		}
		res.Succeeded++
	}
	log.Ctx(ctx).Info().
		Str("organization", organization).
		Int("processed", res.Processed).
		Int("failed", res.Failed).
		Msg("organization refreshed")
	return res, nil
}
