package entrymanager

import (
	"context"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// Publish makes an entry public. It needs at least one valid version.
// Publishing a published entry is a no-op.
func (m *Manager) Publish(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	return m.setPublished(ctx, entryID, true)
}

func (m *Manager) Unpublish(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	return m.setPublished(ctx, entryID, false)
}

func (m *Manager) setPublished(ctx context.Context, entryID uuid.UUID, published bool) (*models.Entry, error) {
	e, err := m.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if e.IsPublished == published {
		return e, nil
	}
	if published {
		ok, err := m.hasValidVersion(ctx, entryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoValidVersion.Msg("entry " + e.Path + " has no valid version to publish")
		}
	}
	if err := db.DB(ctx).SetPublished(ctx, entryID, published); err != nil {
		return nil, ErrUnableToUpdate.Err(err)
	}
	e.IsPublished = published
	t := types.EventTypePublish
	if !published {
		t = types.EventTypeUnpublish
	}
	m.event(ctx, entryID, nil, t)
	log.Ctx(ctx).Info().Str("entry", e.Path).Bool("published", published).Msg("publication changed")

	if e.CheckerID != nil {
		m.followChecker(ctx, *e.CheckerID, published)
	}
	return e, nil
}

// followChecker gives a linked checker the publication state of its entry. A
// checker without a valid version stays unpublished.
func (m *Manager) followChecker(ctx context.Context, checkerID uuid.UUID, published bool) {
	if _, err := m.setPublished(ctx, checkerID, published); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("checker_id", checkerID.String()).Msg("checker publication not changed")
	}
}

func (m *Manager) hasValidVersion(ctx context.Context, entryID uuid.UUID) (bool, error) {
	versions, err := db.DB(ctx).ListVersions(ctx, entryID)
	if err != nil {
		return false, err
	}
	for i := range versions {
		if versions[i].Valid {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) CountPublished(ctx context.Context, entryType types.EntryType) (int, error) {
	if !entryType.IsValid() {
		return 0, ErrInvalidRequest.Msg("invalid entry type " + string(entryType))
	}
	return db.DB(ctx).CountPublished(ctx, entryType)
}
