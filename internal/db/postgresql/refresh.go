package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/rs/zerolog/log"
)

// SaveRefresh writes a refresh change set in one transaction. The entry row and
// its versions are locked and read again first, so edits made while the
// refresh was fetching upstream are kept.
func (h *hatchDockstoreDb) SaveRefresh(ctx context.Context, cs *models.RefreshChangeSet) (err error) {
	if cs == nil || cs.EntryID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("change set must name an entry")
	}
	tx, err := h.conn().BeginTxx(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to begin transaction")
		return dberror.ErrDatabase.Err(err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	entry, err := h.getEntry(ctx, tx, "entry_id = $1 FOR UPDATE", cs.EntryID)
	if err != nil {
		return err
	}
	current, err := selectVersions(ctx, tx, `SELECT `+versionColumns+` FROM versions WHERE entry_id = $1 FOR UPDATE;`, cs.EntryID)
	if err != nil {
		return err
	}
	byName := make(map[string]*models.Version, len(current))
	for i := range current {
		byName[current[i].Name] = &current[i]
	}

	written := make([]models.Version, 0, len(cs.Versions))
	for i := range cs.Versions {
		proposed := cs.Versions[i].VersionID
		stored := byName[cs.Versions[i].Name]
		if stored != nil && cs.InsertOnly {
			return dberror.ErrAlreadyExists.Msg("version already exists")
		}
		v := models.MergeRefreshed(entry, stored, cs.Versions[i])
		if stored == nil {
			if v.VersionID == uuid.Nil {
				v.VersionID = uuid.New()
			}
			err = insertVersion(ctx, tx, &v)
		} else {
			err = updateRefreshedVersion(ctx, tx, &v)
		}
		if err != nil {
			return err
		}
		if files, ok := cs.SourceFiles[proposed]; ok {
			if err = replaceSourceFiles(ctx, tx, v.VersionID, files); err != nil {
				return err
			}
		}
		cs.Versions[i] = v
		written = append(written, v)
	}

	var deleted []string
	for _, id := range cs.StaleVersionIDs {
		var name string
		err = tx.QueryRowxContext(ctx, `DELETE FROM versions WHERE version_id = $1 AND entry_id = $2 RETURNING name;`,
			id, cs.EntryID).Scan(&name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = nil
				continue
			}
			log.Ctx(ctx).Error().Err(err).Str("version_id", id.String()).Msg("failed to delete stale version")
			return dberror.ErrDatabase.Err(err)
		}
		deleted = append(deleted, name)
	}

	if cs.ApplyToEntry(entry, written, deleted) {
		if err = h.updateEntry(ctx, tx, entry); err != nil {
			return err
		}
	}
	for i := range cs.Events {
		cs.Events[i].EntryID = cs.EntryID
		if err = insertEvent(ctx, tx, &cs.Events[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(err)
	}
	log.Ctx(ctx).Info().Str("entry_id", cs.EntryID.String()).Int("versions", len(cs.Versions)).
		Int("stale", len(deleted)).Msg("refresh saved")
	return nil
}
