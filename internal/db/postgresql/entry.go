package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/apperrors"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

const entryColumns = `entry_id, entry_type, mode, source_control, organization, repository, entry_name, path,
	descriptor_language, default_descriptor_path, default_test_parameter_path, default_version,
	is_published, is_checker, checker_id, author, email, description,
	image_registry, image_namespace, image_name, created_at, last_updated`

// CreateEntry inserts a new entry. The entry path must be unique.
func (h *hatchDockstoreDb) CreateEntry(ctx context.Context, entry *models.Entry) error {
	if entry.EntryID == uuid.Nil {
		entry.EntryID = uuid.New()
	}
	if entry.Path == "" {
		entry.Path = models.EntryPath(entry.SourceControl, entry.Organization, entry.Repository, entry.EntryName)
	}
	if entry.Mode == "" {
		entry.Mode = types.WorkflowModeFull
	}

	query := `
		INSERT INTO entries (entry_id, entry_type, mode, source_control, organization, repository, entry_name, path,
			descriptor_language, default_descriptor_path, default_test_parameter_path, default_version,
			is_published, is_checker, checker_id, author, email, description,
			image_registry, image_namespace, image_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (path) DO NOTHING
		RETURNING created_at, last_updated;
	`
	row := h.conn().QueryRowContext(ctx, query,
		entry.EntryID, entry.EntryType, entry.Mode, entry.SourceControl, entry.Organization, entry.Repository,
		entry.EntryName, entry.Path, entry.DescriptorLanguage, entry.DefaultDescriptorPath,
		entry.DefaultTestParameterPath, entry.DefaultVersion, entry.IsPublished, entry.IsChecker, entry.CheckerID,
		entry.Author, entry.Email, entry.Description, entry.ImageRegistry, entry.ImageNamespace, entry.ImageName)
	err := row.Scan(&entry.CreatedAt, &entry.LastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("path", entry.Path).Msg("entry already exists")
			return dberror.ErrAlreadyExists.Msg("entry already exists")
		}
		if pgErr, ok := pgError(err); ok && pgErr.Code == pgCheckViolation {
			log.Ctx(ctx).Error().Str("path", entry.Path).Str("constraint", pgErr.ConstraintName).Msg("invalid entry")
			return dberror.ErrInvalidInput.Msg("invalid entry attributes")
		}
		log.Ctx(ctx).Error().Err(err).Str("path", entry.Path).Msg("failed to insert entry")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (h *hatchDockstoreDb) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	if entryID == uuid.Nil {
		return nil, dberror.ErrInvalidInput.Msg("entry_id cannot be empty")
	}
	return h.getEntry(ctx, h.conn(), "entry_id = $1", entryID)
}

func (h *hatchDockstoreDb) GetEntryByPath(ctx context.Context, path string) (*models.Entry, error) {
	if path == "" {
		return nil, dberror.ErrInvalidInput.Msg("path cannot be empty")
	}
	return h.getEntry(ctx, h.conn(), "path = $1", path)
}

func (h *hatchDockstoreDb) getEntry(ctx context.Context, q querier, where string, arg any) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + where + `;`
	var entry models.Entry
	if err := q.QueryRowxContext(ctx, query, arg).StructScan(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Info().Any("key", arg).Msg("entry not found")
			return nil, dberror.ErrNotFound.Msg("entry not found")
		}
		log.Ctx(ctx).Error().Err(err).Any("key", arg).Msg("failed to retrieve entry")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &entry, nil
}

// ListEntries returns the entries of an organization ordered by path.
func (h *hatchDockstoreDb) ListEntries(ctx context.Context, sourceControl types.SourceControl, organization string) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE source_control = $1 AND organization = $2
		ORDER BY path;`
	var entries []models.Entry
	if err := sqlx.SelectContext(ctx, h.conn(), &entries, query, sourceControl, organization); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("organization", organization).Msg("failed to list entries")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return entries, nil
}

// UpdateEntry writes the mutable attributes of an entry. Identity, path,
// publish state and checker link have their own operations.
func (h *hatchDockstoreDb) UpdateEntry(ctx context.Context, entry *models.Entry) error {
	return h.updateEntry(ctx, h.conn(), entry)
}

func (h *hatchDockstoreDb) updateEntry(ctx context.Context, q querier, entry *models.Entry) error {
	query := `
		UPDATE entries
		SET default_descriptor_path = $2, default_test_parameter_path = $3, default_version = $4,
			author = $5, email = $6, description = $7,
			image_registry = $8, image_namespace = $9, image_name = $10, last_updated = now()
		WHERE entry_id = $1
		RETURNING last_updated;
	`
	err := q.QueryRowxContext(ctx, query, entry.EntryID, entry.DefaultDescriptorPath, entry.DefaultTestParameterPath,
		entry.DefaultVersion, entry.Author, entry.Email, entry.Description,
		entry.ImageRegistry, entry.ImageNamespace, entry.ImageName).Scan(&entry.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Info().Str("entry_id", entry.EntryID.String()).Msg("entry not found for update")
			return dberror.ErrNotFound.Msg("entry not found for update")
		}
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entry.EntryID.String()).Msg("failed to update entry")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (h *hatchDockstoreDb) UpdateDefaultDescriptorPath(ctx context.Context, entryID uuid.UUID, path string) (n int, err error) {
	tx, err := h.conn().BeginTxx(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to begin transaction")
		return 0, dberror.ErrDatabase.Err(err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE entries SET default_descriptor_path = $2, last_updated = now() WHERE entry_id = $1;`, entryID, path)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to update descriptor path")
		return 0, dberror.ErrDatabase.Err(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return 0, dberror.ErrNotFound.Msg("entry not found for update")
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE versions SET synced = false, updated_at = now()
		WHERE entry_id = $1 AND dirty_bit = false;`, entryID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to desync versions")
		return 0, dberror.ErrDatabase.Err(err)
	}
	rows, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit transaction")
		return 0, dberror.ErrDatabase.Err(err)
	}
	return int(rows), nil
}

// DeleteEntry removes an entry with its versions, source files and events.
func (h *hatchDockstoreDb) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	res, err := h.conn().ExecContext(ctx, `DELETE FROM entries WHERE entry_id = $1;`, entryID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to delete entry")
		return dberror.ErrDatabase.Err(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	return nil
}

func (h *hatchDockstoreDb) SetPublished(ctx context.Context, entryID uuid.UUID, published bool) error {
	res, err := h.conn().ExecContext(ctx,
		`UPDATE entries SET is_published = $2, last_updated = now() WHERE entry_id = $1;`, entryID, published)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to set publish state")
		return dberror.ErrDatabase.Err(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	return nil
}

func (h *hatchDockstoreDb) CountPublished(ctx context.Context, entryType types.EntryType) (int, error) {
	var count int
	err := h.conn().QueryRowContext(ctx,
		`SELECT count(*) FROM entries WHERE is_published AND entry_type = $1;`, entryType).Scan(&count)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_type", string(entryType)).Msg("failed to count published entries")
		return 0, dberror.ErrDatabase.Err(err)
	}
	return count, nil
}

func (h *hatchDockstoreDb) SetChecker(ctx context.Context, entryID uuid.UUID, checkerID uuid.UUID) error {
	res, err := h.conn().ExecContext(ctx,
		`UPDATE entries SET checker_id = $2, last_updated = now() WHERE entry_id = $1;`, entryID, checkerID)
	if err != nil {
		return mapCheckerError(ctx, err, entryID, checkerID)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return dberror.ErrNotFound.Msg("entry not found")
	}
	return nil
}

func mapCheckerError(ctx context.Context, err error, entryID, checkerID uuid.UUID) apperrors.Error {
	if pgErr, ok := pgError(err); ok {
		if pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "entries_checker_id_key" {
			log.Ctx(ctx).Info().Str("entry_id", entryID.String()).Str("checker_id", checkerID.String()).Msg("checker already assigned")
			return dberror.ErrConstraintViolation.Msg("checker workflow is already assigned to another entry")
		}
		if pgErr.Code == pgForeignKeyViolation {
			return dberror.ErrNotFound.Msg("checker entry not found")
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to set checker")
	return dberror.ErrDatabase.Err(err)
}
