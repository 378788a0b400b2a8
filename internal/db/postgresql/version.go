package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/rs/zerolog/log"
)

const versionColumns = `version_id, entry_id, name, reference, reference_type, commit_id, valid, validation_message,
	hidden, dirty_bit, synced, last_modified, descriptor_path_override, descriptor_path, test_parameter_paths,
	author, email, description, public_accessible_test_parameter_file, image_metadata, created_at, updated_at`

// versionRow carries the columns that need a pgtype conversion.
type versionRow struct {
	models.Version
	TestParameterPaths pgtype.TextArray `db:"test_parameter_paths"`
	ImageMetadata      pgtype.JSONB     `db:"image_metadata"`
}

func (r *versionRow) toModel() (models.Version, error) {
	v := r.Version
	v.TestParameterPaths = nil
	if err := r.TestParameterPaths.AssignTo(&v.TestParameterPaths); err != nil {
		return v, err
	}
	v.ImageMetadata = nil
	if r.ImageMetadata.Status == pgtype.Present {
		var md models.ImageMetadata
		if err := r.ImageMetadata.AssignTo(&md); err != nil {
			return v, err
		}
		v.ImageMetadata = &md
	}
	return v, nil
}

func versionParams(v *models.Version) (pgtype.TextArray, pgtype.JSONB, error) {
	var paths pgtype.TextArray
	tp := v.TestParameterPaths
	if tp == nil {
		tp = []string{}
	}
	if err := paths.Set(tp); err != nil {
		return paths, pgtype.JSONB{}, err
	}
	md := pgtype.JSONB{Status: pgtype.Null}
	if v.ImageMetadata != nil {
		if err := md.Set(v.ImageMetadata); err != nil {
			return paths, md, err
		}
	}
	return paths, md, nil
}

// CreateVersion inserts a version together with its source files.
func (h *hatchDockstoreDb) CreateVersion(ctx context.Context, version *models.Version, files []models.SourceFile) (err error) {
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

	if version.VersionID == uuid.Nil {
		version.VersionID = uuid.New()
	}
	if err = insertVersion(ctx, tx, version); err != nil {
		return err
	}
	if err = replaceSourceFiles(ctx, tx, version.VersionID, files); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit transaction")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func insertVersion(ctx context.Context, q querier, v *models.Version) error {
	paths, md, err := versionParams(v)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	query := `
		INSERT INTO versions (version_id, entry_id, name, reference, reference_type, commit_id, valid,
			validation_message, hidden, dirty_bit, synced, last_modified, descriptor_path_override, descriptor_path,
			test_parameter_paths, author, email, description, public_accessible_test_parameter_file, image_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at;
	`
	err = q.QueryRowxContext(ctx, query, v.VersionID, v.EntryID, v.Name, v.Reference, v.ReferenceType, v.CommitID,
		v.Valid, v.ValidationMessage, v.Hidden, v.DirtyBit, v.Synced, v.LastModified, v.DescriptorPathOverride,
		v.DescriptorPath, paths, v.Author, v.Email, v.Description, v.PublicAccessibleTestParameterFile, md).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if pgErr, ok := pgError(err); ok {
			if pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "versions_entry_id_name_key" {
				log.Ctx(ctx).Info().Str("name", v.Name).Str("entry_id", v.EntryID.String()).Msg("version already exists")
				return dberror.ErrAlreadyExists.Msg("version already exists")
			}
			if pgErr.Code == pgForeignKeyViolation {
				log.Ctx(ctx).Info().Str("entry_id", v.EntryID.String()).Msg("entry not found")
				return dberror.ErrNotFound.Msg("entry not found")
			}
		}
		log.Ctx(ctx).Error().Err(err).Str("name", v.Name).Str("entry_id", v.EntryID.String()).Msg("failed to insert version")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// updateRefreshedVersion writes the columns a refresh owns. hidden, dirty_bit
// and descriptor_path_override belong to the user and are left alone.
func updateRefreshedVersion(ctx context.Context, q querier, v *models.Version) error {
	paths, md, err := versionParams(v)
	if err != nil {
		return dberror.ErrInvalidInput.Err(err)
	}
	query := `
		UPDATE versions
		SET reference = $2, reference_type = $3, commit_id = $4, valid = $5, validation_message = $6, synced = $7,
			last_modified = $8, descriptor_path = $9, test_parameter_paths = $10, author = $11, email = $12,
			description = $13, public_accessible_test_parameter_file = $14, image_metadata = $15, updated_at = now()
		WHERE version_id = $1
		RETURNING created_at, updated_at;
	`
	err = q.QueryRowxContext(ctx, query, v.VersionID, v.Reference, v.ReferenceType, v.CommitID, v.Valid,
		v.ValidationMessage, v.Synced, v.LastModified, v.DescriptorPath, paths, v.Author, v.Email, v.Description,
		v.PublicAccessibleTestParameterFile, md).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dberror.ErrNotFound.Msg("version not found for update")
		}
		log.Ctx(ctx).Error().Err(err).Str("name", v.Name).Str("entry_id", v.EntryID.String()).Msg("failed to update version")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (h *hatchDockstoreDb) GetVersion(ctx context.Context, entryID uuid.UUID, name string) (*models.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions WHERE entry_id = $1 AND name = $2;`
	var row versionRow
	if err := h.conn().QueryRowxContext(ctx, query, entryID, name).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Ctx(ctx).Info().Str("name", name).Str("entry_id", entryID.String()).Msg("version not found")
			return nil, dberror.ErrNotFound.Msg("version not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("name", name).Str("entry_id", entryID.String()).Msg("failed to retrieve version")
		return nil, dberror.ErrDatabase.Err(err)
	}
	v, err := row.toModel()
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &v, nil
}

// ListVersions returns the versions of an entry ordered by name.
func (h *hatchDockstoreDb) ListVersions(ctx context.Context, entryID uuid.UUID) ([]models.Version, error) {
	return listVersions(ctx, h.conn(), entryID)
}

func listVersions(ctx context.Context, q querier, entryID uuid.UUID) ([]models.Version, error) {
	return selectVersions(ctx, q, `SELECT `+versionColumns+` FROM versions WHERE entry_id = $1 ORDER BY name;`, entryID)
}

func selectVersions(ctx context.Context, q querier, query string, entryID uuid.UUID) ([]models.Version, error) {
	var rows []versionRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, entryID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to list versions")
		return nil, dberror.ErrDatabase.Err(err)
	}
	versions := make([]models.Version, 0, len(rows))
	for i := range rows {
		v, err := rows[i].toModel()
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// UpdateVersion writes the user editable state of a version: the hidden flag
// and the descriptor path override together with the dirty and synced flags.
func (h *hatchDockstoreDb) UpdateVersion(ctx context.Context, version *models.Version) error {
	query := `
		UPDATE versions
		SET hidden = $2, descriptor_path_override = $3, dirty_bit = $4, synced = $5, updated_at = now()
		WHERE version_id = $1
		RETURNING updated_at;
	`
	err := h.conn().QueryRowContext(ctx, query, version.VersionID, version.Hidden, version.DescriptorPathOverride,
		version.DirtyBit, version.Synced).Scan(&version.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dberror.ErrNotFound.Msg("version not found for update")
		}
		log.Ctx(ctx).Error().Err(err).Str("version_id", version.VersionID.String()).Msg("failed to update version")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (h *hatchDockstoreDb) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	res, err := h.conn().ExecContext(ctx, `DELETE FROM versions WHERE version_id = $1;`, versionID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to delete version")
		return dberror.ErrDatabase.Err(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return dberror.ErrNotFound.Msg("version not found")
	}
	return nil
}
