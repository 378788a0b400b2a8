package postgresql

import (
	"context"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/rs/zerolog/log"
)

type sourceFileRow struct {
	models.SourceFile
	Content []byte `db:"content"`
}

// replaceSourceFiles drops the stored files of a version and writes the given set.
func replaceSourceFiles(ctx context.Context, q querier, versionID uuid.UUID, files []models.SourceFile) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sourcefiles WHERE version_id = $1;`, versionID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to delete source files")
		return dberror.ErrDatabase.Err(err)
	}
	query := `
		INSERT INTO sourcefiles (file_id, version_id, file_type, absolute_path, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`
	for i := range files {
		f := &files[i]
		if f.FileID == uuid.Nil {
			f.FileID = uuid.New()
		}
		f.VersionID = versionID
		content := snappy.Encode(nil, []byte(f.Content))
		if err := q.QueryRowxContext(ctx, query, f.FileID, versionID, f.Type, f.AbsolutePath, content).Scan(&f.CreatedAt); err != nil {
			if pgErr, ok := pgError(err); ok && pgErr.Code == pgUniqueViolation {
				return dberror.ErrAlreadyExists.Msg("duplicate source file path: " + f.AbsolutePath)
			}
			log.Ctx(ctx).Error().Err(err).Str("path", f.AbsolutePath).Msg("failed to insert source file")
			return dberror.ErrDatabase.Err(err)
		}
	}
	return nil
}

// ListSourceFiles returns the files of a version ordered by path.
func (h *hatchDockstoreDb) ListSourceFiles(ctx context.Context, versionID uuid.UUID) ([]models.SourceFile, error) {
	query := `
		SELECT file_id, version_id, file_type, absolute_path, content, created_at
		FROM sourcefiles WHERE version_id = $1 ORDER BY absolute_path;
	`
	var rows []sourceFileRow
	if err := sqlx.SelectContext(ctx, h.conn(), &rows, query, versionID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("version_id", versionID.String()).Msg("failed to list source files")
		return nil, dberror.ErrDatabase.Err(err)
	}
	files := make([]models.SourceFile, 0, len(rows))
	for _, r := range rows {
		content, err := snappy.Decode(nil, r.Content)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("path", r.AbsolutePath).Msg("corrupt source file content")
			return nil, dberror.ErrDatabase.Err(err)
		}
		f := r.SourceFile
		f.Content = string(content)
		files = append(files, f)
	}
	return files, nil
}
