package postgresql

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/rs/zerolog/log"
)

type eventRow struct {
	models.Event
	Details pgtype.JSONB `db:"details"`
}

func (h *hatchDockstoreDb) AddEvent(ctx context.Context, event *models.Event) error {
	return insertEvent(ctx, h.conn(), event)
}

func insertEvent(ctx context.Context, q querier, event *models.Event) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	details := pgtype.JSONB{Status: pgtype.Null}
	if len(event.Details) > 0 {
		details = pgtype.JSONB{Bytes: event.Details, Status: pgtype.Present}
	}
	query := `
		INSERT INTO events (event_id, entry_id, version_name, event_type, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;
	`
	err := q.QueryRowxContext(ctx, query, event.EventID, event.EntryID, event.VersionName, event.Type, details).
		Scan(&event.CreatedAt)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == pgForeignKeyViolation {
			return dberror.ErrNotFound.Msg("entry not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("entry_id", event.EntryID.String()).Msg("failed to insert event")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// ListEvents returns the events of an entry, oldest first.
func (h *hatchDockstoreDb) ListEvents(ctx context.Context, entryID uuid.UUID) ([]models.Event, error) {
	query := `
		SELECT event_id, entry_id, version_name, event_type, details, created_at
		FROM events WHERE entry_id = $1 ORDER BY created_at, event_id;
	`
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, h.conn(), &rows, query, entryID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entryID.String()).Msg("failed to list events")
		return nil, dberror.ErrDatabase.Err(err)
	}
	events := make([]models.Event, 0, len(rows))
	for _, r := range rows {
		e := r.Event
		if r.Details.Status == pgtype.Present {
			e.Details = json.RawMessage(r.Details.Bytes)
		}
		events = append(events, e)
	}
	return events, nil
}
