package postgresql

import (
	"context"
	_ "embed"

	"github.com/mugiliam/hatchdockstore/internal/db/dberror"
	"github.com/mugiliam/hatchdockstore/internal/db/dbmanager"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL of the store.
func Schema() string {
	return schemaSQL
}

// ApplySchema creates the tables if they do not exist.
func ApplySchema(ctx context.Context, conn dbmanager.Conn) error {
	if _, err := conn.Conn().ExecContext(ctx, schemaSQL); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to apply schema")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}
