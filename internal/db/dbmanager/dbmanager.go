package dbmanager

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/rs/zerolog/log"
)

type Pool interface {
	// Conn returns a new connection to the database.
	Conn(ctx context.Context) (Conn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
	Close() error
}

type Conn interface {
	Conn() *sqlx.Conn
	Close(ctx context.Context)
}

func NewPool(ctx context.Context, dbtype string, cfg config.DBConfig) Pool {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlDb(cfg)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to create PostgreSQL DB")
			return nil
		}
		return db
	}
	return nil
}
