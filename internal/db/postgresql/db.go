package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/db/dbmanager"
)

const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
)

type hatchDockstoreDb struct {
	c dbmanager.Conn
}

func NewHatchDockstoreDb(conn dbmanager.Conn) *hatchDockstoreDb {
	return &hatchDockstoreDb{c: conn}
}

func (h *hatchDockstoreDb) conn() *sqlx.Conn {
	return h.c.Conn()
}

func (h *hatchDockstoreDb) Close(ctx context.Context) {
	h.c.Close(ctx)
}

// querier is satisfied by both *sqlx.Conn and *sqlx.Tx so that statements can
// run standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
