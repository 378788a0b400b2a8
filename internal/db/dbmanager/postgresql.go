package dbmanager

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/rs/zerolog/log"
)

type postgresPool struct {
	db       *sqlx.DB
	requests atomic.Uint64
	returns  atomic.Uint64
}

func NewPostgresqlDb(cfg config.DBConfig) (*postgresPool, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	return &postgresPool{db: db}, nil
}

func (p *postgresPool) Conn(ctx context.Context) (Conn, error) {
	c, err := p.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	p.requests.Add(1)
	return &postgresConn{conn: c, pool: p}, nil
}

func (p *postgresPool) Stats() (requests, returns uint64) {
	return p.requests.Load(), p.returns.Load()
}

func (p *postgresPool) Close() error {
	return p.db.Close()
}

type postgresConn struct {
	conn *sqlx.Conn
	pool *postgresPool
}

func (c *postgresConn) Conn() *sqlx.Conn {
	return c.conn
}

func (c *postgresConn) Close(ctx context.Context) {
	if err := c.conn.Close(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to return connection to pool")
		return
	}
	c.pool.returns.Add(1)
}
