package db

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/config"
	"github.com/mugiliam/hatchdockstore/internal/db/dbmanager"
	"github.com/mugiliam/hatchdockstore/internal/db/memdb"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/db/postgresql"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

// DB_ is the entry and version store. The postgresql implementation wraps one
// pooled connection, the memory implementation is shared by every caller.
type DB_ interface {
	// Entry
	CreateEntry(ctx context.Context, entry *models.Entry) error
	GetEntry(ctx context.Context, entryID uuid.UUID) (*models.Entry, error)
	GetEntryByPath(ctx context.Context, path string) (*models.Entry, error)
	ListEntries(ctx context.Context, sourceControl types.SourceControl, organization string) ([]models.Entry, error)
	UpdateEntry(ctx context.Context, entry *models.Entry) error
	// UpdateDefaultDescriptorPath changes the entry default and marks every
	// version without a path override as not synced. It returns the number of
	// versions marked.
	UpdateDefaultDescriptorPath(ctx context.Context, entryID uuid.UUID, path string) (int, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID) error
	SetPublished(ctx context.Context, entryID uuid.UUID, published bool) error
	CountPublished(ctx context.Context, entryType types.EntryType) (int, error)
	// SetChecker links a checker entry. A checker already linked to another entry
	// fails with dberror.ErrConstraintViolation.
	SetChecker(ctx context.Context, entryID uuid.UUID, checkerID uuid.UUID) error

	// Version
	CreateVersion(ctx context.Context, version *models.Version, files []models.SourceFile) error
	GetVersion(ctx context.Context, entryID uuid.UUID, name string) (*models.Version, error)
	ListVersions(ctx context.Context, entryID uuid.UUID) ([]models.Version, error)
	UpdateVersion(ctx context.Context, version *models.Version) error
	DeleteVersion(ctx context.Context, versionID uuid.UUID) error

	// Source files
	ListSourceFiles(ctx context.Context, versionID uuid.UUID) ([]models.SourceFile, error)

	// SaveRefresh applies a refresh change set in one transaction.
	SaveRefresh(ctx context.Context, cs *models.RefreshChangeSet) error

	// Events
	AddEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context, entryID uuid.UUID) ([]models.Event, error)

	// Close the connection to the database.
	Close(ctx context.Context)
}

var _ DB_ = (*memdb.MemDB)(nil)

var (
	mu     sync.RWMutex
	pool   dbmanager.Pool
	memory *memdb.MemDB
)

var ErrNotInitialized = errors.New("database not initialized")

// Init selects the driver named in the configuration. It must be called once
// before ConnCtx.
func Init(ctx context.Context, cfg config.DBConfig) error {
	mu.Lock()
	defer mu.Unlock()
	switch cfg.Driver {
	case "memory":
		memory = memdb.New()
		pool = nil
	case "postgresql":
		p := dbmanager.NewPool(ctx, cfg.Driver, cfg)
		if p == nil {
			return errors.New("unable to create db pool")
		}
		pool = p
		memory = nil
	default:
		return errors.New("unsupported db driver: " + cfg.Driver)
	}
	log.Ctx(ctx).Info().Str("driver", cfg.Driver).Msg("database initialized")
	return nil
}

// UseMemory installs the given in-memory store. Tests use it to share one store
// between the code under test and their assertions.
func UseMemory(m *memdb.MemDB) {
	mu.Lock()
	defer mu.Unlock()
	memory = m
	pool = nil
}

// Shutdown closes the connection pool.
func Shutdown(ctx context.Context) {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to close db pool")
		}
		pool = nil
	}
}

func Conn(ctx context.Context) dbmanager.Conn {
	mu.RLock()
	p := pool
	mu.RUnlock()
	if p != nil {
		conn, err := p.Conn(ctx)
		if err == nil {
			return conn
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
	}
	return nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "HatchDockstoreDb"

// ConnCtx returns a context carrying a database handle. The handle must be
// released with DB(ctx).Close(ctx).
func ConnCtx(ctx context.Context) context.Context {
	mu.RLock()
	m := memory
	mu.RUnlock()
	if m != nil {
		return WithDB(ctx, m)
	}
	conn := Conn(ctx)
	if conn == nil {
		return ctx
	}
	return WithDB(ctx, postgresql.NewHatchDockstoreDb(conn))
}

// WithDB returns a context carrying d as its database handle.
func WithDB(ctx context.Context, d DB_) context.Context {
	return context.WithValue(ctx, ctxDbKey, d)
}

func DB(ctx context.Context) DB_ {
	if d, ok := ctx.Value(ctxDbKey).(DB_); ok {
		return d
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}

// HasDB reports whether the context carries a database handle.
func HasDB(ctx context.Context) bool {
	_, ok := ctx.Value(ctxDbKey).(DB_)
	return ok
}
