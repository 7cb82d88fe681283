package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Backend names the storage engine selected at startup.
type Backend string

const (
	// BackendSQLite is the embedded file-backed store.
	BackendSQLite Backend = "sqlite"
	// BackendPostgres is the networked relational store.
	BackendPostgres Backend = "postgresql"
)

var (
	errMissingDatabasePath = errors.New("database path is required for the embedded backend")
	errAdapterClosed       = errors.New("database adapter is not open")
)

// Config selects and configures the backend. A non-empty URL selects PostgreSQL.
type Config struct {
	URL          string
	Path         string
	MaxOpenConns int
	Logger       *zap.Logger
}

// Backend reports which engine the configuration selects.
func (c Config) Backend() Backend {
	if strings.TrimSpace(c.URL) != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// Adapter owns the gorm handle for one backend. Callers write "?" placeholders
// and bind Go values; the dialector renders them for the engine in use.
type Adapter struct {
	db      *gorm.DB
	backend Backend
	logger  *zap.Logger
}

// Open connects to the configured backend. It does not create tables; see InitSchema.
func Open(cfg Config) (*Adapter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend := cfg.Backend()
	var dialector gorm.Dialector
	switch backend {
	case BackendPostgres:
		dialector = postgres.Open(strings.TrimSpace(cfg.URL))
	default:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, errMissingDatabasePath
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A connection lives for one request: it is dialed on first use and closed
	// when released, never parked for the next caller.
	sqlDB.SetMaxIdleConns(0)
	switch {
	case backend == BackendSQLite:
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logger.Info("database opened", zap.String("backend", string(backend)))

	return &Adapter{db: db, backend: backend, logger: logger}, nil
}

// NewAdapter wraps an already opened gorm handle.
func NewAdapter(db *gorm.DB, backend Backend) *Adapter {
	return &Adapter{db: db, backend: backend, logger: zap.NewNop()}
}

// Backend returns the engine behind the adapter.
func (a *Adapter) Backend() Backend {
	return a.backend
}

// Connect returns a session scoped to ctx after verifying the backend is reachable.
// Connections opened by the session are closed on release rather than reused.
// Failures are returned as-is; there is no retry.
func (a *Adapter) Connect(ctx context.Context) (*gorm.DB, error) {
	if a == nil || a.db == nil {
		return nil, errAdapterClosed
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect %s database: %w", a.backend, err)
	}
	return a.db.WithContext(ctx), nil
}

// Close releases the underlying connection pool.
func (a *Adapter) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BoolLiteral renders a boolean the way the backend spells it in DDL.
func (a *Adapter) BoolLiteral(value bool) string {
	return a.backend.boolLiteral(value)
}

func (b Backend) boolLiteral(value bool) string {
	if b == BackendPostgres {
		if value {
			return "TRUE"
		}
		return "FALSE"
	}
	if value {
		return "1"
	}
	return "0"
}

func (b Backend) serialPrimaryKey() string {
	if b == BackendPostgres {
		return "SERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}
