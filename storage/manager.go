package storage

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Driver names a session storage backend
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// Manager exposes the SQLite backed stores
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	DB() *bun.DB
	Sessions() *BunTokenStorage
	Activity() *ActivityLog
	Close() error
}

type mngr struct {
	db       *bun.DB
	sessions *BunTokenStorage
	activity *ActivityLog
}

// Open connects to the SQLite database at dsn and creates the schema.
func Open(ctx context.Context, dsn string) (Manager, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = MemoryDSN
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := CreateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewManager(db), nil
}

// NewManager wraps an existing connection.
func NewManager(db *bun.DB) Manager {
	return &mngr{
		db:       db,
		sessions: NewBunTokenStorage(db),
		activity: NewActivityLog(db),
	}
}

// CreateSchema creates the session and activity tables when missing.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*SessionSlotModel)(nil),
		(*ActivityRecord)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create schema")
		}
	}
	return nil
}

func (m *mngr) Validate() error {
	if m.sessions == nil {
		return errors.New("storage sessions should be initialized")
	}
	if m.activity == nil {
		return errors.New("storage activity should be initialized")
	}
	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *mngr) DB() *bun.DB                { return m.db }
func (m *mngr) Sessions() *BunTokenStorage { return m.sessions }
func (m *mngr) Activity() *ActivityLog     { return m.activity }

func (m *mngr) Close() error {
	return m.db.Close()
}

// NewTokenStorage builds the TokenStorage for driver. The sqlite driver
// needs a manager; the file driver uses path (or the default location).
func NewTokenStorage(driver Driver, path string, manager Manager) (auth.TokenStorage, error) {
	switch Driver(strings.ToLower(string(driver))) {
	case DriverMemory, "":
		return auth.NewMemoryStorage(), nil
	case DriverFile:
		return NewFileTokenStorage(path), nil
	case DriverSQLite:
		if manager == nil {
			return nil, auth.ValidationError(nil, "sqlite session storage requires a database")
		}
		return manager.Sessions(), nil
	default:
		return nil, auth.ValidationError(nil, "unknown session storage driver: "+string(driver))
	}
}
