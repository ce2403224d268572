package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/roach88/setfield/internal/querysql"
	"github.com/roach88/setfield/internal/schema"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

var (
	// ErrNotFound is returned when no row has the requested primary key.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownModel is returned for labels the schema does not declare.
	ErrUnknownModel = schema.ErrUnknownModel

	// ErrOptionsChanged is returned by Open when a field's options were
	// reordered or removed since they were first recorded.
	ErrOptionsChanged = errors.New("field options changed")
)

// DefaultDriver is the database/sql driver used when Options.Driver is empty.
const DefaultDriver = "sqlite3"

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Options configures Open.
type Options struct {
	Driver string // "sqlite3" (default) or "postgres"
	DSN    string // File path for sqlite3, connection string for postgres
	Schema *schema.Schema

	// Logger receives store diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// MigrationLogger receives goose output. Defaults to goose.NopLogger().
	MigrationLogger goose.Logger
}

// Store persists records of the schema's models.
type Store struct {
	db       *sqlx.DB
	schema   *schema.Schema
	dialect  querysql.Dialect
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path for sch.
func Open(path string, sch *schema.Schema) (*Store, error) {
	return OpenWith(Options{DSN: path, Schema: sch})
}

// OpenWith connects to the database, applies pragmas (SQLite), runs
// migrations, creates model tables and checks the option-order lock.
//
// This function is idempotent - safe to call multiple times.
func OpenWith(opts Options) (*Store, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("open store: schema is required")
	}
	driver := opts.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	dialect, err := querysql.DialectForDriver(driver)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Connect(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.DialectSQLite {
		// SQLite only supports one writer at a time, so limit connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	migrationLogger := opts.MigrationLogger
	if migrationLogger == nil {
		migrationLogger = goose.NopLogger()
	}
	if err := runMigrations(db, dialect, migrationLogger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Store{
		db:       db,
		schema:   opts.Schema,
		dialect:  dialect,
		compiler: querysql.NewSQLCompiler(dialect),
		logger:   logger,
	}

	ctx := context.Background()
	if err := s.createModelTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create model tables: %w", err)
	}
	if err := s.lockOptions(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", "driver", driver, "models", len(opts.Schema.Models()))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sqlx.DB for direct queries.
// Use with caution - writes through it bypass validation.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Schema returns the schema the store was opened with.
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Dialect returns the SQL dialect of the connection.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(db *sqlx.DB, dialect querysql.Dialect, logger goose.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(logger)
	goose.SetBaseFS(embedMigrations)

	gooseDialect := "sqlite3"
	if dialect == querysql.DialectPostgres {
		gooseDialect = "postgres"
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.Up(db.DB, "migrations")
}

// createModelTables creates one table per schema model.
func (s *Store) createModelTables(ctx context.Context) error {
	for _, m := range s.schema.Models() {
		ddl := s.tableDDL(m)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", m.Table, err)
		}
	}
	return nil
}

func (s *Store) tableDDL(m *schema.Model) string {
	pkType, intType := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER"
	if s.dialect == querysql.DialectPostgres {
		pkType, intType = "BIGSERIAL PRIMARY KEY", "BIGINT"
	}

	cols := make([]string, 0, len(m.Fields)+1)
	cols = append(cols, fmt.Sprintf("%s %s", schema.PrimaryKey, pkType))
	for _, f := range m.Fields {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL DEFAULT %d CHECK (%s >= 0)",
			f.Name(), intType, f.DefaultMask(), f.Name()))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		m.Table, strings.Join(cols, ",\n    "))
}

// model resolves label against the schema.
func (s *Store) model(label string) (*schema.Model, error) {
	return s.schema.Model(label)
}
