// Package database provides database setup, models, and data access layer (Store).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

const (
	driverName = "sqlite"

	// MigrationsTable is golang-migrate's bookkeeping table.
	MigrationsTable = "schema_migrations"

	busyTimeoutMillis = 5000
)

// RequiredTables lists the tables the bot cannot run without.
var RequiredTables = []string{"students", "visits"}

// TxOptions is used for every transaction the store opens. SQLite only
// offers serializable semantics; asking for it explicitly keeps the choice
// visible and fails loudly if a driver ever stops honouring it.
var TxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// DSN builds the connection string for path. Writers take the database lock
// when the transaction begins (_txlock=immediate) so conflicting transactions
// are ordered instead of failing at commit time.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate",
		path, busyTimeoutMillis)
}

// Open connects to the database at rc.DBPath, applies migrations and verifies
// the required tables exist. Every failure is an errs.StorageInitError and
// leaves no open connection behind.
func Open(ctx context.Context, rc config.RuntimeContext, log *zap.Logger) (*sqlx.DB, error) {
	if rc.DBPath == "" {
		return nil, errs.NewStorageInitError("database path is empty", nil)
	}
	log = log.Named("database")

	if err := os.MkdirAll(filepath.Dir(rc.DBPath), 0o755); err != nil {
		return nil, errs.NewStorageInitError("failed to create database directory", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, DSN(rc.DBPath))
	if err != nil {
		return nil, errs.NewStorageInitError("failed to connect to database", err)
	}

	// A single connection serialises writers inside the process; SQLite's own
	// locking handles everything else.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initialize(ctx, db, log); err != nil {
		Close(db, log)
		return nil, err
	}

	log.Info("database ready", zap.String("path", rc.DBPath))
	return db, nil
}

func initialize(ctx context.Context, db *sqlx.DB, log *zap.Logger) error {
	var foreignKeys int
	if err := db.GetContext(ctx, &foreignKeys, "PRAGMA foreign_keys"); err != nil {
		return errs.NewStorageInitError("failed to read foreign_keys pragma", err)
	}
	if foreignKeys != 1 {
		return errs.NewStorageInitError("foreign keys are not enabled", nil)
	}

	if err := ApplyMigrations(db.DB, log); err != nil {
		return err
	}

	tables, err := Tables(ctx, db)
	if err != nil {
		return errs.NewStorageInitError("failed to list tables", err)
	}
	present := make(map[string]bool, len(tables))
	for _, name := range tables {
		present[name] = true
	}
	for _, name := range RequiredTables {
		if !present[name] {
			return errs.NewStorageInitError(fmt.Sprintf("required table %s is missing after migrations", name), nil)
		}
	}
	return nil
}

// Close closes the database connection pool.
func Close(db *sqlx.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error("error closing database connection", zap.Error(err))
	} else {
		log.Info("database connection closed")
	}
}

// ApplyMigrations runs the embedded migrations. Each migration file runs in
// its own transaction, so an interrupted run leaves the schema at the
// previous version with only the dirty flag set; that flag is cleared and the
// migration retried, which lets repeated startups converge.
func ApplyMigrations(db *sql.DB, log *zap.Logger) error {
	if db == nil {
		return errs.NewStorageInitError("database connection is nil, cannot apply migrations", nil)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errs.NewStorageInitError("failed to create embed source driver", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return errs.NewStorageInitError("failed to create sqlite migration driver", err)
	}

	// The migrator is deliberately never closed: Close would close db too.
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, dbDriver)
	if err != nil {
		return errs.NewStorageInitError("failed to create migrate instance", err)
	}

	err = migrator.Up()

	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		previous := -1
		if prev, prevErr := sourceDriver.Prev(uint(dirty.Version)); prevErr == nil {
			previous = int(prev)
		}
		log.Warn("database left dirty by an interrupted migration, retrying",
			zap.Int("dirty_version", dirty.Version),
			zap.Int("forced_version", previous))

		if forceErr := migrator.Force(previous); forceErr != nil {
			return errs.NewStorageInitError("failed to reset dirty migration state", forceErr)
		}
		err = migrator.Up()
	}

	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debug("no database migrations to apply")
	case err != nil:
		return errs.NewStorageInitError("failed to apply migrations", err)
	default:
		version, _, _ := migrator.Version()
		log.Info("database migrations applied", zap.Uint("version", version))
	}
	return nil
}

// Tables lists user tables, leaving out SQLite internals and the migration
// bookkeeping table.
func Tables(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var tables []string
	err := db.SelectContext(ctx, &tables, `
        SELECT name FROM sqlite_master
        WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != ?
        ORDER BY name;
    `, MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}
