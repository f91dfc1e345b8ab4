package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/edgard/attendancebot/internal/config"
	"github.com/edgard/attendancebot/internal/errs"
	"github.com/edgard/attendancebot/migrations"
)

func testContext(t *testing.T) config.RuntimeContext {
	t.Helper()
	dir := t.TempDir()
	return config.RuntimeContext{Variant: config.VariantLocal, VolumePath: dir, DBPath: filepath.Join(dir, "bot.db")}
}

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	log := zaptest.NewLogger(t)
	db, err := Open(context.Background(), testContext(t), log)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, log) })
	return db
}

func TestOpenCreatesExactlyRequiredTables(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	tables, err := Tables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "visits"}, tables)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := zaptest.NewLogger(t)
	rc := testContext(t)

	first, err := Open(ctx, rc, log)
	require.NoError(t, err)
	before, err := Tables(ctx, first)
	require.NoError(t, err)
	Close(first, log)

	second, err := Open(ctx, rc, log)
	require.NoError(t, err)
	defer Close(second, log)

	after, err := Tables(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, after, 2)
}

func TestOpenCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rc := config.RuntimeContext{VolumePath: dir, DBPath: filepath.Join(dir, "nested", "deeper", "bot.db")}
	log := zaptest.NewLogger(t)

	db, err := Open(context.Background(), rc, log)
	require.NoError(t, err)
	Close(db, log)
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), config.RuntimeContext{}, zaptest.NewLogger(t))
	var storageErr *errs.StorageInitError
	assert.ErrorAs(t, err, &storageErr)
}

// A crash between marking a migration dirty and finishing it must not block
// the next startup.
func TestOpenRecoversFromDirtyMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := zaptest.NewLogger(t)
	rc := testContext(t)

	raw, err := sql.Open(driverName, DSN(rc.DBPath))
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `
        CREATE TABLE schema_migrations (version uint64, dirty bool);
        CREATE UNIQUE INDEX version_unique ON schema_migrations (version);
        INSERT INTO schema_migrations (version, dirty) VALUES (1, 1);
        CREATE TABLE students (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            telegram_id INTEGER NOT NULL UNIQUE,
            chat_id INTEGER NOT NULL,
            full_name TEXT NOT NULL,
            username TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );
    `)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := Open(ctx, rc, log)
	require.NoError(t, err)
	defer Close(db, log)

	tables, err := Tables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "visits"}, tables)

	var dirty bool
	require.NoError(t, db.GetContext(ctx, &dirty, "SELECT dirty FROM schema_migrations LIMIT 1"))
	assert.False(t, dirty)
}

// Both tables come from one migration body; when a statement in it fails,
// neither table may survive.
func TestFailedMigrationLeavesNoTables(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := zaptest.NewLogger(t)
	rc := testContext(t)

	up, err := migrations.FS.ReadFile("000001_create_students_visits.up.sql")
	require.NoError(t, err)

	raw, err := sqlx.Open(driverName, DSN(rc.DBPath))
	require.NoError(t, err)
	driver, err := sqlite.WithInstance(raw.DB, &sqlite.Config{MigrationsTable: MigrationsTable})
	require.NoError(t, err)

	body := string(up) + "\nINSERT INTO missing_table VALUES (1);\n"
	require.Error(t, driver.Run(strings.NewReader(body)))

	tables, err := Tables(ctx, raw)
	require.NoError(t, err)
	assert.Empty(t, tables)
	require.NoError(t, raw.Close())

	db, err := Open(ctx, rc, log)
	require.NoError(t, err)
	defer Close(db, log)

	tables, err = Tables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "visits"}, tables)
}

func TestConnectionSettings(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	var foreignKeys, busyTimeout int
	require.NoError(t, db.Get(&foreignKeys, "PRAGMA foreign_keys"))
	require.NoError(t, db.Get(&busyTimeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 1, foreignKeys)
	assert.Equal(t, busyTimeoutMillis, busyTimeout)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	tx, err := db.BeginTxx(context.Background(), TxOptions)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
}
