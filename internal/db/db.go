// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the journal data access layer for Groundwork.
// It abstracts the underlying database (e.g., SQLite, PostgreSQL) behind a
// consistent interface, allowing the rest of the application to interact with
// the journal in a uniform way.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/groundwork-sh/groundwork/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

//go:embed migrations
var embeddedMigrations embed.FS

// sqlOpenFunc lets tests stub database opening.
var sqlOpenFunc = sql.Open

// driverFor maps a journal db type to its registered driver name. The pgx
// stdlib driver registers as "pgx" rather than "postgres".
func driverFor(dbType string) string {
	if dbType == "postgres" {
		return "pgx"
	}
	return dbType
}

// New opens the journal, runs pending migrations, and installs the result
// as the package-level store behind the helpers in this file.
func New(dbType, dsn string) (Store, error) {
	s, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return nil, err
	}
	store = s
	return s, nil
}

// InitDB is the error-only variant of New for callers that only ever use
// the package-level helpers.
func InitDB(dbType, dsn string) error {
	if _, err := New(dbType, dsn); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return nil
}

// NewStoreFromDSN opens a standalone journal store without touching the
// package-level default. `migrate` uses this to hold a source and a target
// open at the same time.
func NewStoreFromDSN(dbType, dsn string) (Store, error) {
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverFor(dbType), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(sqlDB, dbType, dsn)
	if err := RunMigrations(sqlDB, dbType); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("journal: opened %s and ran migrations in %s", dbType, time.Since(start))

	switch dbType {
	case "sqlite":
		return newSqliteStore(bun.NewDB(sqlDB, sqlitedialect.New())), nil
	case "postgres":
		return newPostgresStore(bun.NewDB(sqlDB, pgdialect.New())), nil
	case "mysql":
		return newMySQLStore(bun.NewDB(sqlDB, mysqldialect.New())), nil
	default:
		return nil, fmt.Errorf("unsupported database type for store creation: '%s'", dbType)
	}
}

// envInt reads an integer tuning knob from the environment, keeping def
// when the variable is unset or not a non-negative integer.
func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// configurePool applies connection pool limits. The defaults are
// conservative; the GROUNDWORK_DB_* variables override them for CI or
// heavier setups. In-memory SQLite is pinned to a single connection because
// every new connection would otherwise see its own empty database.
func configurePool(sqlDB *sql.DB, dbType, dsn string) {
	maxOpen := envInt("GROUNDWORK_DB_MAX_OPEN_CONNS", 25)
	maxIdle := envInt("GROUNDWORK_DB_MAX_IDLE_CONNS", 25)
	if dbType == "sqlite" && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		maxOpen = 1
		maxIdle = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(envInt("GROUNDWORK_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(envInt("GROUNDWORK_DB_CONN_MAX_IDLE_SECONDS", 60)) * time.Second)
}

// RunMigrations applies the embedded .up.sql files for the engine that are
// not recorded in schema_migrations yet. Files apply in lexical order, each
// inside its own transaction.
func RunMigrations(db *sql.DB, dbType string) error {
	dir := "migrations/" + dbType
	names, err := migrationFiles(dir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	if err := ensureSchemaMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")
		applied, err := migrationApplied(db, dbType, version)
		if err != nil {
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}
		if applied {
			continue
		}
		if err := applyMigration(db, dbType, path.Join(dir, name), version); err != nil {
			return err
		}
	}
	return nil
}

// migrationFiles lists the embedded .up.sql files for one engine in lexical
// order. A missing directory means the engine ships no migrations.
func migrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read embedded migrations (%s): %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// migrationApplied checks schema_migrations for a version row.
func migrationApplied(db *sql.DB, dbType, version string) (bool, error) {
	query := "SELECT 1 FROM schema_migrations WHERE version = ?"
	if dbType == "postgres" {
		query = "SELECT 1 FROM schema_migrations WHERE version = $1"
	}
	var one int
	err := db.QueryRow(query, version).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

// applyMigration executes one migration file and records it, both inside a
// single transaction so a failed migration leaves no trace.
func applyMigration(db *sql.DB, dbType, file, version string) error {
	data, err := embeddedMigrations.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", file, err)
	}
	record := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
	if dbType == "postgres" {
		record = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
	}
	if _, err := tx.Exec(string(data)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to execute migration %s: %w", version, err)
	}
	if _, err := tx.Exec(record, version, time.Now()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to commit migration %s: %w", version, err)
	}
	return nil
}

// ensureSchemaMigrationsTable creates the bookkeeping table when missing and
// upgrades pre-applied_at layouts in place.
func ensureSchemaMigrationsTable(db *sql.DB, dbType string) error {
	// MySQL cannot index TEXT without a length, so version is VARCHAR there.
	create := `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`
	if dbType == "mysql" {
		create = `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP)`
	}
	if _, err := db.Exec(create); err != nil {
		return err
	}
	hasColumn, err := schemaMigrationsHasAppliedAt(db, dbType)
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := db.Exec("ALTER TABLE schema_migrations ADD COLUMN applied_at TIMESTAMP"); err != nil {
			return fmt.Errorf("failed to add applied_at column to schema_migrations: %w", err)
		}
	}
	return nil
}

// schemaMigrationsHasAppliedAt reports whether the bookkeeping table already
// carries the applied_at column.
func schemaMigrationsHasAppliedAt(db *sql.DB, dbType string) (bool, error) {
	switch dbType {
	case "sqlite":
		rows, err := db.Query("PRAGMA table_info(schema_migrations)")
		if err != nil {
			return false, err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				cid, notnull, pk int
				name, typ        string
				dflt             sql.NullString
			)
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				return false, err
			}
			if name == "applied_at" {
				return true, nil
			}
		}
		return false, rows.Err()
	case "postgres", "mysql":
		query := `SELECT column_name FROM information_schema.columns WHERE table_name='schema_migrations'`
		if dbType == "mysql" {
			query += ` AND table_schema=DATABASE()`
		}
		rows, err := db.Query(query)
		if err != nil {
			return false, err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return false, err
			}
			if name == "applied_at" {
				return true, nil
			}
		}
		return false, rows.Err()
	default:
		// Unknown engines are left alone.
		return true, nil
	}
}

// RunDBMaintenance runs engine-appropriate housekeeping against the journal:
// VACUUM plus an integrity check for SQLite, VACUUM ANALYZE for Postgres,
// OPTIMIZE TABLE for MySQL. skipIntegrity drops the SQLite integrity_check,
// which dominates maintenance time on large journals.
func RunDBMaintenance(dbType, dsn string, skipIntegrity bool) error {
	sqlDB, err := sqlOpenFunc(driverFor(dbType), dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	// Bounded so a wedged engine cannot hang a scheduled maintenance job.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch dbType {
	case "sqlite":
		return maintainSqlite(ctx, sqlDB, skipIntegrity)
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
		return nil
	case "mysql":
		return maintainMySQL(ctx, sqlDB)
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", dbType)
	}
}

func maintainSqlite(ctx context.Context, sqlDB *sql.DB, skipIntegrity bool) error {
	// optimize is best-effort; some builds and filesystems reject it.
	if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		dbLogf("journal: sqlite optimize failed (ignored): %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("sqlite vacuum failed: %w", err)
	}
	_, _ = sqlDB.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")

	if skipIntegrity {
		return nil
	}
	var verdict string
	if row := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;"); row != nil {
		_ = row.Scan(&verdict)
		if verdict != "ok" {
			return fmt.Errorf("sqlite integrity_check failed: %s", verdict)
		}
	}
	return nil
}

func maintainMySQL(ctx context.Context, sqlDB *sql.DB) error {
	rows, err := sqlDB.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return fmt.Errorf("mysql show tables failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Per-table failures should not stop the sweep.
	var lastErr error
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return fmt.Errorf("mysql read table name failed: %w", err)
		}
		if _, err := sqlDB.ExecContext(ctx, "OPTIMIZE TABLE "+table); err != nil {
			dbLogf("journal: mysql optimize table %s failed: %v", table, err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
	}
	return rows.Err()
}

// CreateRun inserts a new run row into the journal.
func CreateRun(run *model.Run) error {
	return store.CreateRun(run)
}

// FinishRun records the final status of a run.
func FinishRun(id, status, failedStep string, finishedAt time.Time) error {
	return store.FinishRun(id, status, failedStep, finishedAt)
}

// GetRunByID retrieves a single run, or nil when it does not exist.
func GetRunByID(id string) (*model.Run, error) {
	return store.GetRunByID(id)
}

// GetAllRuns retrieves all runs from the journal, newest first.
func GetAllRuns() ([]model.Run, error) {
	return store.GetAllRuns()
}

// GetRecentRuns retrieves the most recent runs up to limit.
func GetRecentRuns(limit int) ([]model.Run, error) {
	return store.GetRecentRuns(limit)
}

// DeleteRun removes a run and its step results from the journal.
func DeleteRun(id string) error {
	return store.DeleteRun(id)
}

// AddStepResult appends a step result to a run.
func AddStepResult(res *model.StepResult) error {
	return store.AddStepResult(res)
}

// GetStepResults retrieves the step results of a run in plan order.
func GetStepResults(runID string) ([]model.StepResult, error) {
	return store.GetStepResults(runID)
}

// GetKnownHostKey retrieves the trusted public key for a given hostname.
func GetKnownHostKey(hostname string) (string, error) {
	return store.GetKnownHostKey(hostname)
}

// AddKnownHostKey adds a new trusted host key to the journal.
func AddKnownHostKey(hostname, key string) error {
	return store.AddKnownHostKey(hostname, key)
}

// DeleteKnownHostKey removes a trusted host key from the journal.
func DeleteKnownHostKey(hostname string) error {
	return store.DeleteKnownHostKey(hostname)
}

// GetAllKnownHosts retrieves all trusted hosts.
func GetAllKnownHosts() ([]model.KnownHost, error) {
	return store.GetAllKnownHosts()
}

// SearchRuns performs a tokenized substring search over the journal runs.
func SearchRuns(query string) ([]model.Run, error) {
	return SearchRunsBun(store.BunDB(), query)
}

// SearchRunsExpr evaluates a filter expression (see the filterexpr package
// for the accepted syntax) against the journal runs.
func SearchRunsExpr(expr string) ([]model.Run, error) {
	return SearchRunsExprBun(store.BunDB(), expr)
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return store.GetAllAuditLogEntries()
}

// LogAction records an audit trail event.
func LogAction(action string, details string) error {
	// Prefer an injected AuditWriter when available (useful for tests).
	if w := DefaultAuditWriter(); w != nil {
		return w.LogAction(action, details)
	}
	return store.LogAction(action, details)
}

// ExportDataForBackup retrieves all data from the journal for a backup.
func ExportDataForBackup() (*model.BackupData, error) {
	return store.ExportDataForBackup()
}

// ImportDataFromBackup restores the journal from a backup data structure.
func ImportDataFromBackup(backup *model.BackupData) error {
	return store.ImportDataFromBackup(backup)
}

// IntegrateDataFromBackup restores the journal from a backup data structure in a non-destructive way.
func IntegrateDataFromBackup(backup *model.BackupData) error {
	return store.IntegrateDataFromBackup(backup)
}
