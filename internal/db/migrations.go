// ABOUTME: Database schema migrations and version management.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// migration represents a single schema migration with version, name, and SQL statements.
type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "init_core_tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS machines (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				provider TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS windows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				machine_id TEXT NOT NULL,
				window_number INTEGER NOT NULL,
				gold_balance INTEGER NOT NULL DEFAULT 0,
				user_id TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS orders (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				staff_id TEXT NOT NULL,
				amount REAL NOT NULL,
				date TEXT NOT NULL,
				status TEXT NOT NULL,
				completed_amount REAL NOT NULL DEFAULT 0,
				remaining_amount REAL NOT NULL DEFAULT 0,
				snapshots_json TEXT,
				results_json TEXT,
				history_json TEXT,
				total_consumed INTEGER NOT NULL DEFAULT 0,
				loss INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS requests (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				staff_id TEXT NOT NULL,
				staff_name TEXT NOT NULL,
				type TEXT NOT NULL,
				window_id TEXT,
				status TEXT NOT NULL,
				created_at TEXT NOT NULL,
				processed_at TEXT,
				processed_by TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS purchases (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				machine_id TEXT,
				quantity INTEGER NOT NULL DEFAULT 0,
				cost REAL NOT NULL DEFAULT 0,
				note TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS staff (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				tenant_id TEXT PRIMARY KEY,
				gold_rate REAL NOT NULL DEFAULT 0,
				window_price REAL NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				ts TEXT NOT NULL,
				tenant_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				window_id TEXT,
				order_id TEXT,
				msg TEXT,
				json TEXT
			)`,
		},
	},
	{
		version: 2,
		name:    "tenant_indexes",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_windows_tenant ON windows(tenant_id)`,
			`CREATE INDEX IF NOT EXISTS idx_windows_machine ON windows(tenant_id, machine_id)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_tenant_status ON orders(tenant_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_requests_tenant_status ON requests(tenant_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_purchases_tenant ON purchases(tenant_id)`,
			`CREATE INDEX IF NOT EXISTS idx_events_tenant_ts ON events(tenant_id, ts)`,
		},
	},
}

// Migrate runs any pending migrations against the provided database.
//
// Migrations are applied in version order. Each migration runs in a
// separate transaction for atomicity. Returns an error if any step fails.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := validateMigrations(); err != nil {
		return err
	}
	if err := ensureSchemaMigrations(db); err != nil {
		return err
	}
	applied, err := loadAppliedVersions(db)
	if err != nil {
		return err
	}
	if err := verifyKnownMigrations(applied); err != nil {
		return err
	}
	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func ensureSchemaMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func loadAppliedVersions(db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return applied, nil
}

// verifyKnownMigrations ensures all applied migrations still exist in the
// codebase, catching schema drift from removed migrations.
func verifyKnownMigrations(applied map[int]struct{}) error {
	known := make(map[int]struct{}, len(migrations))
	for _, m := range migrations {
		known[m.version] = struct{}{}
	}
	for version := range applied {
		if _, ok := known[version]; !ok {
			return fmt.Errorf("unknown schema migration version %d", version)
		}
	}
	return nil
}

// applyMigration executes a single migration within a transaction.
func applyMigration(db *sql.DB, m migration) error {
	if len(m.statements) == 0 {
		return fmt.Errorf("migration %d has no statements", m.version)
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	for _, stmt := range m.statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := tx.Exec(trimmed); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %d: %w", m.version, err)
		}
	}
	appliedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`, m.version, m.name, appliedAt); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func validateMigrations() error {
	if len(migrations) == 0 {
		return errors.New("no migrations defined")
	}
	seen := make(map[int]struct{}, len(migrations))
	prev := 0
	for _, m := range migrations {
		if m.version <= 0 {
			return fmt.Errorf("migration version must be positive: %d", m.version)
		}
		if _, ok := seen[m.version]; ok {
			return fmt.Errorf("duplicate migration version %d", m.version)
		}
		if m.version < prev {
			return fmt.Errorf("migration version %d is out of order", m.version)
		}
		if strings.TrimSpace(m.name) == "" {
			return fmt.Errorf("migration %d missing name", m.version)
		}
		seen[m.version] = struct{}{}
		prev = m.version
	}
	return nil
}
