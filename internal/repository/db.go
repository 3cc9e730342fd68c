package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rate_records (
			id TEXT PRIMARY KEY,
			date DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rate_records_date ON rate_records(date)`,

		// One row per (record, series). The primary key makes field writes
		// first-writer-wins under INSERT OR IGNORE: a populated field is
		// never overwritten.
		`CREATE TABLE IF NOT EXISTS record_fields (
			record_id TEXT NOT NULL,
			series TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (record_id, series),
			FOREIGN KEY (record_id) REFERENCES rate_records(id)
		)`,

		`CREATE TABLE IF NOT EXISTS ledgers (
			id TEXT PRIMARY KEY,
			series TEXT NOT NULL,
			last_checked DATETIME NOT NULL,
			last_known_source DATETIME NOT NULL
		)`,

		// Set semantics on (ledger_id, date): detection appends with
		// INSERT OR IGNORE so overlapping passes cannot duplicate a day.
		`CREATE TABLE IF NOT EXISTS ledger_missing (
			ledger_id TEXT NOT NULL,
			date DATETIME NOT NULL,
			PRIMARY KEY (ledger_id, date),
			FOREIGN KEY (ledger_id) REFERENCES ledgers(id)
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_conflicts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ledger_id TEXT NOT NULL,
			date DATETIME NOT NULL,
			record_id TEXT NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			UNIQUE (ledger_id, date, record_id),
			FOREIGN KEY (ledger_id) REFERENCES ledgers(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_conflicts_unresolved
			ON ledger_conflicts(ledger_id, resolved)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
