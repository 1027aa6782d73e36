package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is recorded in the metadata table.
const SchemaVersion = "1"

// Open opens (creating if needed) the SQLite database at path with foreign
// keys enabled and the schema in place.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates every table and index if missing, in one transaction.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"symbols", createSymbolsTable},
		{"members", createMembersTable},
		{"enumerators", createEnumeratorsTable},
		{"conflicts", createConflictsTable},
		{"metadata", createMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO NOTHING`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the recorded schema version.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var version string
	err := db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
    qualified_name TEXT PRIMARY KEY,             -- Path joined with ::
    parent TEXT,                                 -- Enclosing namespace, NULL at the root
    position INTEGER NOT NULL,                   -- Depth-first order of the merged tree
    kind TEXT NOT NULL,                          -- namespace, class, struct, enum, function
    name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    line INTEGER NOT NULL,
    declaration_only INTEGER NOT NULL DEFAULT 0, -- Boolean
    return_type TEXT,                            -- Functions only
    params TEXT,                                 -- Functions only, JSON array of type tokens
    FOREIGN KEY (parent) REFERENCES symbols(qualified_name) ON DELETE CASCADE
)
`

const createMembersTable = `
CREATE TABLE IF NOT EXISTS members (
    symbol TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- 0-indexed declaration order
    kind TEXT NOT NULL,                          -- constructor, method, static_method, field
    name TEXT NOT NULL,
    return_type TEXT,
    field_type TEXT,
    params TEXT,                                 -- JSON array of type tokens
    is_const INTEGER NOT NULL DEFAULT 0,
    is_static INTEGER NOT NULL DEFAULT 0,
    file_path TEXT NOT NULL,
    line INTEGER NOT NULL,
    PRIMARY KEY (symbol, position),
    FOREIGN KEY (symbol) REFERENCES symbols(qualified_name) ON DELETE CASCADE
)
`

const createEnumeratorsTable = `
CREATE TABLE IF NOT EXISTS enumerators (
    symbol TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    value INTEGER NOT NULL,                      -- Positional value
    explicit TEXT,                               -- Written initializer, verbatim
    PRIMARY KEY (symbol, position),
    FOREIGN KEY (symbol) REFERENCES symbols(qualified_name) ON DELETE CASCADE
)
`

const createConflictsTable = `
CREATE TABLE IF NOT EXISTS conflicts (
    position INTEGER PRIMARY KEY,                -- Report order
    qualified_name TEXT NOT NULL,
    existing_kind TEXT NOT NULL,
    incoming_kind TEXT NOT NULL,
    existing_file TEXT NOT NULL,
    existing_line INTEGER NOT NULL,
    incoming_file TEXT NOT NULL,
    incoming_line INTEGER NOT NULL
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path)",
	"CREATE INDEX IF NOT EXISTS idx_members_name ON members(name)",
}
