// Package relstore is the durable relational metadata store for akin:
// projects, code units, similarity pairs, and similarity groups, backed by
// a single on-disk SQLite database (modernc.org/sqlite, no CGO).
package relstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/vimo-dev/akin/internal/apperr"
)

// Store is the concrete SQLite-backed relational metadata store.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// validateIntegrity checks an existing database file before opening it for
// read/write, mirroring the corruption-detection pattern of sibling
// indexes in this codebase.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open creates or opens the relational store at path, creating the schema
// if absent. WAL mode and a single-writer connection pool keep concurrent
// readers (CLI queries) from blocking the writer (index/scan).
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.New(apperr.ErrCodeFileNotFound, "failed to create database directory", err)
	}

	if err := validateIntegrity(path); err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "database failed integrity check", err)
	}

	return open(path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
}

// OpenInMemory creates a transient store for tests and one-shot queries.
func OpenInMemory() (*Store, error) {
	return open(":memory:", ":memory:")
}

func open(dsn, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to open database", err)
	}

	db.SetMaxOpenConns(1) // single writer: avoids SQLITE_BUSY under WAL
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to set pragma: "+p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, apperr.New(apperr.ErrCodeDatabaseOpen, "failed to initialize schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
	INSERT OR IGNORE INTO schema_version (version) VALUES (1);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		root_path TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		last_indexed_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS similarity_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		pattern TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS code_units (
		qualified_name TEXT PRIMARY KEY,
		project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		file_path TEXT NOT NULL,
		kind TEXT NOT NULL,
		range_start INTEGER NOT NULL,
		range_end INTEGER NOT NULL,
		selection_line INTEGER NOT NULL DEFAULT 0,
		selection_column INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		structure_hash TEXT NOT NULL,
		embedding BLOB,
		group_id INTEGER REFERENCES similarity_groups(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_code_units_project ON code_units(project_id);
	CREATE INDEX IF NOT EXISTS idx_code_units_content_hash ON code_units(content_hash);
	CREATE INDEX IF NOT EXISTS idx_code_units_structure_hash ON code_units(structure_hash);
	CREATE INDEX IF NOT EXISTS idx_code_units_file ON code_units(project_id, file_path);

	CREATE TABLE IF NOT EXISTS similar_pairs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		unit_a TEXT NOT NULL REFERENCES code_units(qualified_name) ON DELETE CASCADE,
		unit_b TEXT NOT NULL REFERENCES code_units(qualified_name) ON DELETE CASCADE,
		similarity REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		trigger_reason TEXT,
		UNIQUE(unit_a, unit_b)
	);
	CREATE INDEX IF NOT EXISTS idx_similar_pairs_status ON similar_pairs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
