// Package database is the SQLite-backed position index behind the API server.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if needed) the database at dbPath and applies the
// schema.
func New(dbPath string) (*DB, error) {
	dsn := MemoryPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets the HTTP handlers read while a save is in progress.
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbPath == MemoryPath {
		// every connection would otherwise see its own empty database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
	}

	db := &DB{conn: conn, path: dbPath}
	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database location.
func (db *DB) Path() string { return db.path }

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS positions (
		tx_hash         TEXT PRIMARY KEY,
		token_id        TEXT NOT NULL,
		investor        TEXT NOT NULL,
		principal       TEXT NOT NULL,
		target_apy      TEXT NOT NULL,
		start_time      TEXT NOT NULL,
		maturity_time   TEXT NOT NULL,
		status          TEXT NOT NULL,
		contract_type   TEXT NOT NULL DEFAULT '',
		template_name   TEXT NOT NULL DEFAULT '',
		storage_locator TEXT NOT NULL DEFAULT '',
		terms_hash      TEXT NOT NULL DEFAULT '',
		network         TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_investor ON positions(investor, start_time)`,
}

// Migrate applies the schema. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return nil
}
