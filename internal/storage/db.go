// Package storage persists the cleaned course catalog and generated course
// descriptions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/course-advisor/internal/config"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// DB wraps the SQLite connections.
// Writes go through a single-connection pool so SQLite never sees two
// concurrent writers; reads use a separate pool.
type DB struct {
	writer   *sql.DB
	reader   *sql.DB
	path     string
	cacheTTL time.Duration // How long a generated description stays valid
}

// New opens (or creates) the database at dbPath and initializes the schema.
// cacheTTL bounds the age of cached course descriptions; zero keeps them forever.
func New(ctx context.Context, dbPath string, cacheTTL time.Duration) (*DB, error) {
	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writer, err := open(ctx, dbPath, 1)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection, so readers must share the writer.
	reader := writer
	if dbPath != memoryPath {
		reader, err = open(ctx, dbPath, 8)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
	}

	db := &DB{
		writer:   writer,
		reader:   reader,
		path:     dbPath,
		cacheTTL: cacheTTL,
	}

	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func open(ctx context.Context, dbPath string, maxOpen int) (*sql.DB, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)",
		dbPath, config.DatabaseBusyTimeout.Milliseconds())

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)
	if dbPath != memoryPath {
		conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// CacheTTL returns the configured description cache TTL.
func (db *DB) CacheTTL() time.Duration {
	return db.cacheTTL
}

// execBatch runs fn inside a writer transaction with a prepared statement.
func (db *DB) execBatch(ctx context.Context, tx *sql.Tx, query string, fn func(stmt *sql.Stmt) error) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	return fn(stmt)
}

// NewTestDB creates an in-memory database for tests.
func NewTestDB(ctx context.Context) (*DB, error) {
	return New(ctx, memoryPath, 0)
}
