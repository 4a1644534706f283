package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createCoursesTable(ctx, db); err != nil {
		return err
	}
	if err := createDescriptionsTable(ctx, db); err != nil {
		return err
	}
	return createMetaTable(ctx, db)
}

func createCoursesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT,
		is_paid INTEGER NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		num_subscribers INTEGER NOT NULL DEFAULT 0,
		num_reviews INTEGER NOT NULL DEFAULT 0,
		num_lectures INTEGER NOT NULL DEFAULT 0,
		level TEXT,
		content_duration REAL NOT NULL DEFAULT 0,
		published_at INTEGER NOT NULL DEFAULT 0,
		subject TEXT,
		imported_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_courses_subject ON courses(subject);
	CREATE INDEX IF NOT EXISTS idx_courses_level ON courses(level);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create courses table: %w", err)
	}
	return nil
}

// createDescriptionsTable stores generated course overviews.
// Rows are dropped with their course when a catalog import removes it.
func createDescriptionsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS course_descriptions (
		course_id INTEGER PRIMARY KEY REFERENCES courses(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		cached_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_course_descriptions_cached_at ON course_descriptions(cached_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create course_descriptions table: %w", err)
	}
	return nil
}

func createMetaTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS catalog_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create catalog_meta table: %w", err)
	}
	return nil
}
