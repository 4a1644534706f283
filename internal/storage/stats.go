package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// CatalogStats summarizes the stored catalog.
type CatalogStats struct {
	Courses      int
	Paid         int
	Free         int
	Descriptions int
	BySubject    map[string]int
	ByLevel      map[string]int
	Source       string
	ImportedAt   time.Time // Zero if the catalog was never imported
}

// Stats aggregates counts over the stored catalog.
func (db *DB) Stats(ctx context.Context) (CatalogStats, error) {
	stats := CatalogStats{
		BySubject: make(map[string]int),
		ByLevel:   make(map[string]int),
	}

	err := db.reader.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN is_paid THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM course_descriptions)
		FROM courses`,
	).Scan(&stats.Courses, &stats.Paid, &stats.Descriptions)
	if err != nil {
		return stats, fmt.Errorf("count catalog: %w", err)
	}
	stats.Free = stats.Courses - stats.Paid

	if err := db.groupCount(ctx, "subject", stats.BySubject); err != nil {
		return stats, err
	}
	if err := db.groupCount(ctx, "level", stats.ByLevel); err != nil {
		return stats, err
	}

	source, err := db.meta(ctx, metaSource)
	if err != nil {
		return stats, err
	}
	stats.Source = source

	importedAt, err := db.meta(ctx, metaImportedAt)
	if err != nil {
		return stats, err
	}
	if sec, perr := strconv.ParseInt(importedAt, 10, 64); perr == nil {
		stats.ImportedAt = time.Unix(sec, 0).UTC()
	}

	return stats, nil
}

// groupCount fills out with COUNT(*) grouped by a fixed column name.
func (db *DB) groupCount(ctx context.Context, column string, out map[string]int) error {
	rows, err := db.reader.QueryContext(ctx,
		`SELECT COALESCE(`+column+`, ''), COUNT(*) FROM courses GROUP BY 1`)
	if err != nil {
		return fmt.Errorf("group courses by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		out[key] = n
	}
	return rows.Err()
}

func (db *DB) meta(ctx context.Context, key string) (string, error) {
	var v string
	err := db.reader.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read catalog meta %s: %w", key, err)
	}
	return v, nil
}
