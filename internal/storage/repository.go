package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
)

const courseColumns = `id, title, url, is_paid, price, num_subscribers, num_reviews,
	num_lectures, level, content_duration, published_at, subject`

// Meta keys written by ReplaceCourses.
const (
	metaSource     = "source"
	metaImportedAt = "imported_at"
)

// ReplaceCourses makes courses the complete catalog in one transaction.
// Existing rows are upserted; rows missing from courses are deleted together
// with their cached descriptions.
func (db *DB) ReplaceCourses(ctx context.Context, source string, courses []catalog.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			is_paid = excluded.is_paid,
			price = excluded.price,
			num_subscribers = excluded.num_subscribers,
			num_reviews = excluded.num_reviews,
			num_lectures = excluded.num_lectures,
			level = excluded.level,
			content_duration = excluded.content_duration,
			published_at = excluded.published_at,
			subject = excluded.subject,
			imported_at = excluded.imported_at
	`

	start := time.Now()
	importedAt := start.UnixNano()

	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = db.execBatch(ctx, tx, query, func(stmt *sql.Stmt) error {
		for _, c := range courses {
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.Title, c.URL, c.IsPaid, c.Price, c.Subscribers, c.Reviews,
				c.Lectures, c.Level, c.DurationHours, publishedUnix(c.PublishedAt), c.Subject,
				importedAt,
			); err != nil {
				return fmt.Errorf("save course %d: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE imported_at < ?`, importedAt)
	if err != nil {
		return fmt.Errorf("delete stale courses: %w", err)
	}
	removed, _ := res.RowsAffected()

	meta := `INSERT INTO catalog_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := tx.ExecContext(ctx, meta, metaSource, source); err != nil {
		return fmt.Errorf("save catalog source: %w", err)
	}
	if _, err := tx.ExecContext(ctx, meta, metaImportedAt, strconv.FormatInt(start.Unix(), 10)); err != nil {
		return fmt.Errorf("save import time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	duration := time.Since(start)
	slog.DebugContext(ctx, "catalog import stored",
		"count", len(courses),
		"removed", removed,
		"duration_ms", duration.Milliseconds())

	if duration > 5*time.Second {
		slog.WarnContext(ctx, "slow batch operation",
			"operation", "ReplaceCourses",
			"count", len(courses),
			"duration_ms", duration.Milliseconds())
	}
	return nil
}

// ListCourses returns every stored course ordered by id.
func (db *DB) ListCourses(ctx context.Context) ([]catalog.Course, error) {
	rows, err := db.reader.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var courses []catalog.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

// GetCourse returns the course with the given id, or an error wrapping
// errors.ErrNotFound.
func (db *DB) GetCourse(ctx context.Context, id int) (catalog.Course, error) {
	row := db.reader.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Course{}, fmt.Errorf("course %d: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query course",
			"course_id", id,
			"error", err)
		return catalog.Course{}, err
	}
	return c, nil
}

// CountCourses returns the number of stored courses.
func (db *DB) CountCourses(ctx context.Context) (int, error) {
	var n int
	if err := db.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

// GetDescription returns the cached overview for a course.
// ok is false when nothing is cached or the entry is older than the cache TTL.
func (db *DB) GetDescription(ctx context.Context, courseID int) (text string, ok bool, err error) {
	var cachedAt int64
	err = db.reader.QueryRowContext(ctx,
		`SELECT description, cached_at FROM course_descriptions WHERE course_id = ?`, courseID,
	).Scan(&text, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query description: %w", err)
	}
	if db.cacheTTL > 0 && time.Since(time.Unix(cachedAt, 0)) > db.cacheTTL {
		return "", false, nil
	}
	return text, true, nil
}

// SaveDescription caches a generated overview for a stored course.
func (db *DB) SaveDescription(ctx context.Context, courseID int, text string) error {
	query := `
		INSERT INTO course_descriptions (course_id, description, cached_at)
		VALUES (?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET
			description = excluded.description,
			cached_at = excluded.cached_at
	`
	if _, err := db.writer.ExecContext(ctx, query, courseID, text, time.Now().Unix()); err != nil {
		return fmt.Errorf("save description for course %d: %w", courseID, err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(s rowScanner) (catalog.Course, error) {
	var (
		c         catalog.Course
		url       sql.NullString
		level     sql.NullString
		subject   sql.NullString
		published int64
	)
	err := s.Scan(&c.ID, &c.Title, &url, &c.IsPaid, &c.Price, &c.Subscribers, &c.Reviews,
		&c.Lectures, &level, &c.DurationHours, &published, &subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan course: %w", err)
	}
	c.URL = url.String
	c.Level = level.String
	c.Subject = subject.String
	if published != 0 {
		c.PublishedAt = time.Unix(published, 0).UTC()
	}
	return c, nil
}

func publishedUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
