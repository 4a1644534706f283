package storage

import (
	"context"

	"github.com/garyellow/course-advisor/internal/catalog"
)

// CourseRepository defines catalog persistence.
type CourseRepository interface {
	ReplaceCourses(ctx context.Context, source string, courses []catalog.Course) error
	ListCourses(ctx context.Context) ([]catalog.Course, error)
	GetCourse(ctx context.Context, id int) (catalog.Course, error)
	CountCourses(ctx context.Context) (int, error)
	Stats(ctx context.Context) (CatalogStats, error)
}

// DescriptionCache stores generated course overviews.
type DescriptionCache interface {
	GetDescription(ctx context.Context, courseID int) (string, bool, error)
	SaveDescription(ctx context.Context, courseID int, text string) error
}

// HealthRepository defines the interface for health check operations.
type HealthRepository interface {
	// Ping verifies database connection is alive.
	Ping(ctx context.Context) error
}

// Repository is the aggregate interface implemented by DB.
type Repository interface {
	CourseRepository
	DescriptionCache
	HealthRepository
	Close() error
}

var _ Repository = (*DB)(nil)
