package app

import (
	"context"
	"strconv"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/genai"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/storage"
	"golang.org/x/sync/singleflight"
)

var detailErrors = domerrors.NewWrapper("app", "course_detail")

// courseLookup finds courses in the live index.
type courseLookup interface {
	Course(id int) (catalog.Course, bool)
}

// describer writes a course overview.
type describer interface {
	DescribeCourse(ctx context.Context, c catalog.Course) string
}

// detailStore is the storage used for course details.
type detailStore interface {
	GetCourse(ctx context.Context, id int) (catalog.Course, error)
	storage.DescriptionCache
}

// courseDetails serves a course with its generated overview. Overviews are
// cached in SQLite and concurrent misses for the same course share one
// generation.
type courseDetails struct {
	index   courseLookup
	store   detailStore
	writer  describer
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func newCourseDetails(index courseLookup, store detailStore, writer describer, m *metrics.Metrics, log *logger.Logger) *courseDetails {
	return &courseDetails{
		index:   index,
		store:   store,
		writer:  writer,
		metrics: m,
		logger:  log.WithModule("details"),
	}
}

// CourseDetail implements webhook.CourseDetailer. Unknown ids wrap
// errors.ErrNotFound.
func (d *courseDetails) CourseDetail(ctx context.Context, id int) (catalog.Course, string, error) {
	course, ok := d.index.Course(id)
	if !ok {
		var err error
		if course, err = d.store.GetCourse(ctx, id); err != nil {
			if domerrors.IsNotFound(err) {
				return catalog.Course{}, "", err
			}
			return catalog.Course{}, "", detailErrors.Wrap(err, "course lookup failed")
		}
	}

	text, hit, err := d.store.GetDescription(ctx, id)
	if err != nil {
		d.logger.WithError(err).WithField("course_id", id).Warn("Description cache read failed")
	}
	if hit {
		d.metrics.RecordDescriptionCache(true)
		return course, text, nil
	}
	d.metrics.RecordDescriptionCache(false)

	v, _, shared := d.group.Do(strconv.Itoa(id), func() (any, error) {
		text := d.writer.DescribeCourse(ctx, course)
		// Templated overviews are cheap to rebuild; only model output is cached.
		if text != genai.DescribeCourseFallback(course) {
			if err := d.store.SaveDescription(ctx, id, text); err != nil {
				d.logger.WithError(err).WithField("course_id", id).Warn("Description cache write failed")
			}
		}
		return text, nil
	})
	if shared {
		d.metrics.RecordSingleflightDedup("description")
	}
	return course, v.(string), nil
}
