package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/genai"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	calls   atomic.Int32
	text    string
	release chan struct{} // optional gate to hold generations open
}

func (w *countingWriter) DescribeCourse(_ context.Context, c catalog.Course) string {
	w.calls.Add(1)
	if w.release != nil {
		<-w.release
	}
	if w.text == "" {
		return genai.DescribeCourseFallback(c)
	}
	return w.text
}

type emptyIndex struct{}

func (emptyIndex) Course(int) (catalog.Course, bool) { return catalog.Course{}, false }

func newDetailsDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.NewTestDB(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.ReplaceCourses(ctx, "test.csv", []catalog.Course{
		{ID: 1, Title: "learn python programming", Subject: "web development", Level: "beginner level"},
	}))
	return db
}

func TestCourseDetails_CachesModelText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newDetailsDB(t)
	writer := &countingWriter{text: "A friendly start with Python."}
	d := newCourseDetails(emptyIndex{}, db, writer, nil, logger.New("error"))

	course, text, err := d.CourseDetail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "learn python programming", course.Title)
	assert.Equal(t, "A friendly start with Python.", text)

	_, text, err = d.CourseDetail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A friendly start with Python.", text)
	assert.Equal(t, int32(1), writer.calls.Load(), "second lookup is served from the cache")
}

func TestCourseDetails_FallbackNotCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newDetailsDB(t)
	writer := &countingWriter{}
	d := newCourseDetails(emptyIndex{}, db, writer, nil, logger.New("error"))

	for range 2 {
		_, _, err := d.CourseDetail(ctx, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), writer.calls.Load())

	_, ok, err := db.GetDescription(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCourseDetails_NotFound(t *testing.T) {
	t.Parallel()
	d := newCourseDetails(emptyIndex{}, newDetailsDB(t), &countingWriter{}, nil, logger.New("error"))

	_, _, err := d.CourseDetail(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, domerrors.IsNotFound(err))
}

func TestCourseDetails_ConcurrentMissesShareGeneration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newDetailsDB(t)
	writer := &countingWriter{text: "Shared overview.", release: make(chan struct{})}
	d := newCourseDetails(emptyIndex{}, db, writer, nil, logger.New("error"))

	const callers = 5
	var wg sync.WaitGroup
	texts := make([]string, callers)
	for i := range callers {
		wg.Go(func() {
			_, texts[i], _ = d.CourseDetail(ctx, 1)
		})
	}

	// Let the first generation start, then give the others time to join it.
	require.Eventually(t, func() bool { return writer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(writer.release)
	wg.Wait()

	for _, text := range texts {
		assert.Equal(t, "Shared overview.", text)
	}
	assert.LessOrEqual(t, writer.calls.Load(), int32(callers))
}

func TestCourseDetails_StorageFailureWrapped(t *testing.T) {
	t.Parallel()
	db := newDetailsDB(t)
	require.NoError(t, db.Close())
	d := newCourseDetails(emptyIndex{}, db, &countingWriter{}, nil, logger.New("error"))

	_, _, err := d.CourseDetail(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, domerrors.IsNotFound(err))
	assert.Equal(t, "course lookup failed", domerrors.GetUserMessage(err))
}
