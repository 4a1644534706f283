package genai

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/filters"
)

// DatasetSampleSize is the number of courses quoted to the model when
// answering a question about the catalog.
const DatasetSampleSize = 40

// DatasetFallbackAnswer is returned when a catalog question cannot be answered.
const DatasetFallbackAnswer = "Not available in the dataset."

// CourseSource provides the catalog for dataset questions.
type CourseSource interface {
	Courses() []catalog.Course
}

// Writer generates free-text replies. Each method has a templated fallback
// that is used without a model or when the model fails.
type Writer struct {
	gen     TextGenerator
	courses CourseSource
}

// NewWriter creates a Writer. gen and courses may be nil.
func NewWriter(gen TextGenerator, courses CourseSource) *Writer {
	return &Writer{gen: gen, courses: courses}
}

// NoResultsMessage implements dialogue.ResponseWriter.
func (w *Writer) NoResultsMessage(ctx context.Context, query string, fs filters.FilterSet) string {
	criteria := noResultsCriteria(fs)
	if available(w.gen) {
		text, err := w.gen.Generate(ctx, Request{
			Operation:   OpNoResults,
			Prompt:      NoResultsPrompt(query, criteria),
			Temperature: 0.7,
		})
		if err == nil {
			return text
		}
	}
	return NoResultsFallback(criteria)
}

// DescribeCourse writes a short overview of c.
func (w *Writer) DescribeCourse(ctx context.Context, c catalog.Course) string {
	if available(w.gen) {
		text, err := w.gen.Generate(ctx, Request{
			Operation:   OpDescribe,
			Prompt:      DescribeCoursePrompt(c),
			Temperature: 0.7,
		})
		if err == nil {
			return text
		}
	}
	return DescribeCourseFallback(c)
}

// AnswerDatasetQuestion implements dialogue.ResponseWriter using a random
// sample of the catalog as context.
func (w *Writer) AnswerDatasetQuestion(ctx context.Context, question string) string {
	if !available(w.gen) || w.courses == nil {
		return DatasetFallbackAnswer
	}
	courses := w.courses.Courses()
	if len(courses) == 0 {
		return DatasetFallbackAnswer
	}

	sample, err := SampleCSV(courses, DatasetSampleSize)
	if err != nil {
		return DatasetFallbackAnswer
	}
	text, err := w.gen.Generate(ctx, Request{
		Operation:   OpAnswer,
		Prompt:      DatasetPrompt(sample, question),
		Temperature: 0.2,
	})
	if err != nil {
		return DatasetFallbackAnswer
	}
	return text
}

// noResultsCriteria describes the failed search, e.g.
// "on python at beginner level that are free under ₹200".
func noResultsCriteria(fs filters.FilterSet) string {
	var parts []string
	if fs.HasKeywords() {
		parts = append(parts, "on "+strings.Join(fs.Keywords, " "))
	}
	if level := fs.Level.OrAll(); level != filters.LevelAll {
		parts = append(parts, "at "+string(level))
	}
	if fs.IsPaid != nil && !*fs.IsPaid {
		parts = append(parts, "that are free")
	}
	if filters.Positive(fs.MaxPrice) {
		parts = append(parts, "under ₹"+strconv.FormatFloat(*fs.MaxPrice, 'f', -1, 64))
	}
	if len(parts) == 0 {
		return "matching your criteria"
	}
	return strings.Join(parts, " ")
}

// NoResultsFallback is the templated reply for an empty search.
func NoResultsFallback(criteria string) string {
	return "😔 I couldn't find courses " + criteria + ". Let's try something different! You could:\n" +
		"• Search for a broader topic\n• Try a different skill level\n• Adjust your budget range\n\n" +
		"What would you like to explore?"
}

// DescribeCourseFallback is the templated course overview.
func DescribeCourseFallback(c catalog.Course) string {
	hours := math.Round(c.DurationHours*10) / 10
	return fmt.Sprintf("This %s course on %s covers %d lectures over %s hours. Perfect for learners looking to master %s!",
		c.Level, c.Subject, c.Lectures, strconv.FormatFloat(hours, 'f', 1, 64), c.Subject)
}

// csvHeader matches the column names of the source dataset.
var csvHeader = []string{
	"course_id", "course_title", "url", "is_paid", "price", "num_subscribers", "num_reviews",
	"num_lectures", "level", "content_duration", "published_timestamp", "subject",
}

// SampleCSV renders up to n randomly chosen courses as CSV with a header row.
func SampleCSV(courses []catalog.Course, n int) (string, error) {
	picked := courses
	if len(courses) > n {
		picked = make([]catalog.Course, 0, n)
		for _, i := range rand.Perm(len(courses))[:n] {
			picked = append(picked, courses[i])
		}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return "", err
	}
	for _, c := range picked {
		published := ""
		if !c.PublishedAt.IsZero() {
			published = c.PublishedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(c.ID),
			c.Title,
			c.URL,
			strconv.FormatBool(c.IsPaid),
			strconv.FormatFloat(c.Price, 'f', -1, 64),
			strconv.Itoa(c.Subscribers),
			strconv.Itoa(c.Reviews),
			strconv.Itoa(c.Lectures),
			c.Level,
			strconv.FormatFloat(c.DurationHours, 'f', -1, 64),
			published,
			c.Subject,
		}
		if err := cw.Write(record); err != nil {
			return "", err
		}
	}
	cw.Flush()
	return buf.String(), cw.Error()
}
