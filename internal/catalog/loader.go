package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	domerrors "github.com/garyellow/course-advisor/internal/errors"
)

// Column names of the course dataset.
const (
	ColID          = "course_id"
	ColTitle       = "course_title"
	ColURL         = "url"
	ColIsPaid      = "is_paid"
	ColPrice       = "price"
	ColSubscribers = "num_subscribers"
	ColReviews     = "num_reviews"
	ColLectures    = "num_lectures"
	ColLevel       = "level"
	ColDuration    = "content_duration"
	ColPublished   = "published_timestamp"
	ColSubject     = "subject"
)

// Columns lists the dataset header in its canonical order.
var Columns = []string{
	ColID, ColTitle, ColURL, ColIsPaid, ColPrice, ColSubscribers, ColReviews,
	ColLectures, ColLevel, ColDuration, ColPublished, ColSubject,
}

var requiredColumns = []string{ColID, ColTitle}

// Result is the outcome of parsing a dataset.
type Result struct {
	Courses    []Course
	Rejected   []*domerrors.RowError // Rows that failed to parse or validate
	Duplicates int                   // Rows dropped because their id was already seen
}

// Parse reads a CSV dataset and returns the cleaned courses in file order.
//
// Cleaning rules:
//   - blank cells become zero values
//   - title, subject and level are lower-cased
//   - a non-numeric price (e.g. "Free") becomes 0, negatives are clamped to 0
//   - rows repeating an earlier course id are dropped
//
// Rows that cannot be parsed are reported in Result.Rejected rather than failing
// the whole load. A missing header or required column is an error.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", domerrors.ErrCatalogEmpty)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	p := &rowParser{
		index:    index,
		lower:    cases.Lower(language.Und),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	res := &Result{}
	seen := make(map[int]struct{})

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Rejected = append(res.Rejected, &domerrors.RowError{Line: perr.StartLine, Err: perr.Err})
				continue
			}
			return nil, fmt.Errorf("read rows: %w", err)
		}
		line, _ := reader.FieldPos(0)

		course, err := p.parse(record)
		if err != nil {
			res.Rejected = append(res.Rejected, &domerrors.RowError{Line: line, Err: err})
			continue
		}
		if _, dup := seen[course.ID]; dup {
			res.Duplicates++
			continue
		}
		seen[course.ID] = struct{}{}
		res.Courses = append(res.Courses, course)
	}

	return res, nil
}

type rowParser struct {
	index    map[string]int
	lower    cases.Caser
	validate *validator.Validate
}

func (p *rowParser) field(record []string, col string) string {
	i, ok := p.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (p *rowParser) parse(record []string) (Course, error) {
	var c Course
	var err error

	if c.ID, err = parseInt(p.field(record, ColID)); err != nil {
		return c, fmt.Errorf("%s: %w", ColID, err)
	}
	c.Title = p.lower.String(p.field(record, ColTitle))
	c.URL = p.field(record, ColURL)
	c.Level = p.lower.String(p.field(record, ColLevel))
	c.Subject = p.lower.String(p.field(record, ColSubject))
	c.Price = parsePrice(p.field(record, ColPrice))
	c.IsPaid = parsePaid(p.field(record, ColIsPaid), c.Price)

	if c.Subscribers, err = parseInt(p.field(record, ColSubscribers)); err != nil {
		return c, fmt.Errorf("%s: %w", ColSubscribers, err)
	}
	if c.Reviews, err = parseInt(p.field(record, ColReviews)); err != nil {
		return c, fmt.Errorf("%s: %w", ColReviews, err)
	}
	if c.Lectures, err = parseInt(p.field(record, ColLectures)); err != nil {
		return c, fmt.Errorf("%s: %w", ColLectures, err)
	}
	if c.DurationHours, err = parseFloat(p.field(record, ColDuration)); err != nil {
		return c, fmt.Errorf("%s: %w", ColDuration, err)
	}
	if v := p.field(record, ColPublished); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			c.PublishedAt = ts.UTC()
		}
	}

	if err := p.validate.Struct(c); err != nil {
		return c, validationError(err)
	}
	return c, nil
}

// validationError flattens validator errors into the first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domerrors.NewValidationError(fe.Field(), "failed "+fe.Tag())
	}
	return err
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Some exports write integral columns as floats.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parsePaid reads the is_paid flag, falling back to the price when the
// cell is blank or unrecognized.
func parsePaid(s string, price float64) bool {
	if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
		return b
	}
	return price > 0
}
