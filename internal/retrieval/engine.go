// Package retrieval ranks catalog courses against a query with TF-IDF
// cosine similarity and applies structured filters.
package retrieval

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/filters"
	"github.com/garyellow/course-advisor/internal/metrics"
)

// DefaultTopN is used when Options.TopN is not positive.
const DefaultTopN = 10

// Options controls ranking cut-offs.
type Options struct {
	// MinMatchPercent drops courses scoring below it. Zero admits every
	// course, including those sharing no term with the query.
	MinMatchPercent float64
	TopN            int
}

// RankedResult is one matched course with its similarity score in [0, 100].
type RankedResult struct {
	Course       catalog.Course `json:"course"`
	MatchPercent float64        `json:"match_percent"`
}

// CourseID returns the matched course's ID.
func (r RankedResult) CourseID() int { return r.Course.ID }

// Result holds the top ranked courses and how many courses passed every filter.
type Result struct {
	Items []RankedResult
	Total int
}

// Engine serves retrieval over the current index. Indexes are swapped
// atomically so reloads never block readers.
type Engine struct {
	index   atomic.Pointer[Index]
	opts    Options
	metrics *metrics.Metrics
}

// NewEngine creates an engine without an index; call Swap before Retrieve.
func NewEngine(opts Options, m *metrics.Metrics) *Engine {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	return &Engine{opts: opts, metrics: m}
}

// Swap installs idx as the active index.
func (e *Engine) Swap(idx *Index) {
	e.index.Store(idx)
	if idx != nil && e.metrics != nil {
		e.metrics.SetIndexSize(idx.Len(), idx.VocabularySize())
	}
}

// Index returns the active index, or nil before the first Swap.
func (e *Engine) Index() *Index { return e.index.Load() }

// Ready reports whether an index is installed.
func (e *Engine) Ready() bool { return e.index.Load() != nil }

// Course looks up a course in the active index.
func (e *Engine) Course(id int) (catalog.Course, bool) {
	idx := e.index.Load()
	if idx == nil {
		return catalog.Course{}, false
	}
	return idx.Course(id)
}

// Courses returns the indexed catalog, or nil before the first Swap.
// The slice is shared and must not be modified.
func (e *Engine) Courses() []catalog.Course {
	idx := e.index.Load()
	if idx == nil {
		return nil
	}
	return idx.Courses()
}

// Retrieve ranks courses for query under fs. The semantic text is the
// keywords joined by spaces, or the lower-cased query when there are none.
//
// Courses scoring below MinMatchPercent are dropped, then the level, paid
// and (for paid queries only) price filters are applied. Survivors are
// sorted by score, ties keeping catalog order, and cut to TopN. An empty
// result is not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, fs filters.FilterSet) (Result, error) {
	idx := e.index.Load()
	if idx == nil {
		return Result{}, domerrors.ErrIndexNotReady
	}
	start := time.Now()
	fs = fs.Normalize()

	text := strings.Join(fs.Keywords, " ")
	if text == "" {
		text = strings.ToLower(query)
	}

	scores := idx.Similarities(text)
	matches := make([]RankedResult, 0)
	for i, c := range idx.courses {
		pct := scores[i] * 100
		if pct < e.opts.MinMatchPercent {
			continue
		}
		if !accepts(c, fs) {
			continue
		}
		matches = append(matches, RankedResult{Course: c, MatchPercent: pct})
	}

	slices.SortStableFunc(matches, func(a, b RankedResult) int {
		switch {
		case a.MatchPercent > b.MatchPercent:
			return -1
		case a.MatchPercent < b.MatchPercent:
			return 1
		default:
			return 0
		}
	})

	res := Result{Total: len(matches), Items: matches}
	if len(res.Items) > e.opts.TopN {
		res.Items = res.Items[:e.opts.TopN]
	}

	if e.metrics != nil {
		e.metrics.RecordRetrieval(res.Total, time.Since(start))
	}
	slog.DebugContext(ctx, "retrieval complete",
		"semantic_text", text,
		"level", fs.Level,
		"total", res.Total,
		"returned", len(res.Items))
	return res, nil
}

func accepts(c catalog.Course, fs filters.FilterSet) bool {
	if fs.Level != filters.LevelAll && c.Level != string(fs.Level) {
		return false
	}
	if fs.IsPaid != nil {
		if c.IsPaid != *fs.IsPaid {
			return false
		}
		if *fs.IsPaid {
			if fs.MinPrice != nil && c.Price < *fs.MinPrice {
				return false
			}
			if fs.MaxPrice != nil && c.Price > *fs.MaxPrice {
				return false
			}
		}
	}
	return true
}
