package dialogue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/course-advisor/internal/catalog"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/retrieval"
)

func TestStore_GetOrCreate(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	store := NewStore(time.Minute, m)

	a := store.GetOrCreate("abc")
	b := store.GetOrCreate("abc")
	assert.Same(t, a, b)
	assert.Equal(t, "abc", a.ID)

	fresh := store.GetOrCreate("")
	_, err := uuid.Parse(fresh.ID)
	require.NoError(t, err)
	assert.NotSame(t, a, fresh)

	assert.Equal(t, 2, store.Count())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsActive))
}

func TestStore_GetAndDelete(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute, nil)

	_, ok := store.Get("missing")
	assert.False(t, ok)

	created := store.GetOrCreate("abc")
	got, ok := store.Get("abc")
	require.True(t, ok)
	assert.Same(t, created, got)

	assert.True(t, store.Delete("abc"))
	assert.False(t, store.Delete("abc"))
	_, ok = store.Get("abc")
	assert.False(t, ok)
	assert.Zero(t, store.Count())
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewStore(20*time.Millisecond, nil)
	store.GetOrCreate("abc")

	// Get refreshes the expiry, so poll the count the janitor maintains.
	assert.Eventually(t, func() bool {
		return store.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStore_Flush(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute, nil)
	store.GetOrCreate("a")
	store.GetOrCreate("b")
	store.Flush()
	assert.Zero(t, store.Count())
}

func TestSnapshot_Page(t *testing.T) {
	t.Parallel()

	results := make([]retrieval.RankedResult, 12)
	for i := range results {
		results[i] = retrieval.RankedResult{Course: catalog.Course{ID: i + 1}}
	}
	snap := Snapshot{Results: results, Total: 40}

	tests := []struct {
		name  string
		page  int
		size  int
		first int
		count int
		pages int
	}{
		{"first page", 1, 5, 1, 5, 3},
		{"last partial page", 3, 5, 11, 2, 3},
		{"default size", 2, 0, 6, 5, 3},
		{"past the end", 4, 5, 0, 0, 3},
		{"before the start", 0, 5, 0, 0, 3},
		{"one big page", 1, 20, 1, 12, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items, pages := snap.Page(tt.page, tt.size)
			assert.Equal(t, tt.pages, pages)
			require.Len(t, items, tt.count)
			if tt.count > 0 {
				assert.Equal(t, tt.first, items[0].CourseID())
			}
		})
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewSession("s1")
	s.results = []retrieval.RankedResult{{Course: catalog.Course{ID: 1}}}

	snap := s.Snapshot()
	snap.Results[0].Course.ID = 99
	assert.Equal(t, 1, s.results[0].Course.ID)

	s.Reset()
	assert.Empty(t, s.Snapshot().Results)
}
