package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
	"github.com/garyellow/course-advisor/internal/filters"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/retrieval"
)

type fixedClassifier Intent

func (c fixedClassifier) Classify(context.Context, string) Intent { return Intent(c) }

type stubWriter struct{}

func (stubWriter) NoResultsMessage(_ context.Context, query string, _ filters.FilterSet) string {
	return "no results for " + query
}

func (stubWriter) AnswerDatasetQuestion(_ context.Context, question string) string {
	return "answer: " + question
}

type retrieveCall struct {
	query string
	fs    filters.FilterSet
}

// stubRetriever returns total synthetic results and records every call.
type stubRetriever struct {
	mu    sync.Mutex
	total int
	err   error
	calls []retrieveCall
}

func (r *stubRetriever) Retrieve(_ context.Context, query string, fs filters.FilterSet) (retrieval.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, retrieveCall{query: query, fs: fs})
	if r.err != nil {
		return retrieval.Result{}, r.err
	}
	items := make([]retrieval.RankedResult, 0, min(r.total, retrieval.DefaultTopN))
	for i := range min(r.total, retrieval.DefaultTopN) {
		items = append(items, retrieval.RankedResult{
			Course:       catalog.Course{ID: i + 1, Title: fmt.Sprintf("course %d", i+1)},
			MatchPercent: 90,
		})
	}
	return retrieval.Result{Items: items, Total: r.total}, nil
}

func (r *stubRetriever) lastCall(t *testing.T) retrieveCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls)
	return r.calls[len(r.calls)-1]
}

func newTestEngine(r *stubRetriever, intent Intent, guided bool) *Engine {
	return NewEngine(Config{
		Parser:           filters.HeuristicParser{},
		Classifier:       fixedClassifier(intent),
		Writer:           stubWriter{},
		Retriever:        r,
		Metrics:          metrics.New(prometheus.NewRegistry()),
		GuidedRefinement: guided,
	})
}

func TestEngine_BareSubjectAsksForLevel(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 3}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")

	reply := e.Handle(context.Background(), s, "python")
	assert.Equal(t, KindPrompt, reply.Kind)
	assert.Equal(t, SlotLevel, reply.Awaiting)
	assert.Equal(t, "Great! I'll look for courses on **python**. "+questionLevel, reply.Text)
	assert.Empty(t, r.calls)

	snap := s.Snapshot()
	assert.True(t, snap.Context.HasSubject)
	assert.Equal(t, 1, snap.Context.AskedLevel)
	assert.Equal(t, "python", snap.State.PartialQuery)
}

func TestEngine_GuidedFlowSearchesWithCollectedFilters(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 3}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")
	ctx := context.Background()

	e.Handle(ctx, s, "python")

	reply := e.Handle(ctx, s, "beginner")
	assert.Equal(t, promptBudget, reply.Text)
	assert.Equal(t, SlotBudget, reply.Awaiting)

	reply = e.Handle(ctx, s, "free please")
	assert.Equal(t, KindResults, reply.Kind)
	assert.Equal(t, SlotNone, reply.Awaiting)
	assert.Equal(t, 3, reply.Total)
	assert.Len(t, reply.Results, 3)
	assert.Equal(t,
		"I found courses on **python** at **beginner level** that are **free**. Here are the top 3 recommendations:",
		reply.Text)

	call := r.lastCall(t)
	assert.Equal(t, "python", call.query)
	assert.Equal(t, []string{"python"}, call.fs.Keywords)
	assert.Equal(t, filters.LevelBeginner, call.fs.Level)
	require.NotNil(t, call.fs.IsPaid)
	assert.False(t, *call.fs.IsPaid)

	snap := s.Snapshot()
	assert.Empty(t, snap.State.PartialQuery)
	assert.True(t, snap.State.PartialFilters.IsZero())
	assert.Equal(t, "python", snap.State.LastQuery)
	require.NotNil(t, snap.State.LastFilters)
	assert.Equal(t, filters.LevelBeginner, snap.State.LastFilters.Level)
	assert.True(t, snap.Context.HasLevel)
	assert.True(t, snap.Context.HasBudget)
	assert.Len(t, snap.Results, 3)
}

func TestEngine_PaidBudgetAsksForPriceRange(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 2}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")
	ctx := context.Background()

	e.Handle(ctx, s, "excel")
	e.Handle(ctx, s, "intermediate")

	reply := e.Handle(ctx, s, "paid is fine")
	assert.Equal(t, promptPriceRange, reply.Text)
	assert.Equal(t, SlotPriceRange, reply.Awaiting)

	reply = e.Handle(ctx, s, "between 100 and 500")
	assert.Equal(t, KindResults, reply.Kind)

	call := r.lastCall(t)
	require.NotNil(t, call.fs.IsPaid)
	assert.True(t, *call.fs.IsPaid)
	assert.Equal(t, 100.0, *call.fs.MinPrice)
	assert.Equal(t, 500.0, *call.fs.MaxPrice)
	assert.Equal(t, filters.LevelIntermediate, call.fs.Level)
}

func TestEngine_ResetFromPriceRange(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 2}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")
	ctx := context.Background()

	e.Handle(ctx, s, "python")
	e.Handle(ctx, s, "expert")
	reply := e.Handle(ctx, s, "paid")
	require.Equal(t, SlotPriceRange, reply.Awaiting)

	reply = e.Handle(ctx, s, "start over")
	assert.Equal(t, replyReset, reply.Text)
	assert.Equal(t, KindChitChat, reply.Kind)
	assert.Equal(t, SlotNone, reply.Awaiting)

	snap := s.Snapshot()
	assert.Equal(t, ConversationContext{}, snap.Context)
	assert.Equal(t, SlotFillState{}, snap.State)
	assert.Empty(t, snap.Results)
	assert.Zero(t, snap.Total)
}

func TestEngine_VagueRequestCollectsSubject(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 4}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")
	ctx := context.Background()

	reply := e.Handle(ctx, s, "course")
	assert.Equal(t, promptSubjectShort, reply.Text)
	assert.Equal(t, SlotSubject, reply.Awaiting)

	reply = e.Handle(ctx, s, "data science")
	assert.Equal(t, fmt.Sprintf(promptLevelAfterSubject, "data science"), reply.Text)
	assert.Equal(t, SlotLevel, reply.Awaiting)
	assert.Equal(t, "course data science", s.Snapshot().State.PartialQuery)

	e.Handle(ctx, s, "any level")
	reply = e.Handle(ctx, s, "either is ok")
	assert.Equal(t, KindResults, reply.Kind)

	call := r.lastCall(t)
	assert.Equal(t, "course data science", call.query)
	assert.Equal(t, []string{"data", "science"}, call.fs.Keywords)
	assert.Equal(t, filters.LevelAll, call.fs.Level)
	assert.Nil(t, call.fs.IsPaid)
}

func TestEngine_GenericRequestAsksForTopic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&stubRetriever{}, IntentRecommendation, true)
	reply := e.Handle(context.Background(), NewSession("s1"), "i want to learn something")
	assert.Equal(t, promptSubjectGeneric, reply.Text)
	assert.Equal(t, SlotSubject, reply.Awaiting)
}

func TestEngine_ManyResultsOfferRefinement(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 120}
	e := newTestEngine(r, IntentRecommendation, false)
	s := NewSession("s1")
	ctx := context.Background()

	reply := e.Handle(ctx, s, "python")
	assert.Equal(t, KindResults, reply.Kind)
	assert.Equal(t, SlotRefinement, reply.Awaiting)
	assert.Equal(t,
		"I found courses on **python**. Here are the top 10 recommendations:\n\n"+
			"I found 120 courses. Would you like me to help narrow this down by skill level or budget?",
		reply.Text)
	assert.True(t, s.Snapshot().Context.AskedRefinement)

	// The refinement answer is a constraint on the previous search.
	reply = e.Handle(ctx, s, "for beginners")
	assert.Equal(t, KindResults, reply.Kind)
	assert.Equal(t, SlotNone, reply.Awaiting)
	assert.Equal(t,
		"Got it! Looking for beginner level. I found courses on **python** at **beginner level**. Here are the top 10 recommendations:",
		reply.Text)

	call := r.lastCall(t)
	assert.Equal(t, "python", call.query)
	assert.Equal(t, []string{"python"}, call.fs.Keywords)
	assert.Equal(t, filters.LevelBeginner, call.fs.Level)
}

func TestEngine_ConstraintOnlyRefinesLastSearch(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 6}
	e := newTestEngine(r, IntentRecommendation, false)
	s := NewSession("s1")
	ctx := context.Background()

	e.Handle(ctx, s, "python for beginners")

	reply := e.Handle(ctx, s, "under 300")
	assert.Equal(t,
		"Got it! Filtering for courses under ₹300. Looking for beginner level. "+
			"I found courses on **python** at **beginner level** under **₹300**. Here are the top 6 recommendations:",
		reply.Text)

	call := r.lastCall(t)
	assert.Equal(t, "python for beginners", call.query)
	assert.Equal(t, filters.LevelBeginner, call.fs.Level)
	assert.Equal(t, 300.0, *call.fs.MaxPrice)
}

func TestEngine_PartialQueryMerge(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 2}
	e := newTestEngine(r, IntentRecommendation, false)
	s := NewSession("s1")
	s.state.PartialQuery = "python"

	reply := e.Handle(context.Background(), s, "for beginners under 500")
	assert.Equal(t,
		"Got it! I'll include your budget preference. Looking for beginner level. "+
			"I found courses on **python** at **beginner level** under **₹500**. Here are the top 2 recommendations:",
		reply.Text)

	call := r.lastCall(t)
	assert.Equal(t, "python for beginners under 500", call.query)
	assert.Equal(t, []string{"python"}, call.fs.Keywords)
	assert.Empty(t, s.Snapshot().State.PartialQuery)
}

func TestEngine_NoResults(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 0}
	e := newTestEngine(r, IntentRecommendation, false)
	s := NewSession("s1")

	reply := e.Handle(context.Background(), s, "underwater basket weaving")
	assert.Equal(t, KindNoResults, reply.Kind)
	assert.Equal(t, "no results for underwater basket weaving", reply.Text)
	assert.Equal(t, SlotNone, reply.Awaiting)

	snap := s.Snapshot()
	assert.Empty(t, snap.State.LastQuery)
	assert.Empty(t, snap.State.PartialQuery)
}

func TestEngine_DatasetQuestion(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 5}
	e := newTestEngine(r, IntentDatasetQuestion, true)
	s := NewSession("s1")

	reply := e.Handle(context.Background(), s, "which subject has the most courses?")
	assert.Equal(t, KindAnswer, reply.Kind)
	assert.Equal(t, "answer: which subject has the most courses?", reply.Text)
	assert.Empty(t, r.calls)
	assert.Equal(t, SlotFillState{}, s.Snapshot().State)
}

func TestEngine_IndexNotReady(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{err: domerrors.ErrIndexNotReady}
	e := newTestEngine(r, IntentRecommendation, false)

	reply := e.Handle(context.Background(), NewSession("s1"), "python programming")
	assert.Equal(t, KindUnavailable, reply.Kind)
	assert.Equal(t, replyIndexLoading, reply.Text)
}

func TestEngine_ChitChatAndEmptyInput(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 1}
	e := newTestEngine(r, IntentRecommendation, true)
	s := NewSession("s1")
	ctx := context.Background()

	reply := e.Handle(ctx, s, "   ")
	assert.Equal(t, KindPrompt, reply.Kind)
	assert.Equal(t, promptEmpty, reply.Text)

	reply = e.Handle(ctx, s, "hello")
	assert.Equal(t, replyGreeting, reply.Text)

	// Chit-chat is answered even while a slot is pending, and keeps it.
	e.Handle(ctx, s, "python")
	reply = e.Handle(ctx, s, "thanks")
	assert.Equal(t, replyThanks, reply.Text)
	assert.Equal(t, SlotLevel, reply.Awaiting)
	assert.Empty(t, r.calls)
}

func TestEngine_UnknownSlotAsksToRephrase(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&stubRetriever{}, IntentRecommendation, true)
	s := NewSession("s1")
	s.state.Awaiting = Slot("mystery")

	reply := e.Handle(context.Background(), s, "python")
	assert.Equal(t, promptRephrase, reply.Text)
	assert.Equal(t, SlotNone, reply.Awaiting)
}

func TestEngine_ConcurrentSessions(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{total: 3}
	e := newTestEngine(r, IntentRecommendation, false)
	store := NewStore(0, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := store.GetOrCreate(fmt.Sprintf("session-%d", i%4))
			e.Handle(context.Background(), s, "python programming")
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, store.Count())
	assert.Len(t, r.calls, 8)
}

func TestEngine_RetrieverErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	r := &stubRetriever{err: errors.New("boom")}
	e := newTestEngine(r, IntentRecommendation, false)
	s := NewSession("s1")

	reply := e.Handle(context.Background(), s, "python programming")
	assert.Equal(t, KindUnavailable, reply.Kind)
	assert.Empty(t, s.Snapshot().Results)
}
