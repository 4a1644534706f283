package dialogue

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/garyellow/course-advisor/internal/filters"
	"github.com/garyellow/course-advisor/internal/logger"
	"github.com/garyellow/course-advisor/internal/metrics"
	"github.com/garyellow/course-advisor/internal/retrieval"
)

// QueryParser turns free text into filters. Implementations never fail;
// upstream problems degrade to filters.Default().
type QueryParser interface {
	Parse(ctx context.Context, text string) filters.FilterSet
}

// IntentClassifier decides whether an idle-state message asks for
// recommendations or asks a question about the catalog.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) Intent
}

// ResponseWriter produces free-text replies that are not templated.
type ResponseWriter interface {
	NoResultsMessage(ctx context.Context, query string, fs filters.FilterSet) string
	AnswerDatasetQuestion(ctx context.Context, question string) string
}

// Retriever ranks catalog courses for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, fs filters.FilterSet) (retrieval.Result, error)
}

// Config wires an Engine.
type Config struct {
	Parser     QueryParser
	Classifier IntentClassifier
	Writer     ResponseWriter
	Retriever  Retriever
	Logger     *logger.Logger
	Metrics    *metrics.Metrics

	// GuidedRefinement asks for the skill level once when the first
	// query is a bare subject such as "python".
	GuidedRefinement bool
}

// Engine runs conversation turns. It holds no per-session state and is
// safe for concurrent use; sessions serialize their own turns.
type Engine struct {
	parser     QueryParser
	classifier IntentClassifier
	writer     ResponseWriter
	retriever  Retriever
	log        *logger.Logger
	metrics    *metrics.Metrics
	guided     bool
}

// NewEngine creates an Engine. Parser, Classifier, Writer and Retriever are required.
func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.NewWithWriter("error", io.Discard)
	}
	return &Engine{
		parser:     cfg.Parser,
		classifier: cfg.Classifier,
		writer:     cfg.Writer,
		retriever:  cfg.Retriever,
		log:        log.WithModule("dialogue"),
		metrics:    cfg.Metrics,
		guided:     cfg.GuidedRefinement,
	}
}

// Handle processes one user message for s and returns the reply.
// Turns on the same session are serialized.
func (e *Engine) Handle(ctx context.Context, s *Session, text string) Reply {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	reply := e.turn(ctx, s, strings.TrimSpace(text))
	reply.Awaiting = s.state.Awaiting
	s.updatedAt = time.Now()

	e.metrics.RecordTurn(string(reply.Kind), time.Since(start))
	e.log.DebugContext(ctx, "Turn handled",
		"session_id", s.ID,
		"kind", reply.Kind,
		"awaiting", reply.Awaiting,
		"total", reply.Total,
	)
	return reply
}

func (e *Engine) turn(ctx context.Context, s *Session, text string) Reply {
	if text == "" {
		return Reply{Text: promptEmpty, Kind: KindPrompt}
	}

	if cc, ok := matchChitChat(text); ok {
		if cc.reset {
			s.reset()
		}
		return Reply{Text: cc.reply, Kind: KindChitChat}
	}

	if s.state.Awaiting != SlotNone {
		return e.handleFollowup(ctx, s, text)
	}

	if e.classifier.Classify(ctx, text) == IntentDatasetQuestion {
		return Reply{Text: e.writer.AnswerDatasetQuestion(ctx, text), Kind: KindAnswer}
	}
	return e.recommend(ctx, s, text)
}

// recommend runs the idle-state recommendation flow for query.
func (e *Engine) recommend(ctx context.Context, s *Session, query string) Reply {
	st := &s.state
	parsed := e.parser.Parse(ctx, query).Normalize()
	searchQuery := query
	ack := ""

	switch {
	case !parsed.HasKeywords() && parsed.HasConstraint() && st.LastQuery != "" && st.LastFilters != nil:
		// Refine the previous search with the new constraints only.
		parsed = overridesFrom(parsed).Apply(*st.LastFilters).Normalize()
		ack = constraintAck(parsed)
		searchQuery = st.LastQuery

	case st.PartialQuery != "":
		merged := st.PartialQuery + " " + query
		mergedParsed := e.parser.Parse(ctx, merged).Normalize()
		mergedParsed.Keywords = appendUnique(mergedParsed.Keywords, parsed.Keywords...)
		parsed = overridesFrom(parsed).Apply(mergedParsed).Normalize()
		if a := partialAck(parsed); a != ackPrefix {
			ack = a
		}
		st.PartialQuery = merged
		query, searchQuery = merged, merged
	}

	if need, slot, prompt := NeedsMoreInfo(query, parsed); need {
		st.Awaiting = slot
		st.PartialQuery = query
		return Reply{Text: prompt, Kind: KindPrompt}
	}

	if e.guided && s.context.AskedLevel == 0 && parsed.HasKeywords() && !parsed.HasConstraint() &&
		len(strings.Fields(query)) <= ShortQueryTokens {
		s.context.HasSubject = true
		question, _ := GenerateFollowupQuestion(s.context)
		s.context.AskedLevel++
		st.Awaiting = SlotLevel
		st.PartialQuery = query
		return Reply{
			Text: fmt.Sprintf(promptGuidedSubject, strings.Join(parsed.Keywords, " ")) + question,
			Kind: KindPrompt,
		}
	}

	reply := e.search(ctx, s, searchQuery, parsed, ack)
	if reply.Kind != KindUnavailable {
		st.PartialQuery = ""
	}
	return reply
}

// handleFollowup consumes a reply to the question for the awaited slot.
func (e *Engine) handleFollowup(ctx context.Context, s *Session, reply string) Reply {
	st, cc := &s.state, &s.context

	switch st.Awaiting {
	case SlotSubject:
		st.PartialQuery = strings.TrimSpace(st.PartialQuery + " " + reply)
		cc.HasSubject = true
		cc.AskedLevel++
		st.Awaiting = SlotLevel
		return Reply{Text: fmt.Sprintf(promptLevelAfterSubject, reply), Kind: KindPrompt}

	case SlotLevel:
		if level, ok := filters.ExtractLevel(reply); ok {
			st.PartialFilters.Level = &level
			cc.HasLevel = true
		}
		cc.AskedBudget++
		st.Awaiting = SlotBudget
		return Reply{Text: promptBudget, Kind: KindPrompt}

	case SlotBudget:
		pref := filters.ExtractPaidPreference(reply)
		if isPaid := pref.IsPaid(); isPaid != nil {
			st.PartialFilters.IsPaid = isPaid
		}
		if pref == filters.PaidOnly {
			st.Awaiting = SlotPriceRange
			return Reply{Text: promptPriceRange, Kind: KindPrompt}
		}
		cc.HasBudget = true
		st.Awaiting = SlotNone
		return e.performSearch(ctx, s)

	case SlotPriceRange:
		minPrice, maxPrice := filters.ExtractPriceRange(reply)
		if minPrice != nil {
			st.PartialFilters.MinPrice = minPrice
		}
		if maxPrice != nil {
			st.PartialFilters.MaxPrice = maxPrice
		}
		cc.HasBudget = true
		st.Awaiting = SlotNone
		return e.performSearch(ctx, s)

	case SlotRefinement:
		st.Awaiting = SlotNone
		return e.recommend(ctx, s, reply)

	default:
		e.log.WarnContext(ctx, "Unknown awaited slot", "session_id", s.ID, "slot", st.Awaiting)
		st.Awaiting = SlotNone
		return Reply{Text: promptRephrase, Kind: KindPrompt}
	}
}

// performSearch searches with the query and filters gathered by the
// follow-up questions, then clears them.
func (e *Engine) performSearch(ctx context.Context, s *Session) Reply {
	query := strings.TrimSpace(s.state.PartialQuery)
	fs := s.state.PartialFilters.Apply(e.parser.Parse(ctx, query)).Normalize()

	reply := e.search(ctx, s, query, fs, "")
	s.state.PartialQuery = ""
	s.state.PartialFilters = filters.Overrides{}
	return reply
}

// search retrieves courses and, on success, stores them as the session's
// current results and last search.
func (e *Engine) search(ctx context.Context, s *Session, query string, fs filters.FilterSet, ack string) Reply {
	res, err := e.retriever.Retrieve(ctx, query, fs)
	if err != nil {
		e.log.WithError(err).WarnContext(ctx, "Retrieval unavailable", "session_id", s.ID)
		return Reply{Text: replyIndexLoading, Kind: KindUnavailable}
	}

	if res.Total == 0 {
		return Reply{Text: e.writer.NoResultsMessage(ctx, query, fs), Kind: KindNoResults}
	}

	s.results = res.Items
	s.total = res.Total
	s.state.LastQuery = query
	last := fs.Clone()
	s.state.LastFilters = &last

	text := ack + BuildConversationalResponse(fs, res.Total)
	if ask, question := ShouldAskFollowup(res.Total, s.context); ask {
		s.state.Awaiting = SlotRefinement
		s.context.AskedRefinement = true
		text += "\n\n" + question
	}
	return Reply{Text: text, Kind: KindResults, Results: res.Items, Total: res.Total}
}

// overridesFrom keeps the fields of fs that differ from the defaults.
func overridesFrom(fs filters.FilterSet) filters.Overrides {
	o := filters.Overrides{IsPaid: fs.IsPaid, MinPrice: fs.MinPrice, MaxPrice: fs.MaxPrice}
	if level := fs.Level.OrAll(); level != filters.LevelAll {
		o.Level = &level
	}
	return o
}

func appendUnique(dst []string, words ...string) []string {
	for _, w := range words {
		if !slices.Contains(dst, w) {
			dst = append(dst, w)
		}
	}
	return dst
}
