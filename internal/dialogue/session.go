package dialogue

import (
	"slices"
	"sync"
	"time"

	"github.com/garyellow/course-advisor/internal/retrieval"
)

// Session is one user's conversation. All access goes through Engine.Handle
// or the locked accessors below.
type Session struct {
	ID string

	mu        sync.Mutex
	context   ConversationContext
	state     SlotFillState
	results   []retrieval.RankedResult
	total     int
	updatedAt time.Time
}

// NewSession creates an idle session.
func NewSession(id string) *Session {
	return &Session{ID: id, updatedAt: time.Now()}
}

// reset returns the session to its initial state. Callers hold s.mu.
func (s *Session) reset() {
	s.context = ConversationContext{}
	s.state = SlotFillState{}
	s.results = nil
	s.total = 0
}

// Reset clears the conversation, as the "reset" chit-chat command does.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.updatedAt = time.Now()
}

// Snapshot is a copy of a session's state, safe to read without locking.
type Snapshot struct {
	ID        string                   `json:"id"`
	Context   ConversationContext      `json:"context"`
	State     SlotFillState            `json:"state"`
	Results   []retrieval.RankedResult `json:"results"`
	Total     int                      `json:"total"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	if s.state.LastFilters != nil {
		last := s.state.LastFilters.Clone()
		state.LastFilters = &last
	}
	state.PartialFilters = s.state.PartialFilters.Clone()

	return Snapshot{
		ID:        s.ID,
		Context:   s.context,
		State:     state,
		Results:   slices.Clone(s.results),
		Total:     s.total,
		UpdatedAt: s.updatedAt,
	}
}

// Page returns the 1-based page of stored results with the given size and
// the number of pages. Out-of-range pages are empty.
func (snap Snapshot) Page(page, size int) ([]retrieval.RankedResult, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(snap.Results) + size - 1) / size
	if page < 1 || page > pages {
		return []retrieval.RankedResult{}, pages
	}
	start := (page - 1) * size
	end := min(start+size, len(snap.Results))
	return snap.Results[start:end], pages
}

// DefaultPageSize is the number of results shown per page.
const DefaultPageSize = 5
