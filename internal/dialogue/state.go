// Package dialogue implements the slot-filling conversation that turns
// chat messages into course recommendations.
package dialogue

import (
	"github.com/garyellow/course-advisor/internal/filters"
	"github.com/garyellow/course-advisor/internal/retrieval"
)

// Slot names the piece of information the conversation is waiting for.
// The empty Slot means the conversation is idle.
type Slot string

const (
	SlotNone       Slot = ""
	SlotSubject    Slot = "subject"
	SlotLevel      Slot = "level"
	SlotBudget     Slot = "budget"
	SlotPriceRange Slot = "price_range"
	SlotRefinement Slot = "refinement"
)

// ConversationContext records what the user has told us and which
// questions have already been asked in this session.
type ConversationContext struct {
	HasSubject      bool `json:"has_subject"`
	HasLevel        bool `json:"has_level"`
	HasBudget       bool `json:"has_budget"`
	AskedLevel      int  `json:"asked_level"`
	AskedBudget     int  `json:"asked_budget"`
	AskedRefinement bool `json:"asked_refinement"`
}

// SlotFillState is the in-progress query while the user answers follow-ups,
// plus the last successful search for constraint-only refinements.
type SlotFillState struct {
	Awaiting       Slot               `json:"awaiting"`
	PartialQuery   string             `json:"partial_query"`
	PartialFilters filters.Overrides  `json:"partial_filters"`
	LastQuery      string             `json:"last_query"`
	LastFilters    *filters.FilterSet `json:"last_filters,omitempty"`
}

// Intent is the coarse classification of an idle-state message.
type Intent string

const (
	IntentRecommendation  Intent = "recommendation"
	IntentDatasetQuestion Intent = "dataset_question"
)

// ReplyKind tells presentation layers how to render a Reply.
type ReplyKind string

const (
	KindChitChat    ReplyKind = "chitchat"
	KindPrompt      ReplyKind = "prompt"
	KindResults     ReplyKind = "results"
	KindNoResults   ReplyKind = "no_results"
	KindAnswer      ReplyKind = "answer"
	KindUnavailable ReplyKind = "unavailable"
)

// Reply is the outcome of one turn. Awaiting reflects the session state
// after the turn; Results is only set for KindResults.
type Reply struct {
	Text     string                   `json:"text"`
	Kind     ReplyKind                `json:"kind"`
	Awaiting Slot                     `json:"awaiting"`
	Results  []retrieval.RankedResult `json:"results,omitempty"`
	Total    int                      `json:"total"`
}
