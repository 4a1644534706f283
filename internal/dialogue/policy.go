package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/garyellow/course-advisor/internal/filters"
)

// Follow-up thresholds.
const (
	// RefinementThreshold is the result count above which the user is
	// offered help narrowing the search, once per session.
	RefinementThreshold = 50
	// ShortQueryTokens is the token count at or below which a query
	// without a subject is treated as underspecified.
	ShortQueryTokens = 3
	// MaxAnnouncedResults caps the "top N" count quoted in replies.
	MaxAnnouncedResults = 10
)

// Prompts shared by the policy and the engine.
const (
	promptSubjectShort   = "What subject or topic are you interested in learning? (e.g., Python, Web Development, Marketing, etc.)"
	promptSubjectGeneric = "I'd love to help you find a course! What topic or skill are you interested in?"
	promptBroaden        = "I couldn't find courses matching those criteria. Would you like to try:\n- A different subject?\n- Different difficulty level?\n- Adjust your budget?"
	promptRefine         = "I found %d courses. Would you like me to help narrow this down by skill level or budget?"

	questionSubject = "What subject or topic would you like to learn about?"
	questionLevel   = "What's your current skill level? (beginner, intermediate, or advanced)"
	questionBudget  = "Do you prefer free courses, or are you open to paid options?"
)

var genericPhrases = []string{
	"recommend course",
	"suggest course",
	"find course",
	"looking for course",
	"want to learn",
	"help me find",
	"show me course",
}

// NeedsMoreInfo reports whether query is too vague to search and, if so,
// which slot to ask for and the question to ask. A query with a subject
// never needs more info; the level is not forced.
func NeedsMoreInfo(query string, fs filters.FilterSet) (bool, Slot, string) {
	if fs.HasKeywords() {
		return false, SlotNone, ""
	}
	text := strings.ToLower(strings.TrimSpace(query))
	if len(strings.Fields(text)) <= ShortQueryTokens {
		return true, SlotSubject, promptSubjectShort
	}
	for _, phrase := range genericPhrases {
		if strings.Contains(text, phrase) {
			return true, SlotSubject, promptSubjectGeneric
		}
	}
	return false, SlotNone, ""
}

// ShouldAskFollowup decides whether a search with count matches should
// end with a follow-up question.
func ShouldAskFollowup(count int, cc ConversationContext) (bool, string) {
	switch {
	case count == 0:
		return true, promptBroaden
	case count > RefinementThreshold && !cc.AskedRefinement:
		return true, fmt.Sprintf(promptRefine, count)
	default:
		return false, ""
	}
}

// GenerateFollowupQuestion returns the next clarifying question in the
// subject, level, budget ladder, or false once everything has been asked.
func GenerateFollowupQuestion(cc ConversationContext) (string, bool) {
	switch {
	case !cc.HasSubject:
		return questionSubject, true
	case cc.AskedLevel < 1:
		return questionLevel, true
	case cc.AskedBudget < 1:
		return questionBudget, true
	default:
		return "", false
	}
}

// BuildConversationalResponse summarizes a search in one sentence.
func BuildConversationalResponse(fs filters.FilterSet, total int) string {
	parts := []string{"courses"}
	if fs.HasKeywords() {
		parts[0] = "courses on **" + strings.Join(fs.Keywords, " ") + "**"
	}
	if level := fs.Level.OrAll(); level != filters.LevelAll {
		parts = append(parts, "at **"+string(level)+"**")
	}
	if fs.IsPaid != nil {
		if *fs.IsPaid {
			parts = append(parts, "that are **paid**")
		} else {
			parts = append(parts, "that are **free**")
		}
	}
	if filters.Positive(fs.MinPrice) || filters.Positive(fs.MaxPrice) {
		minPrice, maxPrice := priceBounds(fs)
		if maxPrice < filters.PriceCeiling {
			parts = append(parts, "under **₹"+formatPrice(maxPrice)+"**")
		} else if minPrice > 0 {
			parts = append(parts, "over **₹"+formatPrice(minPrice)+"**")
		}
	}
	criteria := strings.Join(parts, " ")

	switch total {
	case 0:
		return "I couldn't find any " + criteria + ". Would you like to try different criteria?"
	case 1:
		return "I found 1 " + criteria
	default:
		return fmt.Sprintf("I found %s. Here are the top %d recommendations:", criteria, min(total, MaxAnnouncedResults))
	}
}

// priceBounds resolves absent bounds to 0 and PriceCeiling.
func priceBounds(fs filters.FilterSet) (minPrice, maxPrice float64) {
	minPrice, maxPrice = 0, filters.PriceCeiling
	if fs.MinPrice != nil {
		minPrice = *fs.MinPrice
	}
	if fs.MaxPrice != nil {
		maxPrice = *fs.MaxPrice
	}
	return minPrice, maxPrice
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
