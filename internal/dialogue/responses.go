package dialogue

import (
	"strings"

	"github.com/garyellow/course-advisor/internal/filters"
)

// Follow-up handler prompts.
const (
	promptLevelAfterSubject = "Great! I'll look for courses on **%s**. What's your current skill level?\n- Beginner (just starting)\n- Intermediate (some experience)\n- Advanced (experienced)\n- Any level"
	promptBudget            = "Perfect! And what about your budget? Are you looking for free courses or open to paid ones?"
	promptPriceRange        = "What's your budget range? (e.g., 'under 200', 'between 100 and 500')"
	promptRephrase          = "I didn't quite catch that. Could you please rephrase?"
	promptEmpty             = "Tell me what you'd like to learn, and I'll find courses for you."
	promptGuidedSubject     = "Great! I'll look for courses on **%s**. "
	replyIndexLoading       = "The course catalog is still loading. Please try again in a moment."
)

const ackPrefix = "Got it! "

// constraintAck acknowledges a constraint-only refinement of the last
// search. fs is the merged filter set.
func constraintAck(fs filters.FilterSet) string {
	var b strings.Builder
	b.WriteString(ackPrefix)
	if filters.Positive(fs.MinPrice) || filters.Positive(fs.MaxPrice) {
		minPrice, maxPrice := priceBounds(fs)
		if maxPrice < filters.PriceCeiling {
			b.WriteString("Filtering for courses under ₹" + formatPrice(maxPrice) + ". ")
		} else {
			b.WriteString("Filtering for courses over ₹" + formatPrice(minPrice) + ". ")
		}
	}
	writeLevelAck(&b, fs)
	if fs.IsPaid != nil {
		if *fs.IsPaid {
			b.WriteString("Including paid courses. ")
		} else {
			b.WriteString("Showing only free courses. ")
		}
	}
	return b.String()
}

// partialAck acknowledges extra details added to an unfinished query.
func partialAck(fs filters.FilterSet) string {
	var b strings.Builder
	b.WriteString(ackPrefix)
	if filters.Positive(fs.MinPrice) || filters.Positive(fs.MaxPrice) {
		b.WriteString("I'll include your budget preference. ")
	}
	writeLevelAck(&b, fs)
	if fs.IsPaid != nil {
		if *fs.IsPaid {
			b.WriteString("Including paid courses. ")
		} else {
			b.WriteString("Filtering for free courses. ")
		}
	}
	return b.String()
}

func writeLevelAck(b *strings.Builder, fs filters.FilterSet) {
	if level := fs.Level.OrAll(); level != filters.LevelAll {
		b.WriteString("Looking for " + string(level) + ". ")
	}
}
