package filters

import (
	"context"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_+#.']+`)

// fillerWords are dropped from heuristic keywords: conversational filler,
// request verbs, and words that only express level, cost or price.
var fillerWords = func() map[string]struct{} {
	words := []string{
		// conversational
		"a", "an", "the", "i", "im", "i'm", "me", "my", "we", "you", "your", "it", "is", "are", "am",
		"to", "of", "in", "on", "for", "with", "about", "and", "or", "but", "at", "by", "from",
		"some", "something", "that", "this", "these", "those", "what", "which", "please", "pls",
		"can", "could", "would", "should", "do", "does", "be", "been", "get", "give", "need",
		"how", "where", "when", "why", "who",
		"like", "good", "best", "great", "top", "new", "really", "very", "just", "also", "only",
		"more", "less", "than", "between", "up", "have", "has", "any", "all", "both", "either",
		"don't", "dont", "doesn't", "doesnt", "no", "not", "there", "one", "ones",
		// request verbs and nouns
		"want", "wanna", "learn", "learning", "study", "studying", "recommend", "recommendation",
		"recommendations", "suggest", "suggestion", "suggestions", "find", "looking", "look", "search",
		"show", "help", "course", "courses", "class", "classes", "tutorial", "tutorials", "lesson", "lessons",
		// level
		"level", "levels", "beginner", "beginners", "basic", "basics", "starting", "start", "intermediate",
		"medium", "mid", "expert", "experts", "advanced", "master", "professional", "skill",
		// cost and price
		"free", "paid", "premium", "buy", "purchase", "cost", "costs", "price", "prices", "priced",
		"budget", "cheap", "expensive", "rupee", "rupees", "rs", "inr", "under", "below", "over", "above",
		"max", "maximum", "min", "minimum", "zero",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// priceCues must appear before a number is read as a price, so "python 3"
// stays a topic.
var priceCues = map[string]struct{}{
	"cost": {}, "costs": {}, "price": {}, "prices": {}, "priced": {}, "budget": {},
	"rupee": {}, "rupees": {}, "rs": {}, "inr": {}, "under": {}, "below": {}, "over": {},
	"above": {}, "max": {}, "maximum": {}, "min": {}, "minimum": {}, "between": {}, "than": {},
}

func hasPriceCue(text string, filler []string) bool {
	if strings.ContainsAny(text, "₹$") {
		return true
	}
	for _, w := range filler {
		if _, ok := priceCues[w]; ok {
			return true
		}
	}
	return false
}

// HeuristicParser extracts filters without a language model. Keywords are
// whatever words remain after removing filler and constraint vocabulary.
type HeuristicParser struct{}

// Parse implements the query parser contract: it never fails and always
// returns a normalized FilterSet.
func (HeuristicParser) Parse(_ context.Context, text string) FilterSet {
	return ParseHeuristic(text)
}

// ParseHeuristic is the function form of HeuristicParser.Parse.
func ParseHeuristic(text string) FilterSet {
	t := strings.ToLower(strings.TrimSpace(text))
	fs := Default()

	// Level and cost are read from filler words only, so that subjects such
	// as "install" or "company" do not trip the substring extractors, and
	// digits stay with the price instead of reading as "0 means free".
	var filler []string
	for _, w := range wordPattern.FindAllString(t, -1) {
		w = strings.Trim(w, ".'")
		if w == "" || isNumeric(w) {
			continue
		}
		if _, skip := fillerWords[w]; skip {
			filler = append(filler, w)
			continue
		}
		fs.Keywords = append(fs.Keywords, w)
	}
	constraints := strings.Join(filler, " ")

	if level, ok := ExtractLevel(constraints); ok {
		fs.Level = level
	}
	fs.IsPaid = ExtractPaidPreference(constraints).IsPaid()
	if hasPriceCue(t, filler) {
		fs.MinPrice, fs.MaxPrice = ExtractPriceRange(t)
	}

	return fs.Normalize()
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
