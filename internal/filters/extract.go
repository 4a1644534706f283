package filters

import (
	"regexp"
	"strconv"
	"strings"
)

type levelRule struct {
	level    Level
	keywords []string
}

// Rules are checked in order; the first keyword hit wins.
var levelRules = []levelRule{
	{LevelBeginner, []string{"beginner", "basic", "new", "starting"}},
	{LevelIntermediate, []string{"intermediate", "medium", "mid"}},
	{LevelExpert, []string{"expert", "advanced", "master", "professional"}},
	{LevelAll, []string{"all", "any", "don't", "doesn"}},
}

// ExtractLevel maps a free-text reply to a level using substring matches.
// It reports false when no keyword is present.
func ExtractLevel(text string) (Level, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, rule := range levelRules {
		if containsAny(t, rule.keywords) {
			return rule.level, true
		}
	}
	return "", false
}

// PaidPreference is a user's stance on course cost.
type PaidPreference int

const (
	PaidUnknown PaidPreference = iota
	PaidFree
	PaidOnly
	PaidEither
)

func (p PaidPreference) String() string {
	switch p {
	case PaidFree:
		return "free"
	case PaidOnly:
		return "paid"
	case PaidEither:
		return "either"
	default:
		return "unknown"
	}
}

// IsPaid collapses the preference to the filter's tri-state: free is false,
// paid is true, and both "either" and "unknown" are nil.
func (p PaidPreference) IsPaid() *bool {
	switch p {
	case PaidFree:
		return Bool(false)
	case PaidOnly:
		return Bool(true)
	default:
		return nil
	}
}

var (
	freeKeywords   = []string{"free", "no cost", "0", "zero"}
	paidKeywords   = []string{"paid", "premium", "buy", "purchase"}
	eitherKeywords = []string{"both", "any", "either", "don't", "doesn"}
)

// ExtractPaidPreference reads a cost preference from free text. Free wins
// over paid, which wins over either.
func ExtractPaidPreference(text string) PaidPreference {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case containsAny(t, freeKeywords):
		return PaidFree
	case containsAny(t, paidKeywords):
		return PaidOnly
	case containsAny(t, eitherKeywords):
		return PaidEither
	default:
		return PaidUnknown
	}
}

var (
	rangePattern = regexp.MustCompile(`(\d+)\s*(?:to|-|and)\s*(\d+)`)
	underPattern = regexp.MustCompile(`(?:under|less than|below|max|maximum)\s*(\d+)`)
	overPattern  = regexp.MustCompile(`(?:over|more than|above|min|minimum)\s*(\d+)`)
	numPattern   = regexp.MustCompile(`(\d+)`)
)

// ExtractPriceRange reads a price range from free text. The first matching
// pattern wins: "a to b", "under n", "over n", then a bare number read as a
// maximum. Bounds are returned as written; callers normalize their order.
func ExtractPriceRange(text string) (minPrice, maxPrice *float64) {
	t := strings.ToLower(strings.TrimSpace(text))

	if m := rangePattern.FindStringSubmatch(t); m != nil {
		return number(m[1]), number(m[2])
	}
	if m := underPattern.FindStringSubmatch(t); m != nil {
		return Float(0), number(m[1])
	}
	if m := overPattern.FindStringSubmatch(t); m != nil {
		return number(m[1]), Float(PriceCeiling)
	}
	if m := numPattern.FindStringSubmatch(t); m != nil {
		return Float(0), number(m[1])
	}
	return nil, nil
}

func number(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
