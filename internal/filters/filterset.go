// Package filters turns free-text course queries into structured filters.
//
// The extractors in this package are deliberately simple substring and regex
// heuristics; they are used both to read slot answers during a guided
// conversation and as the offline query parser when no LLM is configured.
package filters

import (
	"slices"
	"strings"
)

// Level is a canonical course difficulty.
type Level string

// Canonical levels. The string values match the catalog's lower-cased level column.
const (
	LevelAll          Level = "all levels"
	LevelBeginner     Level = "beginner level"
	LevelIntermediate Level = "intermediate level"
	LevelExpert       Level = "expert level"
)

// Levels lists every canonical level.
var Levels = []Level{LevelAll, LevelBeginner, LevelIntermediate, LevelExpert}

// ParseLevel accepts one of the canonical level strings, ignoring case and
// surrounding space.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Levels, l) {
		return l, true
	}
	return "", false
}

// OrAll returns l, or LevelAll when l is not a canonical level.
func (l Level) OrAll() Level {
	if parsed, ok := ParseLevel(string(l)); ok {
		return parsed
	}
	return LevelAll
}

// PriceCeiling is the upper bound used when a query only states a minimum.
const PriceCeiling = 99999

// FilterSet is the structured form of a course query.
type FilterSet struct {
	Keywords []string `json:"keywords"`
	Level    Level    `json:"level"`
	IsPaid   *bool    `json:"is_paid"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
}

// Default returns the empty query: no keywords, all levels, no price constraints.
func Default() FilterSet {
	return FilterSet{Keywords: []string{}, Level: LevelAll}
}

// Normalize returns a copy with a canonical level, a non-nil keyword slice,
// non-negative bounds and MinPrice <= MaxPrice.
func (f FilterSet) Normalize() FilterSet {
	out := f.Clone()
	out.Level = out.Level.OrAll()
	if out.MinPrice != nil && *out.MinPrice < 0 {
		out.MinPrice = Float(0)
	}
	if out.MaxPrice != nil && *out.MaxPrice < 0 {
		out.MaxPrice = Float(0)
	}
	if out.MinPrice != nil && out.MaxPrice != nil && *out.MinPrice > *out.MaxPrice {
		out.MinPrice, out.MaxPrice = out.MaxPrice, out.MinPrice
	}
	return out
}

// Clone returns a deep copy.
func (f FilterSet) Clone() FilterSet {
	out := f
	if f.Keywords == nil {
		out.Keywords = []string{}
	} else {
		out.Keywords = slices.Clone(f.Keywords)
	}
	out.IsPaid = clonePtr(f.IsPaid)
	out.MinPrice = clonePtr(f.MinPrice)
	out.MaxPrice = clonePtr(f.MaxPrice)
	return out
}

// HasKeywords reports whether the query names a subject.
func (f FilterSet) HasKeywords() bool {
	return len(f.Keywords) > 0
}

// HasConstraint reports whether the query carries a level, paid or price
// signal. A zero price bound does not count, matching how "under 0" and an
// absent bound are treated alike when building replies.
func (f FilterSet) HasConstraint() bool {
	return f.Level.OrAll() != LevelAll || f.IsPaid != nil || Positive(f.MinPrice) || Positive(f.MaxPrice)
}

// Overrides carries filter fields collected outside the parser, such as
// slot answers. Nil fields leave the target untouched.
type Overrides struct {
	Level    *Level   `json:"level,omitempty"`
	IsPaid   *bool    `json:"is_paid,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

// IsZero reports whether no field is set.
func (o Overrides) IsZero() bool {
	return o.Level == nil && o.IsPaid == nil && o.MinPrice == nil && o.MaxPrice == nil
}

// Clone returns a deep copy.
func (o Overrides) Clone() Overrides {
	return Overrides{
		Level:    clonePtr(o.Level),
		IsPaid:   clonePtr(o.IsPaid),
		MinPrice: clonePtr(o.MinPrice),
		MaxPrice: clonePtr(o.MaxPrice),
	}
}

// Apply returns f with every set override copied over it.
func (o Overrides) Apply(f FilterSet) FilterSet {
	out := f.Clone()
	if o.Level != nil {
		out.Level = *o.Level
	}
	if o.IsPaid != nil {
		out.IsPaid = clonePtr(o.IsPaid)
	}
	if o.MinPrice != nil {
		out.MinPrice = clonePtr(o.MinPrice)
	}
	if o.MaxPrice != nil {
		out.MaxPrice = clonePtr(o.MaxPrice)
	}
	return out
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Positive reports whether p is set and non-zero.
func Positive(p *float64) bool { return p != nil && *p != 0 }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
