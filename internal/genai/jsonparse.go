package genai

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/garyellow/course-advisor/internal/filters"
)

// rawFilterSet accepts loosely typed model output. Fields that do not
// decode as the expected type are treated as absent.
type rawFilterSet struct {
	Keywords json.RawMessage `json:"keywords"`
	Level    json.RawMessage `json:"level"`
	IsPaid   json.RawMessage `json:"is_paid"`
	MinPrice json.RawMessage `json:"min_price"`
	MaxPrice json.RawMessage `json:"max_price"`
}

// SafeJSONParse extracts a FilterSet from model output. It tries the whole
// text, then the first balanced {...} span, and otherwise returns the
// default FilterSet. The result is always normalized.
func SafeJSONParse(text string) filters.FilterSet {
	if fs, ok := decodeFilterSet(text); ok {
		return fs
	}
	if span, ok := firstObject(text); ok {
		if fs, ok := decodeFilterSet(span); ok {
			return fs
		}
	}
	return filters.Default()
}

// firstObject returns the substring from the first '{' to the brace that
// closes it. Braces inside JSON strings are ignored.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func decodeFilterSet(text string) (filters.FilterSet, bool) {
	var raw rawFilterSet
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return filters.FilterSet{}, false
	}

	fs := filters.Default()
	fs.Keywords = decodeKeywords(raw.Keywords)

	var level string
	if json.Unmarshal(raw.Level, &level) == nil {
		fs.Level = filters.Level(level)
	}

	var isPaid bool
	if json.Unmarshal(raw.IsPaid, &isPaid) == nil && isJSONValue(raw.IsPaid) {
		fs.IsPaid = filters.Bool(isPaid)
	}
	fs.MinPrice = decodeNumber(raw.MinPrice)
	fs.MaxPrice = decodeNumber(raw.MaxPrice)

	return fs.Normalize(), true
}

// decodeKeywords accepts a list of strings or a single space-separated
// string. Blank entries are dropped.
func decodeKeywords(raw json.RawMessage) []string {
	var list []string
	if json.Unmarshal(raw, &list) != nil {
		var single string
		if json.Unmarshal(raw, &single) != nil {
			return []string{}
		}
		list = strings.Fields(single)
	}
	out := make([]string, 0, len(list))
	for _, kw := range list {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func decodeNumber(raw json.RawMessage) *float64 {
	if !isJSONValue(raw) {
		return nil
	}
	var v float64
	if json.Unmarshal(raw, &v) == nil {
		return &v
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}

// isJSONValue reports whether raw holds something other than null.
func isJSONValue(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}
