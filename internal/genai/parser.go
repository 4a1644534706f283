package genai

import (
	"context"
	"strings"

	"github.com/garyellow/course-advisor/internal/dialogue"
	"github.com/garyellow/course-advisor/internal/filters"
)

// TextGenerator is the part of Chain used by the adapters below.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// available reports whether g can reach at least one model.
func available(g TextGenerator) bool {
	if g == nil {
		return false
	}
	if c, ok := g.(*Chain); ok {
		return c.Len() > 0
	}
	return true
}

// QueryParser extracts filters with a language model. Without a model it
// uses the heuristic parser; when the model fails it returns the default
// filters so the conversation can continue.
type QueryParser struct {
	gen TextGenerator
}

// NewQueryParser creates a QueryParser. gen may be nil.
func NewQueryParser(gen TextGenerator) *QueryParser {
	return &QueryParser{gen: gen}
}

// Parse implements dialogue.QueryParser.
func (p *QueryParser) Parse(ctx context.Context, text string) filters.FilterSet {
	if !available(p.gen) {
		return filters.ParseHeuristic(text)
	}
	out, err := p.gen.Generate(ctx, Request{
		Operation:       OpParse,
		Prompt:          QueryParserPrompt + text,
		JSON:            true,
		Temperature:     0.1,
		MaxOutputTokens: 256,
	})
	if err != nil {
		return filters.Default()
	}
	return SafeJSONParse(out)
}

// recommendationWords route an unclassified query to recommendations.
var recommendationWords = []string{"course", "learn", "budget", "price", "show", "find", "want"}

// IntentClassifier labels idle-state messages with a language model.
// Without a model every message is a recommendation request, since
// dataset questions cannot be answered offline.
type IntentClassifier struct {
	gen TextGenerator
}

// NewIntentClassifier creates an IntentClassifier. gen may be nil.
func NewIntentClassifier(gen TextGenerator) *IntentClassifier {
	return &IntentClassifier{gen: gen}
}

// Classify implements dialogue.IntentClassifier. A failed call is treated
// as an empty answer.
func (c *IntentClassifier) Classify(ctx context.Context, text string) dialogue.Intent {
	if !available(c.gen) {
		return dialogue.IntentRecommendation
	}
	answer, err := c.gen.Generate(ctx, Request{
		Operation:       OpClassify,
		Prompt:          IntentPrompt(text),
		Temperature:     0,
		MaxOutputTokens: 8,
	})
	if err != nil {
		answer = ""
	}
	return ClassifyAnswer(answer, text)
}

// ClassifyAnswer maps a model's one-word answer to an Intent, falling back
// to keywords in the query when the answer is unrecognized.
func ClassifyAnswer(answer, query string) dialogue.Intent {
	a := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.Contains(a, "recommend"):
		return dialogue.IntentRecommendation
	case strings.Contains(a, "dataset"), strings.Contains(a, "question"):
		return dialogue.IntentDatasetQuestion
	}

	q := strings.ToLower(query)
	for _, w := range recommendationWords {
		if strings.Contains(q, w) {
			return dialogue.IntentRecommendation
		}
	}
	return dialogue.IntentDatasetQuestion
}
