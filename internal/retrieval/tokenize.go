package retrieval

import (
	"regexp"
	"strings"
)

// Words of two or more letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// analyze lower-cases text, drops stop words and returns unigrams followed
// by space-joined bigrams of the remaining words.
func analyze(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	words := raw[:0]
	for _, w := range raw {
		if _, stop := englishStopWords[w]; !stop {
			words = append(words, w)
		}
	}

	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}
