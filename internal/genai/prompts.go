package genai

import (
	"fmt"
	"strconv"

	"github.com/garyellow/course-advisor/internal/catalog"
)

// QueryParserPrompt is prefixed to the user's message for filter extraction.
const QueryParserPrompt = `
You are an NLP engine for a course recommendation system.

STRICT RULES:
- Output ONLY valid JSON
- No markdown
- No explanation

Schema:
{
  "keywords": [],
  "level": "all levels | beginner level | intermediate level | expert level",
  "is_paid": true | false | null,
  "min_price": number | null,
  "max_price": number | null
}

User query:
`

// IntentPrompt asks for a one-word intent label.
func IntentPrompt(query string) string {
	return fmt.Sprintf(`
Classify intent as ONE word only:
- recommendation (looking for course recommendations, course search, learning requests)
- dataset_question (asking about statistics, facts, information about courses)

User query:
%s

Response (ONE WORD ONLY):`, query)
}

// NoResultsPrompt asks for an encouraging reply after an empty search.
func NoResultsPrompt(query, criteria string) string {
	return fmt.Sprintf(`
You are a helpful course recommendation assistant. A user searched for courses %s, but we couldn't find any matches.

Generate a warm, empathetic, and helpful response (2-3 sentences) that:
1. Acknowledges their interest and validates their learning goal
2. Offers 2-3 specific, actionable alternatives (like trying a broader search, different level, adjusting budget, or related topics)
3. Keeps them motivated and engaged

User's original query: %q

Response:`, criteria, query)
}

// DescribeCoursePrompt asks for a short overview of c.
func DescribeCoursePrompt(c catalog.Course) string {
	return fmt.Sprintf(`
You are a course advisor. Generate an engaging, informative course description (3-4 sentences) based on these details:

Course Title: %s
Subject: %s
Level: %s
Number of Lectures: %d
Duration: %s hours
Subscribers: %d

The description should:
1. Explain what the course covers and who it's for
2. Highlight key learning outcomes or skills
3. Be encouraging and motivational
4. Sound natural and friendly

Description:`, c.Title, c.Subject, c.Level, c.Lectures,
		strconv.FormatFloat(c.DurationHours, 'f', -1, 64), c.Subscribers)
}

// DatasetPrompt restricts the answer to the CSV sample.
func DatasetPrompt(sampleCSV, question string) string {
	return fmt.Sprintf(`
Answer ONLY using the dataset below.
If the answer is not present, say:
"Not available in the dataset."

Dataset:
%s

Question:
%s
`, sampleCSV, question)
}
