package retrieval

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/garyellow/course-advisor/internal/catalog"
	domerrors "github.com/garyellow/course-advisor/internal/errors"
)

// MinDocFreq is the number of documents a term must appear in to enter the vocabulary.
const MinDocFreq = 2

// ErrEmptyVocabulary is returned when no term survives the document-frequency cut.
var ErrEmptyVocabulary = errors.New("no terms remain after pruning")

type sparseVector struct {
	terms   []int
	weights []float64
}

// Index is an immutable TF-IDF model over a course catalog. Document rows
// are L2-normalized, so the dot product with a normalized query is the
// cosine similarity.
type Index struct {
	courses []catalog.Course
	byID    map[int]int
	vocab   map[string]int
	idf     []float64
	docs    []sparseVector
}

// Build fits the index: unigrams and bigrams, min document frequency 2,
// smoothed idf ln((1+n)/(1+df))+1, raw counts and L2 row normalization.
func Build(courses []catalog.Course) (*Index, error) {
	if len(courses) == 0 {
		return nil, domerrors.ErrCatalogEmpty
	}

	analyzed := make([][]string, len(courses))
	df := make(map[string]int)
	for i, c := range courses {
		analyzed[i] = analyze(c.SemanticText())
		seen := make(map[string]struct{}, len(analyzed[i]))
		for _, term := range analyzed[i] {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n >= MinDocFreq {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	slices.Sort(terms)

	n := float64(len(courses))
	idx := &Index{
		courses: slices.Clone(courses),
		byID:    make(map[int]int, len(courses)),
		vocab:   make(map[string]int, len(terms)),
		idf:     make([]float64, len(terms)),
		docs:    make([]sparseVector, len(courses)),
	}
	for i, term := range terms {
		idx.vocab[term] = i
		idx.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	for i, c := range idx.courses {
		idx.byID[c.ID] = i
		idx.docs[i] = idx.vectorize(analyzed[i])
	}
	return idx, nil
}

func (idx *Index) vectorize(terms []string) sparseVector {
	counts := make(map[int]float64)
	for _, term := range terms {
		if id, ok := idx.vocab[term]; ok {
			counts[id]++
		}
	}

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	vec := sparseVector{terms: ids, weights: make([]float64, len(ids))}
	var norm float64
	for i, id := range ids {
		w := counts[id] * idx.idf[id]
		vec.weights[i] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.weights {
			vec.weights[i] /= norm
		}
	}
	return vec
}

// dot multiplies two sparse vectors whose term ids are sorted.
func dot(a, b sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.terms) && j < len(b.terms) {
		switch {
		case a.terms[i] == b.terms[j]:
			sum += a.weights[i] * b.weights[j]
			i++
			j++
		case a.terms[i] < b.terms[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Similarities returns the cosine similarity of text to every course, in catalog order.
func (idx *Index) Similarities(text string) []float64 {
	q := idx.vectorize(analyze(text))
	scores := make([]float64, len(idx.docs))
	if len(q.terms) == 0 {
		return scores
	}
	for i, d := range idx.docs {
		scores[i] = dot(q, d)
	}
	return scores
}

// Len returns the number of indexed courses.
func (idx *Index) Len() int { return len(idx.courses) }

// VocabularySize returns the number of terms kept after pruning.
func (idx *Index) VocabularySize() int { return len(idx.vocab) }

// Course looks up a course by ID.
func (idx *Index) Course(id int) (catalog.Course, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return catalog.Course{}, false
	}
	return idx.courses[i], true
}

// Courses returns the indexed courses in catalog order. Callers must not modify them.
func (idx *Index) Courses() []catalog.Course { return idx.courses }

func (idx *Index) String() string {
	return fmt.Sprintf("tfidf(courses=%d, vocab=%d)", len(idx.courses), len(idx.vocab))
}
