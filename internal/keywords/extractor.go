package keywords

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Set is a normalized keyword set. Iteration order is undefined; use
// Sorted when a deterministic ordering is needed.
type Set map[string]struct{}

func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s Set) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

func (s Set) Len() int { return len(s) }

func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set)
	for w := range small {
		if large.Contains(w) {
			out[w] = struct{}{}
		}
	}
	return out
}

func (s Set) Diff(other Set) Set {
	out := make(Set)
	for w := range s {
		if !other.Contains(w) {
			out[w] = struct{}{}
		}
	}
	return out
}

func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

var stopwords = NewSet(
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with",
	"by", "an", "as", "are", "was", "were", "be", "been", "being", "have",
	"has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "must", "can", "this", "that", "these", "those", "you",
	"he", "she", "it", "we", "they", "me", "him", "her", "us", "them", "my",
	"your", "his", "its", "our", "their", "is", "am", "not", "from", "all",
	"any", "more", "most", "other", "some", "such", "than", "then", "there",
	"about", "into", "over", "per", "also", "each", "both", "if", "so",
)

// Extractor normalizes free text into a keyword set. Extraction is
// deterministic: identical text always yields an identical set.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract tokenizes text and applies the normalization pipeline:
// lowercase, strip punctuation, drop stopwords, drop tokens shorter than
// two characters, deduplicate. Empty or whitespace-only input yields an
// empty set, not an error.
func (e *Extractor) Extract(text string) Set {
	out := make(Set)
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, token := range tokenize(text) {
		word := normalizeToken(token)
		if word == "" || len([]rune(word)) < 2 {
			continue
		}
		if stopwords.Contains(word) {
			continue
		}
		out[word] = struct{}{}
	}

	return out
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		// Tokenizer failure degrades to whitespace splitting rather than
		// losing the turn.
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		words = append(words, t.Text)
	}
	return words
}

func normalizeToken(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
