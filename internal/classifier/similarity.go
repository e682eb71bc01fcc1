package classifier

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)
	wordRe       = regexp.MustCompile(`\p{L}+`)
)

// Normalize lowercases s, collapses whitespace runs (including Unicode
// spaces such as NBSP) and trims it.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// Tokenize returns the set of words in s. A word is a run of Unicode letters.
func Tokenize(s string) map[string]struct{} {
	words := wordRe.FindAllString(Normalize(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index of the word sets of a and b.
// It is 0 when either text has no words.
func Similarity(a, b string) float64 {
	wa, wb := Tokenize(a), Tokenize(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	union := len(wa) + len(wb) - shared
	return float64(shared) / float64(union)
}

// FindPhrases returns the phrases that occur in text, in lexicon order.
func FindPhrases(text string, phrases []string) []string {
	normalized := Normalize(text)
	found := make([]string, 0)
	seen := make(map[string]struct{})
	for _, phrase := range phrases {
		p := strings.ToLower(phrase)
		if p == "" || !strings.Contains(normalized, p) {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		found = append(found, p)
	}
	return found
}

// BestScopeMatch finds the scope item most similar to content. Ties go to
// the earliest item and a zero score never matches.
func BestScopeMatch(content string, items []ScopeItem) (index *int, score float64, id *uuid.UUID) {
	for i, item := range items {
		s := Similarity(content, item.Text())
		if s > score {
			score = s
			index = intPtr(i)
			id = nil
			if item.ID != uuid.Nil {
				itemID := item.ID
				id = &itemID
			}
		}
	}
	return index, score, id
}
