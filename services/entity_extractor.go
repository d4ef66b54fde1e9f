package services

import (
	"regexp"
	"sort"
	"strings"

	"basin-research-platform/models"
)

// Author name shapes: "Firstname Lastname" and "F. Lastname".
var (
	authorFullPattern    = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	authorInitialPattern = regexp.MustCompile(`\b[A-Z]\. [A-Z][a-z]+\b`)

	// Candidate technical keywords: capitalized word of 4+ characters or a
	// lowercase word of 5+ characters.
	keywordPattern = regexp.MustCompile(`\b[A-Z][a-z]{3,}\b|\b[a-z]{5,}\b`)
)

// ExtractEntities derives coarse entities from a raw query string. Matches
// are collected in order of appearance and duplicates are kept; downstream
// consumers must tolerate repeats. Concepts stay empty unless the caller
// fills them in. Never fails: no matches means empty lists.
func ExtractEntities(query string) models.EntitySet {
	entities := models.EntitySet{
		Authors:  []string{},
		Concepts: []string{},
		Keywords: []string{},
	}

	entities.Authors = append(entities.Authors, authorFullPattern.FindAllString(query, -1)...)
	entities.Authors = append(entities.Authors, authorInitialPattern.FindAllString(query, -1)...)
	entities.Keywords = append(entities.Keywords, keywordPattern.FindAllString(query, -1)...)

	return entities
}

// TopKeywords returns the n most frequent keyword matches in the text,
// lowercased, most frequent first. Ties break by first appearance so the
// result is deterministic.
func TopKeywords(text string, n int) []string {
	counts := make(map[string]int)
	order := make(map[string]int)

	for i, match := range keywordPattern.FindAllString(text, -1) {
		word := strings.ToLower(match)
		if _, seen := counts[word]; !seen {
			order[word] = i
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return order[words[i]] < order[words[j]]
	})

	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return words
}
