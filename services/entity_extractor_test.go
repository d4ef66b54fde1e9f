package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntitiesAuthorShapes(t *testing.T) {
	entities := ExtractEntities("Sandeep Mishra and S. Kumar studied chlorophyll")

	// Full-name matches come before initial-style matches.
	assert.Equal(t, []string{"Sandeep Mishra", "S. Kumar"}, entities.Authors)
	assert.Contains(t, entities.Keywords, "studied")
	assert.Contains(t, entities.Keywords, "chlorophyll")
	assert.Empty(t, entities.Concepts)
}

func TestExtractEntitiesKeywordShapes(t *testing.T) {
	entities := ExtractEntities("What did Mishra say about NDCI?")

	assert.Empty(t, entities.Authors)
	// Capitalized words need 4+ chars, lowercase words 5+; acronyms in all
	// caps never match.
	assert.Equal(t, []string{"What", "Mishra", "about"}, entities.Keywords)
}

func TestExtractEntitiesEmptyQuery(t *testing.T) {
	entities := ExtractEntities("")

	assert.NotNil(t, entities.Authors)
	assert.NotNil(t, entities.Concepts)
	assert.NotNil(t, entities.Keywords)
	assert.Empty(t, entities.Authors)
	assert.Empty(t, entities.Keywords)
}

func TestTopKeywordsFrequencyOrder(t *testing.T) {
	words := TopKeywords("water water Water quality quality basin", 10)

	assert.Equal(t, []string{"water", "quality", "basin"}, words)
}

func TestTopKeywordsTieBreakByFirstAppearance(t *testing.T) {
	words := TopKeywords("alpha delta alpha delta gamma", 2)

	assert.Equal(t, []string{"alpha", "delta"}, words)
}

func TestTopKeywordsTruncatesToN(t *testing.T) {
	words := TopKeywords("alpha delta gamma omega sigma", 3)

	assert.Len(t, words, 3)
}

func TestTopKeywordsEmptyText(t *testing.T) {
	assert.Empty(t, TopKeywords("", 5))
}
