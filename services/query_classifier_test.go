package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"basin-research-platform/models"
)

func TestClassifyQueryAttachedFileForcesAnalysis(t *testing.T) {
	// Even a pure literature question goes to the analysis branch when a
	// tabular file is attached.
	got := ClassifyQuery("what is river restoration", true)
	assert.Equal(t, models.QueryTypeDataAnalysis, got)
}

func TestClassifyQueryDefaultsToDocumentSearch(t *testing.T) {
	assert.Equal(t, models.QueryTypeDocumentSearch, ClassifyQuery("", false))
	assert.Equal(t, models.QueryTypeDocumentSearch, ClassifyQuery("tell me something", false))
}

func TestClassifyQueryDataAnalysisNeedsTwoTerms(t *testing.T) {
	// Two analysis terms, no document vocabulary.
	got := ClassifyQuery("calculate the average temperature", false)
	assert.Equal(t, models.QueryTypeDataAnalysis, got)

	// A single analysis term is not enough to leave the default branch.
	got = ClassifyQuery("what's the average?", false)
	assert.Equal(t, models.QueryTypeDocumentSearch, got)
}

func TestClassifyQueryDocumentVocabularyWins(t *testing.T) {
	got := ClassifyQuery("who wrote the paper on river restoration", false)
	assert.Equal(t, models.QueryTypeDocumentSearch, got)
}

func TestClassifyQueryMixedVocabularyIsHybrid(t *testing.T) {
	got := ClassifyQuery("compare the average contamination in the river", false)
	assert.Equal(t, models.QueryTypeHybrid, got)

	got = ClassifyQuery("compare contamination", false)
	assert.Equal(t, models.QueryTypeHybrid, got)
}

func TestClassifyQueryDataOutweighsDocument(t *testing.T) {
	got := ClassifyQuery("calculate the mean and variance of contamination", false)
	assert.Equal(t, models.QueryTypeDataAnalysis, got)
}

func TestClassifyQueryDeterministic(t *testing.T) {
	query := "correlation between water quality and restoration"
	first := ClassifyQuery(query, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ClassifyQuery(query, false))
	}
}
