package services

import (
	"strings"

	"basin-research-platform/models"
)

// Term lists for the processing-branch heuristic. Matching is substring
// over the lowercased query, so multi-word terms work too.
var dataAnalysisTerms = []string{
	"average", "mean", "median", "correlation", "correlate", "trend",
	"compare", "calculate", "compute", "statistics", "statistical",
	"standard deviation", "variance", "maximum", "minimum", "percentage",
	"dataset", "csv", "excel", "spreadsheet", "column", "measurements",
}

var documentSearchTerms = []string{
	"paper", "study", "studies", "author", "research", "publication",
	"literature", "according to", "defined", "definition", "restoration",
	"river", "basin", "watershed", "ecology", "ecological", "contamination",
	"water quality", "describe", "explain", "what is", "who wrote",
}

// ClassifyQuery picks the processing branch for a query. Pure function: the
// same inputs always yield the same branch. An attached tabular file forces
// data analysis; otherwise the keyword counts decide, falling to hybrid when
// both vocabularies appear and defaulting to document search.
func ClassifyQuery(query string, hasFile bool) models.QueryType {
	if hasFile {
		return models.QueryTypeDataAnalysis
	}

	q := strings.ToLower(query)
	dataMatches := countTerms(q, dataAnalysisTerms)
	docMatches := countTerms(q, documentSearchTerms)

	switch {
	case dataMatches > docMatches && dataMatches >= 2:
		return models.QueryTypeDataAnalysis
	case docMatches > dataMatches:
		return models.QueryTypeDocumentSearch
	case dataMatches > 0 && docMatches > 0:
		return models.QueryTypeHybrid
	default:
		return models.QueryTypeDocumentSearch
	}
}

func countTerms(query string, terms []string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(query, term) {
			count++
		}
	}
	return count
}
