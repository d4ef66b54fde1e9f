package ai

import (
	"fmt"
	"strings"
)

// Answer prompt used for the document-search branch. The [N] markers it
// demands are what the response processor later validates and repairs.
const traceableAnswerTemplate = `You are a research assistant answering questions about river basin science using only the numbered context passages below.

Context information:
---------------------
%s
---------------------

Rules:
1. Base every factual statement on the context above, not prior knowledge.
2. Attach a reference marker [N] to every factual claim, where N is the number of the supporting passage.
3. Never invent a reference number that does not appear in the context.
4. If the context only partially covers the question, give the best answer you can and state its limitations explicitly. Do not refuse to answer.

Question: %s

Answer:`

// BuildTraceablePrompt assembles the completion prompt from the numbered
// evidence block and the user question.
func BuildTraceablePrompt(contextBlock, query string) string {
	return fmt.Sprintf(traceableAnswerTemplate, contextBlock, query)
}

const analysisSummaryTemplate = `You are a data analyst. Summarize the findings below for a non-technical reader in a short paragraph. Mention notable values, spreads and correlations. Do not invent numbers that are not in the table.

Dataset: %s

%s

Question: %s

Summary:`

// BuildAnalysisPrompt assembles the summarization prompt for the
// data-analysis branch from a plain-text statistics table.
func BuildAnalysisPrompt(query, filename, statsTable string) string {
	return fmt.Sprintf(analysisSummaryTemplate, filename, statsTable, query)
}

// BuildContextBlock renders evidence passages as a numbered block whose
// numbering matches the Source numbering produced later: position in the
// slice + 1. Titles are included so the model can name papers.
func BuildContextBlock(titles, texts []string) string {
	var b strings.Builder
	for i := range texts {
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, titles[i], texts[i])
	}
	return strings.TrimRight(b.String(), "\n")
}
