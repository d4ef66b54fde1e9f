package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/models"
)

type fakeRetriever struct {
	mu       sync.Mutex
	evidence []models.ScoredChunk
	err      error
	calls    int
	lastTopK int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.evidence, nil
}

type countingLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *countingLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestAnswerEmptyEvidenceSkipsCompletion(t *testing.T) {
	retriever := &fakeRetriever{evidence: []models.ScoredChunk{}}
	llm := &countingLLM{response: "should never be used"}
	s := NewRAGService(retriever, llm, NewResponseProcessor())

	resp, err := s.Answer(context.Background(), "obscure question", 5)

	require.NoError(t, err)
	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, noSourcesAnswer, resp.Answer)
	assert.Equal(t, 0, resp.NumSources)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 20, resp.Traceability.ReliabilityScore)
}

func TestAnswerRetrievalFailurePropagates(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector search stage failed: index offline")}
	llm := &countingLLM{}
	s := NewRAGService(retriever, llm, NewResponseProcessor())

	_, err := s.Answer(context.Background(), "question", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failed")
	assert.Equal(t, 0, llm.calls)
}

func TestAnswerCompletionFailurePropagates(t *testing.T) {
	retriever := &fakeRetriever{evidence: []models.ScoredChunk{
		scoredChunk("a.pdf", "Title A", "passage"),
	}}
	llm := &countingLLM{err: errors.New("quota exhausted")}
	s := NewRAGService(retriever, llm, NewResponseProcessor())

	_, err := s.Answer(context.Background(), "question", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion failed")
	assert.Equal(t, 1, llm.calls)
}

func TestAnswerPromptCarriesEvidenceAndQuery(t *testing.T) {
	retriever := &fakeRetriever{evidence: []models.ScoredChunk{
		scoredChunk("ndci.pdf", "NDCI Methods", "NDCI measures chlorophyll"),
	}}
	llm := &countingLLM{response: "Grounded claim [1]. Unsupported claim [9]."}
	s := NewRAGService(retriever, llm, NewResponseProcessor())

	resp, err := s.Answer(context.Background(), "what does NDCI measure?", 3)

	require.NoError(t, err)
	assert.Contains(t, llm.lastPrompt, "NDCI Methods")
	assert.Contains(t, llm.lastPrompt, "NDCI measures chlorophyll")
	assert.Contains(t, llm.lastPrompt, "what does NDCI measure?")
	assert.Equal(t, 3, retriever.lastTopK)

	// Citation repair ran on the raw completion: [9] points past the single
	// source and is deleted, but it still counted toward total_references.
	assert.Contains(t, resp.Answer, "[1]")
	assert.NotContains(t, resp.Answer, "[9]")
	assert.Equal(t, 2, resp.Traceability.TotalReferences)
	assert.Equal(t, []int{1}, resp.Traceability.ValidReferences)
	assert.Equal(t, 80, resp.Traceability.ReliabilityScore)
}

func TestAnswerSourcesNumberedPerDocument(t *testing.T) {
	retriever := &fakeRetriever{evidence: []models.ScoredChunk{
		scoredChunk("a.pdf", "Title A", "first passage"),
		scoredChunk("b.pdf", "Title B", "second passage"),
	}}
	llm := &countingLLM{response: "Both agree [1][2]."}
	s := NewRAGService(retriever, llm, NewResponseProcessor())

	resp, err := s.Answer(context.Background(), "question", 5)

	require.NoError(t, err)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, 1, resp.Sources[0].Number)
	assert.Equal(t, "a.pdf", resp.Sources[0].Filename)
	assert.Equal(t, 2, resp.Sources[1].Number)
	assert.Equal(t, "b.pdf", resp.Sources[1].Filename)
	assert.Equal(t, 2, resp.NumSources)
	assert.Equal(t, 100, resp.Traceability.ReliabilityScore)
}
