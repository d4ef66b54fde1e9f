package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/internal/config"
	"basin-research-platform/models"
)

type fakeGraph struct {
	mu         sync.Mutex
	candidates map[string]struct{}
	err        error
	calls      int
}

func (f *fakeGraph) CandidatePapers(ctx context.Context, entities models.EntitySet) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.candidates, f.err
}

type fakeVector struct {
	mu        sync.Mutex
	results   []models.ScoredChunk
	err       error
	calls     int
	lastQuery string
	lastLimit int
}

func (f *fakeVector) Search(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = query
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeReranker struct {
	mu     sync.Mutex
	err    error
	calls  int
	lastIn []models.ScoredChunk
	lastK  int
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, chunks []models.ScoredChunk, k int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIn = chunks
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k < len(chunks) {
		return chunks[:k], nil
	}
	return chunks, nil
}

func newTestRetriever(graph *fakeGraph, vector *fakeVector, reranker *fakeReranker, topK, multiplier int) *HybridRetriever {
	cfg := &config.Config{TopK: topK, RetrieveMultiplier: multiplier}
	return NewHybridRetriever(graph, vector, reranker, nil, cfg)
}

func TestRetrieveGraphFailureIsNonFatal(t *testing.T) {
	graph := &fakeGraph{err: errors.New("neo4j unreachable")}
	vector := &fakeVector{results: []models.ScoredChunk{scoredChunk("a.pdf", "A", "x")}}
	reranker := &fakeReranker{}
	r := newTestRetriever(graph, vector, reranker, 5, 3)

	evidence, err := r.Retrieve(context.Background(), "water quality", 5)

	require.NoError(t, err)
	assert.Len(t, evidence, 1)
	assert.Equal(t, 1, graph.calls)
	assert.Equal(t, 1, vector.calls)
	assert.Equal(t, 1, reranker.calls)
}

func TestRetrieveVectorFailureIsFatal(t *testing.T) {
	graph := &fakeGraph{}
	vector := &fakeVector{err: errors.New("index offline")}
	reranker := &fakeReranker{}
	r := newTestRetriever(graph, vector, reranker, 5, 3)

	_, err := r.Retrieve(context.Background(), "water quality", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector search stage failed")
	assert.Equal(t, 0, reranker.calls)
}

func TestRetrieveRerankFailureIsFatal(t *testing.T) {
	graph := &fakeGraph{}
	vector := &fakeVector{results: []models.ScoredChunk{scoredChunk("a.pdf", "A", "x")}}
	reranker := &fakeReranker{err: errors.New("scorer down")}
	r := newTestRetriever(graph, vector, reranker, 5, 3)

	_, err := r.Retrieve(context.Background(), "water quality", 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rerank stage failed")
}

func TestRetrieveOverRetrievesThenDedups(t *testing.T) {
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "A", "1"),
		scoredChunk("a.pdf", "A", "2"),
		scoredChunk("b.pdf", "B", "3"),
		scoredChunk("b.pdf", "B", "4"),
		scoredChunk("c.pdf", "C", "5"),
		scoredChunk("c.pdf", "C", "6"),
	}
	graph := &fakeGraph{}
	vector := &fakeVector{results: chunks}
	reranker := &fakeReranker{}
	r := newTestRetriever(graph, vector, reranker, 2, 4)

	evidence, err := r.Retrieve(context.Background(), "water quality", 2)

	require.NoError(t, err)
	// Vector stage fetches top_k * multiplier; the reranker only ever sees
	// the per-document survivors.
	assert.Equal(t, 8, vector.lastLimit)
	assert.Equal(t, "water quality", vector.lastQuery)
	require.Len(t, reranker.lastIn, 2)
	assert.Equal(t, "a.pdf", reranker.lastIn[0].Filename)
	assert.Equal(t, "b.pdf", reranker.lastIn[1].Filename)
	assert.Equal(t, 2, reranker.lastK)
	assert.Len(t, evidence, 2)
}

func TestRetrieveZeroTopKUsesDefault(t *testing.T) {
	graph := &fakeGraph{}
	vector := &fakeVector{}
	reranker := &fakeReranker{}
	r := newTestRetriever(graph, vector, reranker, 5, 3)

	_, err := r.Retrieve(context.Background(), "water quality", 0)

	require.NoError(t, err)
	assert.Equal(t, 15, vector.lastLimit)
}

func TestRetrieveEmptyEvidenceIsNotAnError(t *testing.T) {
	graph := &fakeGraph{}
	vector := &fakeVector{results: []models.ScoredChunk{}}
	reranker := &fakeReranker{}
	r := newTestRetriever(graph, vector, reranker, 5, 3)

	evidence, err := r.Retrieve(context.Background(), "anything at all", 5)

	require.NoError(t, err)
	assert.Empty(t, evidence)
}
