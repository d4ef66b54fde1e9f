package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basin-research-platform/models"
)

func newTestReranker(endpoint string, batchSize int) *CrossEncoderReranker {
	return &CrossEncoderReranker{
		endpoint:   endpoint + "/rerank",
		model:      "test-cross-encoder",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		batchSize:  batchSize,
	}
}

// scoringServer answers /rerank with one score per pair, looked up by passage
// text, and records the size of every batch it received.
type scoringServer struct {
	mu         sync.Mutex
	scores     map[string]float64
	batchSizes []int
	calls      int
}

func (s *scoringServer) handler(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls++
	s.batchSizes = append(s.batchSizes, len(req.Pairs))
	out := make([]float64, 0, len(req.Pairs))
	for _, pair := range req.Pairs {
		out = append(out, s.scores[pair[1]])
	}
	s.mu.Unlock()

	json.NewEncoder(w).Encode(rerankResponse{Scores: out})
}

func TestRerankSortsDescendingAndTruncates(t *testing.T) {
	backend := &scoringServer{scores: map[string]float64{
		"low": 0.2, "high": 0.9, "mid": 0.5,
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	r := newTestReranker(server.URL, 32)
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "A", "low"),
		scoredChunk("b.pdf", "B", "high"),
		scoredChunk("c.pdf", "C", "mid"),
	}

	out, err := r.Rerank(context.Background(), "query", chunks, 2)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].Text)
	assert.Equal(t, "mid", out[1].Text)
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, models.ScoreOriginRerank, out[0].Origin)
	assert.Equal(t, models.ScoreOriginRerank, out[1].Origin)
}

func TestRerankStableForEqualScores(t *testing.T) {
	backend := &scoringServer{scores: map[string]float64{
		"first": 0.5, "second": 0.5,
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	r := newTestReranker(server.URL, 32)
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "A", "first"),
		scoredChunk("b.pdf", "B", "second"),
	}

	out, err := r.Rerank(context.Background(), "query", chunks, 5)

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Text)
	assert.Equal(t, "second", out[1].Text)
}

func TestRerankEmptyInputSkipsScoringService(t *testing.T) {
	backend := &scoringServer{scores: map[string]float64{}}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	r := newTestReranker(server.URL, 32)
	out, err := r.Rerank(context.Background(), "query", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, backend.calls)
}

func TestRerankBatchesLargeInputs(t *testing.T) {
	scores := map[string]float64{}
	chunks := make([]models.ScoredChunk, 0, 5)
	for _, text := range []string{"p1", "p2", "p3", "p4", "p5"} {
		scores[text] = 0.1
		chunks = append(chunks, scoredChunk(text+".pdf", "T", text))
	}
	backend := &scoringServer{scores: scores}
	server := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer server.Close()

	r := newTestReranker(server.URL, 2)
	out, err := r.Rerank(context.Background(), "query", chunks, 10)

	require.NoError(t, err)
	assert.Len(t, out, 5)
	assert.Equal(t, []int{2, 2, 1}, backend.batchSizes)
}

func TestRerankScoreCountMismatchFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.5}})
	}))
	defer server.Close()

	r := newTestReranker(server.URL, 32)
	chunks := []models.ScoredChunk{
		scoredChunk("a.pdf", "A", "one"),
		scoredChunk("b.pdf", "B", "two"),
	}

	_, err := r.Rerank(context.Background(), "query", chunks, 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reranker scoring failed")
	assert.Contains(t, err.Error(), "1 scores for 2 pairs")
}

func TestRerankServerErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusInternalServerError)
	}))
	defer server.Close()

	r := newTestReranker(server.URL, 32)
	chunks := []models.ScoredChunk{scoredChunk("a.pdf", "A", "one")}

	_, err := r.Rerank(context.Background(), "query", chunks, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reranker returned 500")
}
