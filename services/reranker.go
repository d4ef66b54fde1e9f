package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"basin-research-platform/internal/config"
	"basin-research-platform/models"
)

// Reranker re-scores candidates against a query with a pairwise relevance
// model and returns the top k by score, descending
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []models.ScoredChunk, k int) ([]models.ScoredChunk, error)
}

// CrossEncoderReranker scores (query, passage) pairs through an external
// cross-encoder service. One instance is shared across queries; the HTTP
// client and breaker are safe for concurrent use.
type CrossEncoderReranker struct {
	endpoint   string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	batchSize  int
}

const rerankerBatchSize = 32

func NewCrossEncoderReranker(cfg *config.Config) *CrossEncoderReranker {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "RerankerAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &CrossEncoderReranker{
		endpoint:   cfg.RerankerURL + "/rerank",
		model:      cfg.RerankerModel,
		httpClient: &http.Client{Timeout: time.Duration(cfg.RerankerTimeout) * time.Second},
		breaker:    breaker,
		batchSize:  rerankerBatchSize,
	}
}

type rerankRequest struct {
	Model string      `json:"model"`
	Pairs [][2]string `json:"pairs"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank scores every chunk against the query, stable-sorts descending by
// score and truncates to k. Empty input returns empty without touching the
// scoring service. Scoring failures are hard failures for the query.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, chunks []models.ScoredChunk, k int) ([]models.ScoredChunk, error) {
	if len(chunks) == 0 {
		return []models.ScoredChunk{}, nil
	}

	scores := make([]float64, 0, len(chunks))
	for start := 0; start < len(chunks); start += r.batchSize {
		end := start + r.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		pairs := make([][2]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			pairs = append(pairs, [2]string{query, chunk.Text})
		}

		batchScores, err := r.scoreBatch(ctx, pairs)
		if err != nil {
			return nil, fmt.Errorf("reranker scoring failed: %w", err)
		}
		scores = append(scores, batchScores...)
	}

	reranked := make([]models.ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		chunk.Score = scores[i]
		chunk.Origin = models.ScoreOriginRerank
		reranked[i] = chunk
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if k < len(reranked) {
		reranked = reranked[:k]
	}
	return reranked, nil
}

func (r *CrossEncoderReranker) scoreBatch(ctx context.Context, pairs [][2]string) ([]float64, error) {
	payload, err := json.Marshal(rerankRequest{Model: r.model, Pairs: pairs})
	if err != nil {
		return nil, err
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("reranker returned %d: %s", resp.StatusCode, string(body))
		}

		var decoded rerankResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode reranker response: %w", err)
		}
		return decoded.Scores, nil
	})
	if err != nil {
		return nil, err
	}

	scores := result.([]float64)
	if len(scores) != len(pairs) {
		return nil, fmt.Errorf("reranker returned %d scores for %d pairs", len(scores), len(pairs))
	}
	return scores, nil
}
