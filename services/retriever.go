package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"basin-research-platform/internal/config"
	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/telemetry"
	"basin-research-platform/models"
)

// Consumer-side views of the stores so tests can inject fakes.
type graphLookup interface {
	CandidatePapers(ctx context.Context, entities models.EntitySet) (map[string]struct{}, error)
}

type vectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error)
}

// HybridRetriever turns a free-text question into a ranked, per-document
// deduplicated evidence set: vector search over-retrieves, the diversity
// filter dedups per filename, the cross-encoder reorders what survives.
// Constructed once at startup with shared store handles; per-query state is
// all local.
type HybridRetriever struct {
	graph      graphLookup
	vector     vectorSearcher
	reranker   Reranker
	metrics    *telemetry.Metrics
	topK       int
	multiplier int
}

func NewHybridRetriever(graph graphLookup, vector vectorSearcher, reranker Reranker, metrics *telemetry.Metrics, cfg *config.Config) *HybridRetriever {
	return &HybridRetriever{
		graph:      graph,
		vector:     vector,
		reranker:   reranker,
		metrics:    metrics,
		topK:       cfg.TopK,
		multiplier: cfg.RetrieveMultiplier,
	}
}

// Retrieve runs the sequential pipeline for one query. topK <= 0 falls back
// to the configured default.
//
// Graph candidates are computed for observability but deliberately not used
// to filter the vector search; retrieval quality currently rests on the
// vector + rerank stages alone. Store or reranker failures propagate as hard
// failures, the caller maps them to a "system unavailable" response. An
// empty evidence set is a valid result, not an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	if topK <= 0 {
		topK = r.topK
	}

	tracer := otel.Tracer("hybrid-retriever")
	ctx, span := tracer.Start(ctx, "retriever.hybrid_retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.Int("retrieval.top_k", topK),
		attribute.Int("retrieval.query_length", len(query)),
	)

	start := time.Now()

	// Stage 1: entities and advisory graph candidates. The graph failing is
	// never fatal; retrieval continues on vector search alone.
	entities := ExtractEntities(query)
	candidates, err := r.graph.CandidatePapers(ctx, entities)
	if err != nil {
		logger.Warn("Graph lookup degraded, continuing without candidates", "error", err)
	}
	span.SetAttributes(
		attribute.Int("retrieval.graph_candidates", len(candidates)),
		attribute.Int("retrieval.entity_authors", len(entities.Authors)),
		attribute.Int("retrieval.entity_keywords", len(entities.Keywords)),
	)
	if r.metrics != nil {
		r.metrics.RecordGraphLookup(len(candidates), err == nil)
	}

	// Stage 2: over-retrieve so the diversity filter has room to discard
	// near-duplicate-document chunks.
	fetched, err := r.vector.Search(ctx, query, topK*r.multiplier)
	if err != nil {
		r.recordRetrieval(start, 0, "error")
		return nil, fmt.Errorf("vector search stage failed: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieval.vector_results", len(fetched)))

	// Stage 3: one chunk per source document, rank order preserved.
	diverse := DiversityFilter(fetched, topK)
	span.SetAttributes(attribute.Int("retrieval.diverse_results", len(diverse)))

	// Stage 4: cross-encoder reordering of the survivors.
	evidence, err := r.reranker.Rerank(ctx, query, diverse, topK)
	if r.metrics != nil {
		r.metrics.RecordRerankerCall(len(diverse), err == nil)
	}
	if err != nil {
		r.recordRetrieval(start, 0, "error")
		return nil, fmt.Errorf("rerank stage failed: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieval.evidence_count", len(evidence)))

	logger.Debug("Hybrid retrieval complete",
		"top_k", topK,
		"graph_candidates", len(candidates),
		"vector_results", len(fetched),
		"evidence_count", len(evidence),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	r.recordRetrieval(start, len(evidence), "success")

	return evidence, nil
}

func (r *HybridRetriever) recordRetrieval(start time.Time, evidenceCount int, status string) {
	if r.metrics != nil {
		r.metrics.RecordRetrieval(time.Since(start).Seconds(), evidenceCount, status)
	}
}
