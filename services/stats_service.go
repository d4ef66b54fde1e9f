package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"basin-research-platform/internal/logger"
	"basin-research-platform/models"
)

const (
	statsCacheKey = "corpus:stats"
	statsCacheTTL = time.Hour
)

// tokenUsage reports completion token consumption for the stats surface.
type tokenUsage interface {
	TokensUsedToday() int
}

// StatsService aggregates corpus counts from Mongo and the graph store
// and keeps the result cached in Redis for the stats endpoint.
type StatsService struct {
	papers  *PaperService
	vectors *VectorService
	graph   *GraphService
	rdb     *redis.Client
	usage   tokenUsage
}

func NewStatsService(papers *PaperService, vectors *VectorService, graph *GraphService, rdb *redis.Client, usage tokenUsage) *StatsService {
	return &StatsService{
		papers:  papers,
		vectors: vectors,
		graph:   graph,
		rdb:     rdb,
		usage:   usage,
	}
}

// Refresh recomputes corpus stats and caches them. Graph counts degrade
// to zero with a warning when the graph store is down; document counts do
// not, they are the product.
func (s *StatsService) Refresh(ctx context.Context) (*models.CorpusStats, error) {
	paperCount, err := s.papers.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count papers: %w", err)
	}
	chunkCount, err := s.vectors.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	stats := &models.CorpusStats{
		Papers:      paperCount,
		Chunks:      chunkCount,
		RefreshedAt: time.Now(),
	}
	if s.usage != nil {
		stats.TokensUsedToday = s.usage.TokensUsedToday()
	}

	if graphStats, err := s.graph.CorpusStats(ctx); err != nil {
		logger.Warn("Graph stats unavailable", "error", err)
	} else {
		stats.Authors = graphStats.Authors
		stats.Concepts = graphStats.Concepts
		stats.Authorships = graphStats.Authorships
		stats.Topics = graphStats.Topics
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := s.rdb.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
			logger.Warn("Failed to cache corpus stats", "error", err)
		}
	}
	return stats, nil
}

// Current returns the cached stats, recomputing on a cold cache.
func (s *StatsService) Current(ctx context.Context) (*models.CorpusStats, error) {
	payload, err := s.rdb.Get(ctx, statsCacheKey).Bytes()
	if err == nil {
		var stats models.CorpusStats
		if err := json.Unmarshal(payload, &stats); err == nil {
			return &stats, nil
		}
	}
	return s.Refresh(ctx)
}
