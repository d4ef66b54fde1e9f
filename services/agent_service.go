package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/telemetry"
	"basin-research-platform/models"
)

// ErrAnalysisNeedsFile is returned when a data-analysis query arrives
// without an uploaded tabular file to analyze.
var ErrAnalysisNeedsFile = errors.New("data analysis requires an uploaded tabular file (file_id)")

type documentAnswerer interface {
	Answer(ctx context.Context, query string, topK int) (*models.ProcessedResponse, error)
}

type tableAnalyzer interface {
	Analyze(ctx context.Context, filePath, filename, query string) (*models.DataAnalysisResult, error)
}

type datasetResolver interface {
	Get(ctx context.Context, datasetID string) (*models.Dataset, error)
}

type sessionStore interface {
	EnsureSession(ctx context.Context, sessionID string) (string, error)
	AppendQuery(ctx context.Context, sessionID string, entry models.SessionQuery) error
	CacheAnswer(ctx context.Context, sessionID string, result *models.QueryResult) error
}

// AgentService routes each query to the capability its classification
// selects and records the outcome on the session.
type AgentService struct {
	rag      documentAnswerer
	analysis tableAnalyzer
	datasets datasetResolver
	sessions sessionStore
	metrics  *telemetry.Metrics
}

func NewAgentService(rag documentAnswerer, analysis tableAnalyzer, datasets datasetResolver, sessions sessionStore, metrics *telemetry.Metrics) *AgentService {
	return &AgentService{
		rag:      rag,
		analysis: analysis,
		datasets: datasets,
		sessions: sessions,
		metrics:  metrics,
	}
}

// HandleQuery classifies the query, dispatches to document search and/or
// data analysis, and returns the tagged result.
func (s *AgentService) HandleQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	tracer := otel.Tracer("basin-research-platform")
	ctx, span := tracer.Start(ctx, "agent.handle_query")
	defer span.End()

	queryType := ClassifyQuery(req.Query, req.FileID != "")
	span.SetAttributes(
		attribute.String("query.type", string(queryType)),
		attribute.Bool("query.has_file", req.FileID != ""),
	)

	sessionID, err := s.sessions.EnsureSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session setup failed: %w", err)
	}

	result := &models.QueryResult{
		Type:      queryType,
		SessionID: sessionID,
	}

	switch queryType {
	case models.QueryTypeDataAnalysis:
		analysis, err := s.analyzeFile(ctx, req)
		if err != nil {
			return nil, err
		}
		result.DataAnalysis = analysis

	case models.QueryTypeHybrid:
		answer, err := s.rag.Answer(ctx, req.Query, req.TopK)
		if err != nil {
			return nil, err
		}
		result.DocumentSearch = answer
		if req.FileID != "" {
			analysis, err := s.analyzeFile(ctx, req)
			if err != nil {
				return nil, err
			}
			result.DataAnalysis = analysis
		}

	default: // document_search
		answer, err := s.rag.Answer(ctx, req.Query, req.TopK)
		if err != nil {
			return nil, err
		}
		result.DocumentSearch = answer
	}

	s.recordOutcome(ctx, sessionID, req.Query, result)
	return result, nil
}

func (s *AgentService) analyzeFile(ctx context.Context, req models.QueryRequest) (*models.DataAnalysisResult, error) {
	if req.FileID == "" {
		return nil, ErrAnalysisNeedsFile
	}
	dataset, err := s.datasets.Get(ctx, req.FileID)
	if err != nil {
		return nil, err
	}
	return s.analysis.Analyze(ctx, dataset.FilePath, dataset.Filename, req.Query)
}

// recordOutcome appends the answered query to the session and refreshes
// the cached latest answer. Session bookkeeping never fails the query.
func (s *AgentService) recordOutcome(ctx context.Context, sessionID, query string, result *models.QueryResult) {
	entry := models.SessionQuery{
		Query:     query,
		QueryType: result.Type,
		AskedAt:   time.Now(),
	}
	if result.DocumentSearch != nil {
		entry.Answer = result.DocumentSearch.Answer
		entry.NumSources = result.DocumentSearch.NumSources
		entry.ReliabilityScore = result.DocumentSearch.Traceability.ReliabilityScore
	} else if result.DataAnalysis != nil {
		entry.Answer = result.DataAnalysis.Summary
	}

	if err := s.sessions.AppendQuery(ctx, sessionID, entry); err != nil {
		logger.Warn("Failed to record query on session", "session_id", sessionID, "error", err)
	}
	if err := s.sessions.CacheAnswer(ctx, sessionID, result); err != nil {
		logger.Warn("Failed to cache session answer", "session_id", sessionID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordQuery(string(result.Type), entry.ReliabilityScore)
	}
}
