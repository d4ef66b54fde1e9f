package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"basin-research-platform/internal/ai"
	"basin-research-platform/internal/logger"
	"basin-research-platform/models"
)

const noSourcesAnswer = "No relevant sources were found in the corpus for this question. " +
	"Try rephrasing the question or ingesting more documents."

type completionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type evidenceRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error)
}

// RAGService answers document-search queries: retrieve evidence, prompt the
// completion model with the numbered passages, then validate the citations
// in what comes back.
type RAGService struct {
	retriever evidenceRetriever
	llm       completionClient
	processor *ResponseProcessor
}

func NewRAGService(retriever evidenceRetriever, llm completionClient, processor *ResponseProcessor) *RAGService {
	return &RAGService{
		retriever: retriever,
		llm:       llm,
		processor: processor,
	}
}

// Answer runs the full pipeline for one question. Retrieval or completion
// failures propagate so the endpoint can answer "system unavailable"; an
// empty evidence set is answered locally without calling the model, since
// there is nothing to ground a completion in.
func (s *RAGService) Answer(ctx context.Context, query string, topK int) (*models.ProcessedResponse, error) {
	tracer := otel.Tracer("rag-service")
	ctx, span := tracer.Start(ctx, "rag.answer")
	defer span.End()

	evidence, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	span.SetAttributes(attribute.Int("rag.evidence_count", len(evidence)))

	if len(evidence) == 0 {
		logger.Info("No evidence retrieved, answering without completion", "query_length", len(query))
		processed := s.processor.ProcessResponse(noSourcesAnswer, nil)
		return &processed, nil
	}

	titles := make([]string, len(evidence))
	texts := make([]string, len(evidence))
	for i, chunk := range evidence {
		titles[i] = chunk.Title
		texts[i] = chunk.Text
	}

	prompt := ai.BuildTraceablePrompt(ai.BuildContextBlock(titles, texts), query)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	processed := s.processor.ProcessResponse(raw, evidence)
	span.SetAttributes(
		attribute.Int("rag.num_sources", processed.NumSources),
		attribute.Int("rag.reliability", processed.Traceability.ReliabilityScore),
	)

	return &processed, nil
}
