package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"basin-research-platform/internal/ai"
	"basin-research-platform/internal/config"
	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/telemetry"
	"basin-research-platform/models"
	"basin-research-platform/utils"
)

var ErrPaperNotFound = errors.New("paper not found")

const conceptsPerPaper = 15

// IngestService runs the indexing pipeline for one paper: extract text,
// derive metadata, chunk, embed, store vectors, merge the knowledge graph
// and archive the compressed full text.
type IngestService struct {
	papers    *mongo.Collection
	extractor *PDFExtractor
	embedder  *ai.Embedder
	vectors   *VectorService
	graph     *GraphService
	metrics   *telemetry.Metrics
	chunkSize int
	overlap   int
}

func NewIngestService(
	mongoClient *mongo.Client,
	cfg *config.Config,
	extractor *PDFExtractor,
	embedder *ai.Embedder,
	vectors *VectorService,
	graph *GraphService,
	metrics *telemetry.Metrics,
) *IngestService {
	return &IngestService{
		papers:    mongoClient.Database(cfg.DBName).Collection("papers"),
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		graph:     graph,
		metrics:   metrics,
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.ChunkOverlap,
	}
}

// IngestPaper processes a stored paper end to end. On failure the paper is
// marked failed with the error and the error is returned so the queue can
// retry.
func (s *IngestService) IngestPaper(ctx context.Context, paperID string) error {
	tracer := otel.Tracer("basin-research-platform")
	ctx, span := tracer.Start(ctx, "ingest.paper")
	defer span.End()
	span.SetAttributes(attribute.String("paper.id", paperID))

	start := time.Now()

	paper, err := s.loadPaper(ctx, paperID)
	if err != nil {
		return err
	}

	s.setStatus(ctx, paperID, models.StatusProcessing, "")

	if err := s.process(ctx, paper); err != nil {
		s.setStatus(ctx, paperID, models.StatusFailed, err.Error())
		s.recordIngest(time.Since(start).Seconds(), "failed")
		return fmt.Errorf("ingestion of %s failed: %w", paperID, err)
	}

	s.recordIngest(time.Since(start).Seconds(), "indexed")
	logger.Info("Paper indexed", "paper_id", paperID, "duration", time.Since(start).String())
	return nil
}

func (s *IngestService) process(ctx context.Context, paper *models.Paper) error {
	extraction, err := s.extractor.ExtractText(ctx, paper.FilePath)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	meta := DeriveMetadata(extraction.Text, paper.Filename)

	chunks := s.extractor.CreateChunks(extraction.Text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return fmt.Errorf("document produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	now := time.Now()
	for i := range chunks {
		chunks[i].PaperID = paper.PaperID
		chunks[i].Filename = paper.Filename
		chunks[i].Title = meta.Title
		chunks[i].Vector = vectors[i]
		chunks[i].CreatedAt = now
	}

	// Reindex replaces, stale chunks from a previous run must not linger.
	if err := s.vectors.DeleteByPaper(ctx, paper.PaperID); err != nil {
		return fmt.Errorf("failed to clear previous chunks: %w", err)
	}
	if err := s.vectors.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("chunk upsert failed: %w", err)
	}

	// The graph enriches retrieval but is not required for it; a down
	// graph store must not fail ingestion.
	concepts := TopKeywords(extraction.Text, conceptsPerPaper)
	if err := s.graph.UpsertPaper(ctx, paper.PaperID, meta.Title, paper.Filename, meta.Year, meta.Authors, concepts); err != nil {
		logger.Warn("Graph upsert failed, paper indexed without graph links",
			"paper_id", paper.PaperID, "error", err)
	}

	compressed, algorithm, err := utils.CompressText(extraction.Text)
	if err != nil {
		return fmt.Errorf("text compression failed: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"title":            meta.Title,
		"authors":          meta.Authors,
		"year":             meta.Year,
		"pages":            extraction.Pages,
		"chunk_count":      len(chunks),
		"compressed_text":  compressed,
		"text_compression": string(algorithm),
		"status":           models.StatusIndexed,
		"error_message":    "",
		"indexed_at":       now,
	}}
	if _, err := s.papers.UpdateOne(ctx, bson.M{"paper_id": paper.PaperID}, update); err != nil {
		return fmt.Errorf("failed to save indexed paper: %w", err)
	}
	return nil
}

func (s *IngestService) loadPaper(ctx context.Context, paperID string) (*models.Paper, error) {
	var paper models.Paper
	err := s.papers.FindOne(ctx, bson.M{"paper_id": paperID}).Decode(&paper)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("failed to load paper: %w", err)
	}
	return &paper, nil
}

func (s *IngestService) setStatus(ctx context.Context, paperID, status, errMsg string) {
	update := bson.M{"$set": bson.M{"status": status, "error_message": errMsg}}
	if _, err := s.papers.UpdateOne(ctx, bson.M{"paper_id": paperID}, update); err != nil {
		logger.Error("Failed to update paper status", "paper_id", paperID, "status", status, "error", err)
	}
}

func (s *IngestService) recordIngest(seconds float64, status string) {
	if s.metrics != nil {
		s.metrics.RecordIngest(seconds, status)
	}
}
