package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"basin-research-platform/internal/ai"
	"basin-research-platform/internal/config"
	"basin-research-platform/models"
)

// VectorService runs similarity search over the paper_chunks collection
// using Atlas $vectorSearch. The collection handle and embedder are shared
// read-only across queries.
type VectorService struct {
	chunks    *mongo.Collection
	embedder  *ai.Embedder
	indexName string
}

func NewVectorService(mongoClient *mongo.Client, cfg *config.Config, embedder *ai.Embedder) *VectorService {
	return &VectorService{
		chunks:    mongoClient.Database(cfg.DBName).Collection("paper_chunks"),
		embedder:  embedder,
		indexName: cfg.VectorIndexName,
	}
}

// Search returns up to limit chunks ordered by similarity, best first.
// Callers that later deduplicate per document must request more than their
// final count (at least 2x) so the dedup has something to discard. Errors
// from the embedder or the store are hard failures.
//
// No candidate-set filter is applied to the search; candidates from the
// graph are advisory only.
func (s *VectorService) Search(ctx context.Context, query string, limit int) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		return []models.ScoredChunk{}, nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: s.indexName},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: queryVector},
			{Key: "numCandidates", Value: limit * 10},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "chunk_id", Value: 1},
			{Key: "paper_id", Value: 1},
			{Key: "filename", Value: 1},
			{Key: "title", Value: 1},
			{Key: "text", Value: 1},
			{Key: "position", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.ScoredChunk
	for cursor.Next(ctx) {
		var doc struct {
			ChunkID  string  `bson:"chunk_id"`
			PaperID  string  `bson:"paper_id"`
			Filename string  `bson:"filename"`
			Title    string  `bson:"title"`
			Text     string  `bson:"text"`
			Position int     `bson:"position"`
			Score    float64 `bson:"score"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode search result: %w", err)
		}
		results = append(results, models.ScoredChunk{
			Chunk: models.Chunk{
				ChunkID:  doc.ChunkID,
				PaperID:  doc.PaperID,
				Filename: doc.Filename,
				Title:    doc.Title,
				Text:     doc.Text,
				Position: doc.Position,
			},
			Score:  doc.Score,
			Origin: models.ScoreOriginVector,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("vector search cursor failed: %w", err)
	}

	return results, nil
}

// UpsertChunks writes embedded chunks for one paper in an unordered bulk,
// keyed by chunk_id so re-ingestion replaces in place
func (s *VectorService) UpsertChunks(ctx context.Context, chunks []models.PaperChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := make([]mongo.WriteModel, 0, len(chunks))
	for _, ch := range chunks {
		doc := bson.M{
			"chunk_id":   ch.ChunkID,
			"paper_id":   ch.PaperID,
			"filename":   ch.Filename,
			"title":      ch.Title,
			"text":       ch.Text,
			"position":   ch.Position,
			"vector":     ch.Vector,
			"created_at": ch.CreatedAt,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": ch.ChunkID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	_, err := s.chunks.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

// DeleteByPaper removes all chunks of one paper, used before re-indexing
func (s *VectorService) DeleteByPaper(ctx context.Context, paperID string) error {
	_, err := s.chunks.DeleteMany(ctx, bson.M{"paper_id": paperID})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for paper %s: %w", paperID, err)
	}
	return nil
}

// CountChunks reports the total indexed chunk count for the stats surface
func (s *VectorService) CountChunks(ctx context.Context) (int64, error) {
	return s.chunks.EstimatedDocumentCount(ctx)
}
