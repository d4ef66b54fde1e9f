package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"basin-research-platform/models"
	"basin-research-platform/utils"
)

// PaperService owns the paper records: upload intake, listing, full-text
// recovery and the status flips around reindexing.
type PaperService struct {
	papers  *mongo.Collection
	storage *FileStorageManager
}

func NewPaperService(mongoClient *mongo.Client, dbName string, storage *FileStorageManager) *PaperService {
	return &PaperService{
		papers:  mongoClient.Database(dbName).Collection("papers"),
		storage: storage,
	}
}

// CreateFromUpload stores the PDF on disk and creates the pending record.
// An upload whose content hash matches an existing paper returns that
// paper instead; created reports whether a new record was made.
func (s *PaperService) CreateFromUpload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (paper *models.Paper, created bool, err error) {
	stored, err := s.storage.StorePDF(file, header)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.findByHash(ctx, stored.Hash)
	if err != nil {
		s.storage.Cleanup(stored.Path)
		return nil, false, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		if existing.FilePath != stored.Path {
			s.storage.Cleanup(stored.Path)
		}
		return existing, false, nil
	}

	paper = &models.Paper{
		PaperID:    uuid.NewString(),
		Filename:   stored.Name,
		FilePath:   stored.Path,
		FileHash:   stored.Hash,
		Status:     models.StatusPending,
		UploadedAt: time.Now(),
	}
	if _, err := s.papers.InsertOne(ctx, paper); err != nil {
		s.storage.Cleanup(stored.Path)
		return nil, false, fmt.Errorf("failed to create paper record: %w", err)
	}
	return paper, true, nil
}

func (s *PaperService) findByHash(ctx context.Context, hash string) (*models.Paper, error) {
	var paper models.Paper
	err := s.papers.FindOne(ctx, bson.M{"file_hash": hash}).Decode(&paper)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// List returns papers newest first, full text excluded.
func (s *PaperService) List(ctx context.Context, page, limit int) ([]models.Paper, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetProjection(bson.M{"compressed_text": 0}).
		SetSort(bson.M{"uploaded_at": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.papers.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer cursor.Close(ctx)

	papers := []models.Paper{}
	if err := cursor.All(ctx, &papers); err != nil {
		return nil, 0, fmt.Errorf("failed to decode papers: %w", err)
	}

	total, err := s.papers.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}
	return papers, total, nil
}

// Get loads one paper without its archived text.
func (s *PaperService) Get(ctx context.Context, paperID string) (*models.Paper, error) {
	var paper models.Paper
	opts := options.FindOne().SetProjection(bson.M{"compressed_text": 0})
	err := s.papers.FindOne(ctx, bson.M{"paper_id": paperID}, opts).Decode(&paper)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("failed to load paper: %w", err)
	}
	return &paper, nil
}

// FullText decompresses and returns the archived document text.
func (s *PaperService) FullText(ctx context.Context, paperID string) (string, error) {
	var paper models.Paper
	err := s.papers.FindOne(ctx, bson.M{"paper_id": paperID}).Decode(&paper)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrPaperNotFound
		}
		return "", fmt.Errorf("failed to load paper: %w", err)
	}
	if len(paper.CompressedText) == 0 {
		return "", fmt.Errorf("paper %s has no archived text (status %s)", paperID, paper.Status)
	}
	text, err := utils.DecompressText(paper.CompressedText, utils.CompressionAlgorithm(paper.TextCompression))
	if err != nil {
		return "", fmt.Errorf("failed to decompress text: %w", err)
	}
	return text, nil
}

// MarkPending resets a paper for reindexing and returns it. The stored
// file must still exist for the worker to re-read.
func (s *PaperService) MarkPending(ctx context.Context, paperID string) (*models.Paper, error) {
	paper, err := s.Get(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if paper.FilePath == "" {
		return nil, fmt.Errorf("paper %s has no stored file to reindex", paperID)
	}

	update := bson.M{"$set": bson.M{"status": models.StatusPending, "error_message": ""}}
	if _, err := s.papers.UpdateOne(ctx, bson.M{"paper_id": paperID}, update); err != nil {
		return nil, fmt.Errorf("failed to reset paper status: %w", err)
	}
	paper.Status = models.StatusPending
	return paper, nil
}

// Count returns the number of paper records.
func (s *PaperService) Count(ctx context.Context) (int64, error) {
	return s.papers.CountDocuments(ctx, bson.M{})
}
