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
)

var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetService stores uploaded tabular files and resolves the file_id
// references carried by analysis queries.
type DatasetService struct {
	datasets *mongo.Collection
	storage  *FileStorageManager
}

func NewDatasetService(mongoClient *mongo.Client, dbName string, storage *FileStorageManager) *DatasetService {
	return &DatasetService{
		datasets: mongoClient.Database(dbName).Collection("datasets"),
		storage:  storage,
	}
}

// SaveUpload persists the table to disk and records it, returning the
// dataset handle the client uses in later queries.
func (s *DatasetService) SaveUpload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.Dataset, error) {
	stored, err := s.storage.StoreTable(file, header)
	if err != nil {
		return nil, fmt.Errorf("table storage failed: %w", err)
	}

	dataset := &models.Dataset{
		DatasetID:  uuid.NewString(),
		Filename:   stored.Name,
		FilePath:   stored.Path,
		Size:       stored.Size,
		UploadedAt: time.Now(),
	}

	if _, err := s.datasets.InsertOne(ctx, dataset); err != nil {
		s.storage.Cleanup(stored.Path)
		return nil, fmt.Errorf("failed to save dataset record: %w", err)
	}
	return dataset, nil
}

// Get resolves a dataset by its public id.
func (s *DatasetService) Get(ctx context.Context, datasetID string) (*models.Dataset, error) {
	var dataset models.Dataset
	err := s.datasets.FindOne(ctx, bson.M{"dataset_id": datasetID}).Decode(&dataset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return &dataset, nil
}

// List returns recent datasets, newest first.
func (s *DatasetService) List(ctx context.Context, limit int64) ([]models.Dataset, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.M{"uploaded_at": -1}).SetLimit(limit)
	cursor, err := s.datasets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer cursor.Close(ctx)

	datasets := []models.Dataset{}
	if err := cursor.All(ctx, &datasets); err != nil {
		return nil, fmt.Errorf("failed to decode datasets: %w", err)
	}
	return datasets, nil
}
