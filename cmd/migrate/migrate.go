package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"basin-research-platform/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  indexes       - Create MongoDB indexes for all collections")
		fmt.Println("  vector-index  - Create the Atlas vector search index on paper_chunks")
		os.Exit(1)
	}

	command := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)

	switch command {
	case "indexes":
		if err := createIndexes(ctx, db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		fmt.Println("Indexes created successfully!")

	case "vector-index":
		if err := createVectorIndex(ctx, db, cfg); err != nil {
			log.Fatalf("Vector index creation failed: %v", err)
		}
		fmt.Printf("Vector search index %q requested, it may take a minute to become queryable\n",
			cfg.VectorIndexName)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	collections := []struct {
		name    string
		indexes []mongo.IndexModel
	}{
		{"papers", []mongo.IndexModel{
			{Keys: bson.D{{Key: "paper_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "file_hash", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "uploaded_at", Value: -1}}},
		}},
		{"paper_chunks", []mongo.IndexModel{
			{Keys: bson.D{{Key: "chunk_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "paper_id", Value: 1}}},
		}},
		{"sessions", []mongo.IndexModel{
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "last_active", Value: -1}}},
		}},
		{"datasets", []mongo.IndexModel{
			{Keys: bson.D{{Key: "dataset_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "uploaded_at", Value: -1}}},
		}},
	}

	for _, col := range collections {
		fmt.Printf("Creating %d indexes on %s...\n", len(col.indexes), col.name)
		if _, err := db.Collection(col.name).Indexes().CreateMany(ctx, col.indexes); err != nil {
			return fmt.Errorf("collection %s: %w", col.name, err)
		}
	}
	return nil
}

// createVectorIndex provisions the $vectorSearch index the retrieval
// pipeline queries. Only works against Atlas or a deployment with search
// indexes enabled; self-hosted MongoDB rejects it.
func createVectorIndex(ctx context.Context, db *mongo.Database, cfg *config.Config) error {
	definition := bson.D{
		{Key: "fields", Value: bson.A{
			bson.D{
				{Key: "type", Value: "vector"},
				{Key: "path", Value: "vector"},
				{Key: "numDimensions", Value: cfg.VectorDimensions},
				{Key: "similarity", Value: "cosine"},
			},
		}},
	}

	_, err := db.Collection("paper_chunks").SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: definition,
		Options:    options.SearchIndexes().SetName(cfg.VectorIndexName).SetType("vectorSearch"),
	})
	if err != nil {
		return fmt.Errorf("search index API unavailable on this deployment: %w", err)
	}
	return nil
}
