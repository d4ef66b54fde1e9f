package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"basin-research-platform/internal/ai"
	"basin-research-platform/internal/config"
	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/queue"
	"basin-research-platform/internal/telemetry"
	"basin-research-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.OTELEnabled {
		shutdown, err := telemetry.InitTracer("basin-research-worker", cfg.OTELEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	neo4jDriver, err := config.ConnectNeo4j(cfg)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		neo4jDriver.Close(ctx)
	}()

	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	extractor := services.NewPDFExtractor()
	graphService := services.NewGraphService(neo4jDriver)
	vectorService := services.NewVectorService(mongoClient, cfg, embedder)
	ingestService := services.NewIngestService(mongoClient, cfg, extractor, embedder, vectorService, graphService, metrics)

	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Failed to parse Redis URL for queue:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6, // ingestion
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(ingestService)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDocumentIngest, processor.HandleDocumentIngest)

	logger.Info("Starting worker", "concurrency", 20, "redis", cfg.RedisURL)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
