package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"basin-research-platform/internal/ai"
	"basin-research-platform/internal/config"
	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/queue"
	"basin-research-platform/internal/telemetry"
	"basin-research-platform/middleware"
	"basin-research-platform/routes"
	"basin-research-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.OTELEnabled {
		shutdown, err := telemetry.InitTracer("basin-research-platform", cfg.OTELEndpoint)
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

	// Backing stores
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	neo4jDriver, err := config.ConnectNeo4j(cfg)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		neo4jDriver.Close(ctx)
	}()

	// AI clients
	geminiClient, err := ai.NewGeminiClient(cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer geminiClient.Close()

	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}
	defer embedder.Close()

	// Task queue client for ingestion
	redisOpt, err := queue.RedisConnOpt(cfg)
	if err != nil {
		log.Fatal("Failed to parse Redis URL for queue:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Services
	storage := services.NewFileStorageManager(cfg)
	graphService := services.NewGraphService(neo4jDriver)
	vectorService := services.NewVectorService(mongoClient, cfg, embedder)
	reranker := services.NewCrossEncoderReranker(cfg)
	retriever := services.NewHybridRetriever(graphService, vectorService, reranker, metrics, cfg)
	processor := services.NewResponseProcessor()
	ragService := services.NewRAGService(retriever, geminiClient, processor)
	analysisService := services.NewAnalysisService(geminiClient)
	datasetService := services.NewDatasetService(mongoClient, cfg.DBName, storage)
	paperService := services.NewPaperService(mongoClient, cfg.DBName, storage)
	sessionService := services.NewSessionService(mongoClient, rdb, cfg)
	statsService := services.NewStatsService(paperService, vectorService, graphService, rdb, geminiClient.Usage())
	agentService := services.NewAgentService(ragService, analysisService, datasetService, sessionService, metrics)

	scheduler, err := services.NewMaintenanceScheduler(sessionService, statsService,
		time.Duration(cfg.CleanupIntervalMins)*time.Minute)
	if err != nil {
		log.Fatal("Failed to create maintenance scheduler:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize + 1<<20))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.SetupHealthRoutes(router, mongoClient, rdb, graphService)
	routes.SetupQueryRoutes(router, agentService)
	routes.SetupDocumentRoutes(router, cfg, paperService, graphService, queueClient)
	routes.SetupDatasetRoutes(router, cfg, datasetService)
	routes.SetupSessionRoutes(router, sessionService)
	routes.SetupStatsRoutes(router, cfg, statsService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
