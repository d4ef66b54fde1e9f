package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string

	// Neo4j property graph (papers, authors, concepts)
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Redis Configuration (asynq broker + caches)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Gemini
	GeminiAPIKey    string
	GeminiTier      string
	GeminiModel     string
	EmbeddingModel  string
	Temperature     float64
	MaxOutputTokens int

	// Cross-encoder reranking service
	RerankerURL     string
	RerankerModel   string
	RerankerTimeout int // seconds

	// Retrieval tuning
	TopK               int
	RetrieveMultiplier int
	VectorIndexName    string
	VectorDimensions   int

	// Ingestion
	ChunkSize      int
	ChunkOverlap   int
	MaxFileSize    int64
	FileStorageDir string

	// HTTP server
	Port            string
	GinMode         string
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow int

	// Sessions
	SessionTTLHours     int
	AnswerCacheTTLMins  int
	CleanupIntervalMins int

	// Telemetry
	OTELEnabled  bool
	OTELEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/basin_research"),
		DBName:   getEnv("DB_NAME", "basin_research"),

		Neo4jURI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", "password"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		Temperature:     getEnvFloat64("LLM_TEMPERATURE", 0.1),
		MaxOutputTokens: getEnvInt("LLM_MAX_OUTPUT_TOKENS", 2000),

		RerankerURL:     getEnv("RERANKER_URL", "http://localhost:8081"),
		RerankerModel:   getEnv("RERANKER_MODEL", "BAAI/bge-reranker-v2-m3"),
		RerankerTimeout: getEnvInt("RERANKER_TIMEOUT", 30),

		TopK:               getEnvInt("RETRIEVAL_TOP_K", 8),
		RetrieveMultiplier: getEnvInt("RETRIEVAL_MULTIPLIER", 2),
		VectorIndexName:    getEnv("MONGODB_VECTOR_INDEX", "vector_index"),
		VectorDimensions:   getEnvInt("VECTOR_DIM", 768),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 512),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 50),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),

		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		SessionTTLHours:     getEnvInt("SESSION_TTL_HOURS", 24),
		AnswerCacheTTLMins:  getEnvInt("ANSWER_CACHE_TTL_MINUTES", 30),
		CleanupIntervalMins: getEnvInt("CLEANUP_INTERVAL_MINUTES", 60),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.RetrieveMultiplier < 2 {
		// Diversity filtering needs headroom over the final top_k.
		cfg.RetrieveMultiplier = 2
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
