package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	Port         string
	GinMode      string
	CORSOrigins  []string
	GeminiAPIKey string

	// Homeowner access tokens
	HomeownerTokenSecret string

	// Admin API (document ingestion / export)
	AdminAPIKey string

	// Default development scope when the request carries none
	DevelopmentID string

	// Retrieval budgets
	MaxChunks       int
	MaxContextChars int
	MinSimilarity   float64
	HistoryTurns    int

	// Ingestion chunking
	MaxChunkSize int
	ChunkOverlap int
	MaxFileSize  int64

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Models
	GenerationModel       string
	GoogleEmbeddingsModel string

	// Telemetry
	OTLPEndpoint   string
	TracingEnabled bool
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/homeowner_assistant"),
		DBName:       getEnv("DB_NAME", "homeowner_assistant"),
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		HomeownerTokenSecret: getEnv("HOMEOWNER_TOKEN_SECRET", ""),
		AdminAPIKey:          getEnv("ADMIN_API_KEY", ""),
		DevelopmentID:        getEnv("DEVELOPMENT_ID", "default"),

		MaxChunks:       getEnvInt("MAX_CHUNKS", 20),
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 80000),
		MinSimilarity:   getEnvFloat64("MIN_SIMILARITY", 0.30),
		HistoryTurns:    getEnvInt("HISTORY_TURNS", 4),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),
		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		GenerationModel:       getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.HomeownerTokenSecret == "" {
		return nil, fmt.Errorf("HOMEOWNER_TOKEN_SECRET is required - set it in .env file")
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
