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

	"homeowner-assistant-platform/internal/ai"
	"homeowner-assistant-platform/internal/config"
	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/internal/queue"
	"homeowner-assistant-platform/internal/telemetry"
	"homeowner-assistant-platform/middleware"
	"homeowner-assistant-platform/routes"
	"homeowner-assistant-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Printf("Redis unavailable, rate limiting and unit caching disabled: %v", err)
		rdb = nil
	}

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("homeowner-assistant-platform", cfg.OTLPEndpoint)
		if err != nil {
			log.Printf("Failed to initialize tracing: %v", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Printf("Failed to initialize metrics: %v", err)
	}

	embedder, err := ai.NewEmbeddingClient(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
	if err != nil {
		log.Fatal("Failed to initialize embedding client:", err)
	}
	defer embedder.Close()

	generator, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer generator.Close()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer asynqClient.Close()

	var analytics services.AnalyticsSink = services.NoopAnalyticsSink{}
	if rdb != nil {
		analytics = queue.NewAnalyticsClient(asynqClient)
	}

	messages := services.NewMongoMessageStore(db)
	pipeline := services.NewPipeline(services.PipelineDeps{
		Embedder:  embedder,
		Generator: generator,
		Corpus:    services.NewMongoCorpusStore(db),
		Messages:  messages,
		Units:     services.NewCachedUnitStore(db, rdb),
		Drawings:  services.NewMongoDrawingResolver(db),
		Topics:    &services.KeywordTopicExtractor{},
		Analytics: analytics,
		Metrics:   metrics,
	}, cfg.MaxChunks, cfg.MaxContextChars, cfg.MinSimilarity, cfg.HistoryTurns)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
	}
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	routes.SetupChatRoutes(router, cfg, pipeline, messages)
	routes.SetupAdminRoutes(router, cfg, db, asynqClient, services.NewExportService(db))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
