package main

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/hibiken/asynq"

	"homeowner-assistant-platform/internal/ai"
	"homeowner-assistant-platform/internal/config"
	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/internal/queue"
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

	embedder, err := ai.NewEmbeddingClient(cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
	if err != nil {
		log.Fatal("Failed to initialize embedding client:", err)
	}
	defer embedder.Close()

	// Nightly rollup of raw analytics events into per-topic daily counts
	rollup := services.NewRollupService(db)
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(1).Day().At("02:00").Do(rollup.RollupYesterday); err != nil {
		log.Printf("Failed to schedule analytics rollup: %v", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task failed: %s, error: %v", task.Type(), err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(db, embedder, cfg.MaxChunkSize, cfg.ChunkOverlap)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngestDocument)
	mux.HandleFunc(queue.TaskAnalyticsEvent, processor.HandleAnalyticsEvent)

	log.Println("Starting worker...")
	log.Printf("   Queues: critical(6), default(3), low(1)")
	log.Printf("   Redis: %s", redisOpt.Addr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
