package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/services"
)

const (
	TaskIngestDocument = "document:ingest"
	TaskAnalyticsEvent = "analytics:event"
)

type IngestDocumentPayload struct {
	DocumentID      string `json:"document_id"`
	DevelopmentID   string `json:"development_id"`
	FilePath        string `json:"file_path"`
	FileName        string `json:"file_name"`
	Discipline      string `json:"discipline"`
	HomeownerFacing bool   `json:"homeowner_facing"`
	SupersedesID    string `json:"supersedes_id,omitempty"`
}

type AnalyticsEventPayload struct {
	Event      string                 `json:"event"`
	Props      map[string]interface{} `json:"props,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewIngestDocumentTask(p IngestDocumentPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewAnalyticsEventTask(event string, props map[string]interface{}) (*asynq.Task, error) {
	payload, err := json.Marshal(AnalyticsEventPayload{
		Event:      event,
		Props:      props,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskAnalyticsEvent,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Second),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor holds the dependencies the worker handlers need
type TaskProcessor struct {
	db           *mongo.Database
	embedder     services.Embedder
	maxChunkSize int
	chunkOverlap int
}

func NewTaskProcessor(db *mongo.Database, embedder services.Embedder, maxChunkSize, chunkOverlap int) *TaskProcessor {
	return &TaskProcessor{
		db:           db,
		embedder:     embedder,
		maxChunkSize: maxChunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// HandleIngestDocument extracts, chunks and embeds an uploaded document, then
// flips its status so the portal can show ingestion progress. The uploaded
// file is removed once processing finishes, success or not.
func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("ingesting document", "document_id", payload.DocumentID, "file", payload.FileName)
	p.setDocumentStatus(ctx, payload.DocumentID, "processing")

	text, pages, err := services.ExtractPDFText(payload.FilePath)
	if err != nil {
		p.setDocumentStatus(ctx, payload.DocumentID, "failed")
		p.removeFile(payload.FilePath)
		return fmt.Errorf("extraction failed for %s: %w", payload.DocumentID, err)
	}

	chunker := services.NewChunker(p.maxChunkSize, p.chunkOverlap)
	parts := chunker.Split(text)
	if len(parts) == 0 {
		p.setDocumentStatus(ctx, payload.DocumentID, "failed")
		p.removeFile(payload.FilePath)
		return fmt.Errorf("no chunks produced for %s: %w", payload.DocumentID, asynq.SkipRetry)
	}

	uploadedAt := time.Now().UTC()
	chunksCol := p.db.Collection("document_chunks")
	docs := make([]interface{}, 0, len(parts))
	for i, part := range parts {
		vec, err := p.embedder.Embed(ctx, part)
		if err != nil {
			p.setDocumentStatus(ctx, payload.DocumentID, "failed")
			return fmt.Errorf("embedding failed for %s chunk %d: %w", payload.DocumentID, i, err)
		}
		docs = append(docs, bson.M{
			"chunk_id":       fmt.Sprintf("%s_%d", payload.DocumentID, i),
			"development_id": payload.DevelopmentID,
			"content":        part,
			"embedding":      vec,
			"metadata": bson.M{
				"document_id":         payload.DocumentID,
				"discipline":          payload.Discipline,
				"file_name":           payload.FileName,
				"is_homeowner_facing": payload.HomeownerFacing,
				"uploaded_at":         uploadedAt,
			},
		})
	}

	if _, err := chunksCol.InsertMany(ctx, docs); err != nil {
		p.setDocumentStatus(ctx, payload.DocumentID, "failed")
		return fmt.Errorf("chunk insert failed for %s: %w", payload.DocumentID, err)
	}

	// Retire the older revision only after the new chunks are queryable
	if payload.SupersedesID != "" {
		_, err := p.db.Collection("documents").UpdateOne(ctx,
			bson.M{"document_id": payload.SupersedesID},
			bson.M{"$set": bson.M{"superseded": true, "superseded_by": payload.DocumentID}},
		)
		if err != nil {
			logger.Error("failed to mark superseded document", "document_id", payload.SupersedesID, "error", err)
		}
	}

	_, err = p.db.Collection("documents").UpdateOne(ctx,
		bson.M{"document_id": payload.DocumentID},
		bson.M{"$set": bson.M{
			"status":      "completed",
			"chunk_count": len(parts),
			"page_count":  pages,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("status update failed for %s: %w", payload.DocumentID, err)
	}

	p.removeFile(payload.FilePath)
	logger.Info("document ingested", "document_id", payload.DocumentID, "chunks", len(parts), "pages", pages)
	return nil
}

// HandleAnalyticsEvent stores an anonymized usage event. No user or unit
// identifiers ever land in this collection.
func (p *TaskProcessor) HandleAnalyticsEvent(ctx context.Context, t *asynq.Task) error {
	var payload AnalyticsEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	props := bson.M{}
	for k, v := range payload.Props {
		if k == "user_id" || k == "unit_id" || k == "unit_uid" {
			continue
		}
		props[k] = v
	}

	_, err := p.db.Collection("analytics_events").InsertOne(ctx, bson.M{
		"event":       payload.Event,
		"props":       props,
		"occurred_at": payload.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("analytics insert failed: %w", err)
	}
	return nil
}

func (p *TaskProcessor) setDocumentStatus(ctx context.Context, documentID, status string) {
	_, err := p.db.Collection("documents").UpdateOne(ctx,
		bson.M{"document_id": documentID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		logger.Error("failed to update document status", "document_id", documentID, "status", status, "error", err)
	}
}

func (p *TaskProcessor) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove uploaded file", "path", path, "error", err)
	}
}
