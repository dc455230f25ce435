package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/models"
)

// MongoCorpusStore reads the per-development document corpus
type MongoCorpusStore struct {
	db *mongo.Database
}

func NewMongoCorpusStore(db *mongo.Database) *MongoCorpusStore {
	return &MongoCorpusStore{db: db}
}

func (s *MongoCorpusStore) ListChunks(ctx context.Context, developmentID string) ([]models.DocumentChunk, error) {
	cursor, err := s.db.Collection("document_chunks").Find(ctx, bson.M{"development_id": developmentID})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []models.DocumentChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	return chunks, nil
}

func (s *MongoCorpusStore) SupersededDocumentIDs(ctx context.Context, developmentID string) (map[string]bool, error) {
	opts := options.Find().SetProjection(bson.M{"document_id": 1})
	cursor, err := s.db.Collection("documents").Find(ctx,
		bson.M{"development_id": developmentID, "superseded": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query superseded documents: %w", err)
	}
	defer cursor.Close(ctx)

	ids := map[string]bool{}
	for cursor.Next(ctx) {
		var doc struct {
			DocumentID string `bson:"document_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids[doc.DocumentID] = true
	}
	return ids, cursor.Err()
}

// MongoMessageStore persists answer records and reads back conversation
// history for follow-up expansion.
type MongoMessageStore struct {
	db *mongo.Database
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	return &MongoMessageStore{db: db}
}

func (s *MongoMessageStore) Insert(ctx context.Context, record *models.AnswerRecord) error {
	_, err := s.db.Collection("answer_records").InsertOne(ctx, record)
	return err
}

// RecentTurns returns the user's last turns in chronological order. Error
// records carry no answer text and are skipped.
func (s *MongoMessageStore) RecentTurns(ctx context.Context, userID, developmentID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"question": 1, "answer": 1})
	cursor, err := s.db.Collection("answer_records").Find(ctx, bson.M{
		"user_id":        userID,
		"development_id": developmentID,
		"answer":         bson.M{"$ne": ""},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.AnswerRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	turns := make([]models.ConversationTurn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		turns = append(turns, models.ConversationTurn{
			UserMessage: records[i].Question,
			AIMessage:   records[i].Answer,
		})
	}
	return turns, nil
}

// ListRecords pages through a user's answer records, newest first
func (s *MongoMessageStore) ListRecords(ctx context.Context, userID, developmentID string, limit, offset int) ([]models.AnswerRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cursor, err := s.db.Collection("answer_records").Find(ctx, bson.M{
		"user_id":        userID,
		"development_id": developmentID,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.AnswerRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

const unitCacheTTL = 10 * time.Minute

// CachedUnitStore reads unit profiles through a Redis cache. Profiles change
// rarely, so a short TTL covers the portal's request patterns.
type CachedUnitStore struct {
	db  *mongo.Database
	rdb *redis.Client
}

func NewCachedUnitStore(db *mongo.Database, rdb *redis.Client) *CachedUnitStore {
	return &CachedUnitStore{db: db, rdb: rdb}
}

func (s *CachedUnitStore) GetUnit(ctx context.Context, unitID string) (*models.UnitProfile, error) {
	cacheKey := "unit:" + unitID

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var unit models.UnitProfile
			if err := json.Unmarshal([]byte(cached), &unit); err == nil {
				return &unit, nil
			}
		}
	}

	var unit models.UnitProfile
	err := s.db.Collection("units").FindOne(ctx, bson.M{"unit_id": unitID}).Decode(&unit)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("unit %s not found", unitID)
		}
		return nil, fmt.Errorf("failed to load unit: %w", err)
	}

	if s.rdb != nil {
		if data, err := json.Marshal(unit); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, data, unitCacheTTL).Err(); err != nil {
				logger.Debug("unit cache write failed", "unit_id", unitID, "error", err)
			}
		}
	}
	return &unit, nil
}

// MongoDrawingResolver finds the drawing for a unit and drawing type. A
// unit-specific drawing wins; otherwise the house-type drawing applies.
type MongoDrawingResolver struct {
	db *mongo.Database
}

func NewMongoDrawingResolver(db *mongo.Database) *MongoDrawingResolver {
	return &MongoDrawingResolver{db: db}
}

func (r *MongoDrawingResolver) FindDrawing(ctx context.Context, unitID, drawingType string) (models.DrawingResolution, error) {
	col := r.db.Collection("drawings")

	var drawing models.Drawing
	err := col.FindOne(ctx, bson.M{"unit_id": unitID, "drawing_type": drawingType}).Decode(&drawing)
	if err == nil {
		return models.DrawingResolution{Found: true, Drawing: &drawing}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.DrawingResolution{}, fmt.Errorf("drawing lookup failed: %w", err)
	}

	var unit models.UnitProfile
	if err := r.db.Collection("units").FindOne(ctx, bson.M{"unit_id": unitID}).Decode(&unit); err != nil {
		return models.DrawingResolution{
			Found:       false,
			Explanation: "No drawings are linked to this home yet.",
		}, nil
	}

	err = col.FindOne(ctx, bson.M{"house_type": unit.HouseType, "drawing_type": drawingType}).Decode(&drawing)
	if err == nil {
		return models.DrawingResolution{Found: true, Drawing: &drawing}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.DrawingResolution{}, fmt.Errorf("drawing lookup failed: %w", err)
	}

	return models.DrawingResolution{
		Found:       false,
		Explanation: fmt.Sprintf("No %s drawing is available for this home yet.", drawingLabel(drawingType)),
	}, nil
}

func drawingLabel(drawingType string) string {
	switch drawingType {
	case "floor_plan":
		return "floor plan"
	case "elevation":
		return "elevation"
	default:
		return drawingType
	}
}
