package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeowner-assistant-platform/internal/logger"
)

// RollupService condenses raw analytics events into daily per-topic counts
// so dashboards never have to scan the raw event stream.
type RollupService struct {
	db *mongo.Database
}

func NewRollupService(db *mongo.Database) *RollupService {
	return &RollupService{db: db}
}

// RollupDay aggregates the events of one UTC day into analytics_daily.
// Re-running for the same day overwrites, so the job is safe to retry.
func (rs *RollupService) RollupDay(ctx context.Context, day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"occurred_at": bson.M{"$gte": start, "$lt": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"event": "$event",
				"topic": bson.M{"$ifNull": []interface{}{"$props.topic", ""}},
			},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := rs.db.Collection("analytics_events").Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("rollup aggregation failed: %w", err)
	}
	defer cursor.Close(ctx)

	dailyCol := rs.db.Collection("analytics_daily")
	rows := 0
	for cursor.Next(ctx) {
		var group struct {
			ID struct {
				Event string `bson:"event"`
				Topic string `bson:"topic"`
			} `bson:"_id"`
			Count int `bson:"count"`
		}
		if err := cursor.Decode(&group); err != nil {
			logger.Warn("failed to decode rollup group", "error", err)
			continue
		}

		filter := bson.M{
			"day":   start,
			"event": group.ID.Event,
			"topic": group.ID.Topic,
		}
		update := bson.M{"$set": bson.M{
			"day":        start,
			"event":      group.ID.Event,
			"topic":      group.ID.Topic,
			"count":      group.Count,
			"updated_at": time.Now().UTC(),
		}}
		if _, err := dailyCol.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("rollup upsert failed: %w", err)
		}
		rows++
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("rollup cursor failed: %w", err)
	}

	logger.Info("analytics rollup completed", "day", start.Format("2006-01-02"), "rows", rows)
	return nil
}

// RollupYesterday is the scheduled entrypoint
func (rs *RollupService) RollupYesterday() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := rs.RollupDay(ctx, time.Now().UTC().AddDate(0, 0, -1)); err != nil {
		logger.Error("analytics rollup failed", "error", err)
	}
}
