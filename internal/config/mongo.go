package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Document chunks collection indexes
	chunksCollection := db.Collection("document_chunks")
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "development_id", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.document_id", Value: 1}}},
	}
	_, err := chunksCollection.Indexes().CreateMany(context.Background(), chunkIndexes)
	if err != nil {
		return err
	}

	// Documents collection indexes
	documentsCollection := db.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "development_id", Value: 1}, {Key: "superseded", Value: 1}}},
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = documentsCollection.Indexes().CreateMany(context.Background(), documentIndexes)
	if err != nil {
		return err
	}

	// Answer records collection indexes
	answersCollection := db.Collection("answer_records")
	answerIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "development_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "question_topic", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	_, err = answersCollection.Indexes().CreateMany(context.Background(), answerIndexes)
	if err != nil {
		return err
	}

	// Units collection indexes
	unitsCollection := db.Collection("units")
	unitIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "unit_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = unitsCollection.Indexes().CreateMany(context.Background(), unitIndexes)
	if err != nil {
		return err
	}

	// Drawings collection indexes
	drawingsCollection := db.Collection("drawings")
	drawingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "drawing_type", Value: 1}}},
		{Keys: bson.D{{Key: "house_type", Value: 1}, {Key: "drawing_type", Value: 1}}},
	}
	_, err = drawingsCollection.Indexes().CreateMany(context.Background(), drawingIndexes)
	if err != nil {
		return err
	}

	// Analytics events collection indexes
	eventsCollection := db.Collection("analytics_events")
	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "occurred_at", Value: -1}}},
	}
	_, err = eventsCollection.Indexes().CreateMany(context.Background(), eventIndexes)

	return err
}
