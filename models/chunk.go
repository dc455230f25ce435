package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChunkMetadata describes the document a passage came from
type ChunkMetadata struct {
	DocumentID        string     `bson:"document_id" json:"document_id"`
	Discipline        string     `bson:"discipline,omitempty" json:"discipline,omitempty"`
	FileName          string     `bson:"file_name,omitempty" json:"file_name,omitempty"`
	IsHomeownerFacing *bool      `bson:"is_homeowner_facing,omitempty" json:"is_homeowner_facing,omitempty"`
	UploadedAt        *time.Time `bson:"uploaded_at,omitempty" json:"uploaded_at,omitempty"`
}

// DocumentChunk is a stored passage from the development's document corpus.
// Embedding is left untyped: stored vectors arrive as native arrays, JSON
// strings, delimited strings or wrapped objects depending on the ingestion
// path that produced them.
type DocumentChunk struct {
	ID            string        `bson:"chunk_id" json:"chunk_id"`
	DevelopmentID string        `bson:"development_id" json:"development_id"`
	Content       string        `bson:"content" json:"content"`
	Metadata      ChunkMetadata `bson:"metadata" json:"metadata"`
	Embedding     interface{}   `bson:"embedding,omitempty" json:"embedding,omitempty"`
}

// ScoredChunk is a passage with its hybrid relevance score. Never persisted.
type ScoredChunk struct {
	Chunk        DocumentChunk
	Similarity   float64
	KeywordBoost float64
	Score        float64
}

// Document is the corpus-level record a chunk belongs to
type Document struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID      string             `bson:"document_id" json:"document_id"`
	DevelopmentID   string             `bson:"development_id" json:"development_id"`
	FileName        string             `bson:"file_name" json:"file_name"`
	Discipline      string             `bson:"discipline,omitempty" json:"discipline,omitempty"`
	HomeownerFacing bool               `bson:"homeowner_facing" json:"homeowner_facing"`
	Superseded      bool               `bson:"superseded" json:"superseded"`
	SupersededBy    string             `bson:"superseded_by,omitempty" json:"superseded_by,omitempty"`
	Status          string             `bson:"status" json:"status"`
	ChunkCount      int                `bson:"chunk_count" json:"chunk_count"`
	PageCount       int                `bson:"page_count,omitempty" json:"page_count,omitempty"`
	UploadedAt      time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt       time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
