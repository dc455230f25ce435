package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AskRequest is the inbound chat payload from the homeowner portal
type AskRequest struct {
	Message  string `json:"message" binding:"required,min=1,max=2000"`
	UnitUID  string `json:"unit_uid,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	TestMode bool   `json:"test_mode,omitempty"`
}

// ConversationTurn is one prior user/assistant exchange read back for context
type ConversationTurn struct {
	UserMessage string
	AIMessage   string
}

// AnswerRecord is written once per handled question, on every exit path
type AnswerRecord struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Question        string                 `bson:"question" json:"question"`
	Answer          string                 `bson:"answer" json:"answer"`
	QuestionTopic   string                 `bson:"question_topic" json:"question_topic"`
	Source          string                 `bson:"source" json:"source"`
	ChunksUsed      int                    `bson:"chunks_used" json:"chunks_used"`
	LatencyMs       int                    `bson:"latency_ms" json:"latency_ms"`
	SafetyIntercept bool                   `bson:"safety_intercept" json:"safety_intercept"`
	GDPRBlocked     bool                   `bson:"gdpr_blocked" json:"gdpr_blocked"`
	StreamTruncated bool                   `bson:"stream_truncated,omitempty" json:"stream_truncated,omitempty"`
	ErrorKind       string                 `bson:"error_kind,omitempty" json:"error_kind,omitempty"`
	Metadata        map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	UnitUID         string                 `bson:"unit_uid,omitempty" json:"unit_uid,omitempty"`
	UserID          string                 `bson:"user_id,omitempty" json:"user_id,omitempty"`
	DevelopmentID   string                 `bson:"development_id" json:"development_id"`
	Timestamp       time.Time              `bson:"timestamp" json:"timestamp"`
}

// SourceRef is one document attribution shown ahead of a streamed answer
type SourceRef struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// ClarificationOption is one selectable branch of a clarification response
type ClarificationOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Clarification is a binary disambiguation returned instead of a generated answer
type Clarification struct {
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options"`
}

// Streamed output frames, newline-delimited JSON envelopes.
// The metadata frame is always flushed before the first text frame.
type MetadataFrame struct {
	Type       string      `json:"type"`
	Source     string      `json:"source"`
	ChunksUsed int         `json:"chunksUsed"`
	Sources    []SourceRef `json:"sources"`
	Drawing    *Drawing    `json:"drawing"`
}

type TextFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type DoneFrame struct {
	Type string `json:"type"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AskResponse is the single-shot (test mode) response shape
type AskResponse struct {
	Success         bool           `json:"success"`
	Answer          string         `json:"answer"`
	Source          string         `json:"source"`
	SafetyIntercept bool           `json:"safety_intercept,omitempty"`
	GDPRBlocked     bool           `json:"gdpr_blocked,omitempty"`
	Clarification   *Clarification `json:"clarification,omitempty"`
	ChunksUsed      int            `json:"chunks_used"`
	Sources         []SourceRef    `json:"sources,omitempty"`
	Drawing         *Drawing       `json:"drawing,omitempty"`
}
