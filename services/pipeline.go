package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/internal/telemetry"
	"homeowner-assistant-platform/models"
)

// Collaborator capability contracts. The pipeline holds references, never
// globals, so every one of these can be swapped for a deterministic fake.

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Generator interface {
	Generate(ctx context.Context, system string, history []models.ConversationTurn, question string) (string, error)
	GenerateStream(ctx context.Context, system string, history []models.ConversationTurn, question string, onToken func(string) error) (string, error)
}

type CorpusStore interface {
	ListChunks(ctx context.Context, developmentID string) ([]models.DocumentChunk, error)
	SupersededDocumentIDs(ctx context.Context, developmentID string) (map[string]bool, error)
}

type MessageStore interface {
	Insert(ctx context.Context, record *models.AnswerRecord) error
	RecentTurns(ctx context.Context, userID, developmentID string, limit int) ([]models.ConversationTurn, error)
}

type UnitStore interface {
	GetUnit(ctx context.Context, unitID string) (*models.UnitProfile, error)
}

type DrawingResolver interface {
	FindDrawing(ctx context.Context, unitID, topic string) (models.DrawingResolution, error)
}

type TopicExtractor interface {
	ExtractTopic(ctx context.Context, text string) string
}

type AnalyticsSink interface {
	LogEvent(event string, props map[string]interface{})
}

// NoopAnalyticsSink drops events. Used when no queue backend is configured.
type NoopAnalyticsSink struct{}

func (NoopAnalyticsSink) LogEvent(string, map[string]interface{}) {}

// ErrEmptyMessage rejects a request before any processing happens
var ErrEmptyMessage = errors.New("message is required")

// Event is one frame of the tagged-union output stream
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventText     EventType = "text"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

type Event struct {
	Type     EventType
	Metadata *models.MetadataFrame
	Text     string
	Message  string
}

// EmitFunc delivers one event to the caller. A non-nil error means the client
// is gone and the stream must stop.
type EmitFunc func(Event) error

type errClientGone struct{ err error }

func (e *errClientGone) Error() string { return fmt.Sprintf("client gone: %v", e.err) }
func (e *errClientGone) Unwrap() error { return e.err }

// Query is one homeowner question, immutable once received
type Query struct {
	Text          string
	UnitID        string
	UserID        string
	DevelopmentID string
}

// Outcome is the resolved answer for a query, whichever path produced it
type Outcome struct {
	Answer          string
	Source          string
	Topic           string
	ChunksUsed      int
	Sources         []models.SourceRef
	Drawing         *models.Drawing
	Clarification   *models.Clarification
	SafetyIntercept bool
	GDPRBlocked     bool
}

// PipelineDeps are the constructor-injected collaborators
type PipelineDeps struct {
	Embedder  Embedder
	Generator Generator
	Corpus    CorpusStore
	Messages  MessageStore
	Units     UnitStore
	Drawings  DrawingResolver
	Topics    TopicExtractor
	Analytics AnalyticsSink
	Metrics   *telemetry.Metrics
}

// Pipeline sequences safety gating, retrieval, composition, generation and
// persistence for one request at a time. No shared mutable state: concurrent
// requests only meet in the external stores.
type Pipeline struct {
	embedder  Embedder
	generator Generator
	retriever *Retriever
	messages  MessageStore
	units     UnitStore
	drawings  DrawingResolver
	topics    TopicExtractor
	analytics AnalyticsSink
	metrics   *telemetry.Metrics

	historyTurns int
}

func NewPipeline(deps PipelineDeps, maxChunks, maxContextChars int, minSimilarity float64, historyTurns int) *Pipeline {
	return &Pipeline{
		embedder:     deps.Embedder,
		generator:    deps.Generator,
		retriever:    NewRetriever(deps.Corpus, deps.Embedder, maxChunks, maxContextChars, minSimilarity),
		messages:     deps.Messages,
		units:        deps.Units,
		drawings:     deps.Drawings,
		topics:       deps.Topics,
		analytics:    deps.Analytics,
		metrics:      deps.Metrics,
		historyTurns: historyTurns,
	}
}

// Ask handles a query in single-shot mode (test/automation callers)
func (p *Pipeline) Ask(ctx context.Context, q Query) (*Outcome, error) {
	return p.run(ctx, q, nil)
}

// AskStream handles a query in streaming mode. The metadata frame is emitted
// before the first text frame; persistence happens after the stream drains.
func (p *Pipeline) AskStream(ctx context.Context, q Query, emit EmitFunc) (*Outcome, error) {
	return p.run(ctx, q, emit)
}

func (p *Pipeline) run(ctx context.Context, q Query, emit EmitFunc) (*Outcome, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	record := &models.AnswerRecord{
		Question:      q.Text,
		UnitUID:       q.UnitID,
		UserID:        q.UserID,
		DevelopmentID: q.DevelopmentID,
		Timestamp:     start,
		Metadata:      map[string]interface{}{},
	}

	// Safety gate: absolute, before any retrieval or generation
	if safety := Classify(q.Text); safety.Critical {
		out := &Outcome{
			Answer:          SafetyMessage,
			Source:          "policy",
			Topic:           "safety_intercept",
			SafetyIntercept: true,
		}
		record.QuestionTopic = "safety_intercept"
		record.SafetyIntercept = true
		record.Metadata["matched_keyword"] = safety.MatchedKeyword
		record.Metadata["category"] = safety.Category
		p.recordIntercept("safety")
		return p.finishPolicy(ctx, q, record, out, start, emit)
	}

	// Unit profile: at most one lookup per request, best-effort
	var unit *models.UnitProfile
	if q.UnitID != "" && p.units != nil {
		profile, err := p.units.GetUnit(ctx, q.UnitID)
		if err != nil {
			logger.Warn("unit lookup failed", "unit_id", q.UnitID, "error", err)
		} else {
			unit = profile
		}
	}

	// Privacy gate
	ownerAddress := ""
	if unit != nil {
		ownerAddress = unit.Address
	}
	if privacy := DetectOtherUnit(q.Text, ownerAddress); privacy.Blocked {
		out := &Outcome{
			Answer:      PrivacyMessage(ownerAddress),
			Source:      "policy",
			Topic:       "gdpr_blocked",
			GDPRBlocked: true,
		}
		record.QuestionTopic = "gdpr_blocked"
		record.GDPRBlocked = true
		if privacy.MentionedUnit != "" {
			record.Metadata["mentioned_unit"] = privacy.MentionedUnit
		}
		p.recordIntercept("privacy")
		return p.finishPolicy(ctx, q, record, out, start, emit)
	}

	// Conversation context: last N turns, chronological, best-effort
	var turns []models.ConversationTurn
	if q.UserID != "" && p.messages != nil {
		history, err := p.messages.RecentTurns(ctx, q.UserID, q.DevelopmentID, p.historyTurns)
		if err != nil {
			logger.Warn("history lookup failed", "user_id", q.UserID, "error", err)
		} else {
			turns = history
		}
	}
	isFirstTurn := len(turns) == 0

	searchQuery := q.Text
	if IsFollowUp(q.Text) && len(turns) > 0 {
		searchQuery = ExpandFollowUp(q.Text, turns)
	}

	scored, err := p.retriever.Retrieve(ctx, q.DevelopmentID, searchQuery, q.Text)
	if err != nil {
		return nil, p.fail(ctx, record, err, start, emit)
	}

	// Ambiguous property-size questions get a binary clarification instead of
	// a generated guess at which drawing the user means.
	if IsAmbiguousScope(q.Text) && q.UnitID != "" {
		out := &Outcome{
			Answer: ClarificationQuestion,
			Source: "policy",
			Topic:  "clarification_needed",
			Clarification: &models.Clarification{
				Question: ClarificationQuestion,
				Options:  ClarificationOptions(),
			},
		}
		record.QuestionTopic = "clarification_needed"
		p.recordIntercept("clarification")
		return p.finishPolicy(ctx, q, record, out, start, emit)
	}

	// Topic extraction and drawing resolution fan out together; a drawing
	// failure degrades to no drawing.
	var (
		topic      string
		drawingRes models.DrawingResolution
		wg         sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		topic = p.topics.ExtractTopic(ctx, q.Text)
	}()
	if q.UnitID != "" && p.drawings != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.drawings.FindDrawing(ctx, q.UnitID, drawingTopicHint(q.Text))
			if err != nil {
				logger.Warn("drawing resolution failed", "unit_id", q.UnitID, "error", err)
				return
			}
			drawingRes = res
		}()
	}
	wg.Wait()

	highRiskCategory, highRisk := DetectHighRisk(q.Text)
	if highRisk {
		record.Metadata["high_risk_category"] = highRiskCategory
	}

	if len(scored) == 0 {
		p.logEvent("unanswered", map[string]interface{}{
			"development_id": q.DevelopmentID,
			"topic":          topic,
		})
	}

	// Dimension questions with a resolved floor plan never reach generation:
	// the fixed redirect plus the drawing is the whole answer.
	if IsDimensionQuestion(q.Text) && drawingRes.Found && drawingRes.Drawing != nil && drawingRes.Drawing.DrawingType == "floor_plan" {
		out := &Outcome{
			Answer:  FloorPlanRedirectReply,
			Source:  "policy",
			Topic:   "liability_override",
			Drawing: drawingRes.Drawing,
		}
		record.QuestionTopic = "liability_override"
		record.Metadata["drawing_file"] = drawingRes.Drawing.FileName
		p.recordIntercept("liability")
		return p.finishPolicy(ctx, q, record, out, start, emit)
	}

	system := Compose(q.Text, scored, unit, isFirstTurn)
	sources := DeriveSources(q.Text, scored, highRisk)

	out := &Outcome{
		Source:     "none",
		Topic:      topic,
		ChunksUsed: len(scored),
		Sources:    sources,
	}
	if len(scored) > 0 {
		out.Source = "documents"
	}
	if drawingRes.Found {
		out.Drawing = drawingRes.Drawing
	}
	if p.metrics != nil {
		p.metrics.RecordChunks(len(scored))
	}

	truncated := false
	var answer string

	if emit == nil {
		raw, err := p.generator.Generate(ctx, system, turns, q.Text)
		if err != nil {
			return nil, p.fail(ctx, record, err, start, nil)
		}
		answer = CleanMarkdown(raw)
	} else {
		if err := emit(Event{Type: EventMetadata, Metadata: &models.MetadataFrame{
			Type:       "metadata",
			Source:     out.Source,
			ChunksUsed: out.ChunksUsed,
			Sources:    sources,
			Drawing:    out.Drawing,
		}}); err != nil {
			// Client gone before the first frame: nothing was delivered and
			// nothing gets generated, but the record is still written.
			truncated = true
		} else {
			raw, err := p.generator.GenerateStream(ctx, system, turns, q.Text, func(token string) error {
				if err := emit(Event{Type: EventText, Text: CleanMarkdown(token)}); err != nil {
					return &errClientGone{err: err}
				}
				return nil
			})

			var gone *errClientGone
			switch {
			case err == nil:
				if err := emit(Event{Type: EventDone}); err != nil {
					truncated = true
				}
			case errors.As(err, &gone):
				// Client disconnected mid-stream: keep what was generated and
				// mark the record truncated rather than dropping it.
				truncated = true
			default:
				return nil, p.fail(ctx, record, err, start, emit)
			}
			answer = CleanMarkdown(raw)
		}
	}

	out.Answer = answer
	record.Answer = answer
	record.QuestionTopic = topic
	record.Source = out.Source
	record.ChunksUsed = out.ChunksUsed
	record.StreamTruncated = truncated
	record.LatencyMs = int(time.Since(start).Milliseconds())
	p.persist(ctx, record)

	p.logEvent("chat_question", map[string]interface{}{
		"development_id": q.DevelopmentID,
		"topic":          topic,
		"chunks_used":    out.ChunksUsed,
		"high_risk":      highRisk,
	})
	if p.metrics != nil {
		p.metrics.RecordQuestion(topic, time.Since(start).Seconds())
	}

	return out, nil
}

// finishPolicy completes a policy short-circuit: emits the fixed answer as a
// normal stream (metadata first), persists the record and fires analytics.
// Policy responses are successes, never errors.
func (p *Pipeline) finishPolicy(ctx context.Context, q Query, record *models.AnswerRecord, out *Outcome, start time.Time, emit EmitFunc) (*Outcome, error) {
	if emit != nil {
		frame := &models.MetadataFrame{
			Type:       "metadata",
			Source:     out.Source,
			ChunksUsed: 0,
			Sources:    nil,
			Drawing:    out.Drawing,
		}
		if err := emit(Event{Type: EventMetadata, Metadata: frame}); err == nil {
			if err := emit(Event{Type: EventText, Text: out.Answer}); err == nil {
				_ = emit(Event{Type: EventDone})
			}
		}
	}

	record.Answer = out.Answer
	record.Source = out.Source
	record.ChunksUsed = 0
	record.LatencyMs = int(time.Since(start).Milliseconds())
	p.persist(ctx, record)

	p.logEvent("chat_question", map[string]interface{}{
		"development_id": q.DevelopmentID,
		"topic":          record.QuestionTopic,
		"chunks_used":    0,
	})

	return out, nil
}

// fail classifies and logs an unexpected failure, persists the error record
// and hands a generic error back to the caller.
func (p *Pipeline) fail(ctx context.Context, record *models.AnswerRecord, err error, start time.Time, emit EmitFunc) error {
	kind := classifyError(err)
	logger.Error("request failed", "error", err, "kind", kind)

	record.QuestionTopic = "error"
	record.ErrorKind = kind
	record.LatencyMs = int(time.Since(start).Milliseconds())
	p.persist(ctx, record)

	if p.metrics != nil {
		p.metrics.RecordGenerationError(kind)
	}
	if emit != nil {
		_ = emit(Event{Type: EventError, Message: "Sorry, something went wrong answering that. Please try again."})
	}
	return err
}

func classifyError(err error) string {
	var corpus *ErrCorpusUnavailable
	if errors.As(err, &corpus) {
		return "corpus_unavailable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "provider_timeout"
	}
	return "provider_error"
}

// persist writes the answer record, best-effort: a failed insert is logged
// and never fails the request.
func (p *Pipeline) persist(ctx context.Context, record *models.AnswerRecord) {
	if p.messages == nil {
		return
	}
	if err := p.messages.Insert(ctx, record); err != nil {
		logger.Error("failed to persist answer record", "error", err, "topic", record.QuestionTopic)
	}
}

func (p *Pipeline) logEvent(event string, props map[string]interface{}) {
	if p.analytics == nil {
		return
	}
	p.analytics.LogEvent(event, props)
}

func (p *Pipeline) recordIntercept(kind string) {
	if p.metrics != nil {
		p.metrics.RecordIntercept(kind)
	}
}

func drawingTopicHint(text string) string {
	if strings.Contains(strings.ToLower(text), "elevation") {
		return "elevation"
	}
	return "floor_plan"
}
