package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"homeowner-assistant-platform/models"
)

type fakeGenerator struct {
	reply  string
	tokens []string
	calls  int
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, system string, history []models.ConversationTurn, question string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, system string, history []models.ConversationTurn, question string, onToken func(string) error) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	tokens := g.tokens
	if tokens == nil {
		tokens = []string{g.reply}
	}
	var full strings.Builder
	for _, tok := range tokens {
		if err := onToken(tok); err != nil {
			return full.String(), err
		}
		full.WriteString(tok)
	}
	return full.String(), nil
}

type fakeMessages struct {
	records []*models.AnswerRecord
	turns   []models.ConversationTurn
}

func (m *fakeMessages) Insert(ctx context.Context, record *models.AnswerRecord) error {
	m.records = append(m.records, record)
	return nil
}

func (m *fakeMessages) RecentTurns(ctx context.Context, userID, developmentID string, limit int) ([]models.ConversationTurn, error) {
	return m.turns, nil
}

type fakeUnits struct {
	unit *models.UnitProfile
}

func (u *fakeUnits) GetUnit(ctx context.Context, unitID string) (*models.UnitProfile, error) {
	if u.unit == nil {
		return nil, errors.New("unit not found")
	}
	return u.unit, nil
}

type fakeDrawings struct {
	res models.DrawingResolution
	err error
}

func (d *fakeDrawings) FindDrawing(ctx context.Context, unitID, topic string) (models.DrawingResolution, error) {
	return d.res, d.err
}

type fakeAnalytics struct {
	events []string
}

func (a *fakeAnalytics) LogEvent(event string, props map[string]interface{}) {
	a.events = append(a.events, event)
}

type pipelineFixture struct {
	corpus    *fakeCorpus
	generator *fakeGenerator
	messages  *fakeMessages
	units     *fakeUnits
	drawings  *fakeDrawings
	analytics *fakeAnalytics
	pipeline  *Pipeline
}

func newFixture() *pipelineFixture {
	f := &pipelineFixture{
		corpus: &fakeCorpus{chunks: []models.DocumentChunk{
			corpusChunk("c1", "warranty-guide", "The windows carry a 10 year warranty from the manufacturer.", []float64{1, 0}),
		}},
		generator: &fakeGenerator{reply: "The windows carry a 10 year warranty."},
		messages:  &fakeMessages{},
		units:     &fakeUnits{unit: &models.UnitProfile{UnitID: "plot-14", Address: "14 Maple Drive", HouseType: "Aspen"}},
		drawings:  &fakeDrawings{res: models.DrawingResolution{Found: false}},
		analytics: &fakeAnalytics{},
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Embedder:  &fakeEmbedder{vec: []float64{1, 0}},
		Generator: f.generator,
		Corpus:    f.corpus,
		Messages:  f.messages,
		Units:     f.units,
		Drawings:  f.drawings,
		Topics:    KeywordTopicExtractor{},
		Analytics: f.analytics,
	}, 20, 80000, 0.30, 4)
	return f
}

func (f *pipelineFixture) lastRecord(t *testing.T) *models.AnswerRecord {
	t.Helper()
	if len(f.messages.records) == 0 {
		t.Fatal("no answer record persisted")
	}
	return f.messages.records[len(f.messages.records)-1]
}

func askQuery(text string) Query {
	return Query{Text: text, UnitID: "plot-14", UserID: "user-1", DevelopmentID: "dev-1"}
}

func TestPipelineSafetyIntercept(t *testing.T) {
	f := newFixture()

	out, err := f.pipeline.Ask(context.Background(), askQuery("Can I remove a wall in the kitchen?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.SafetyIntercept || out.Answer != SafetyMessage {
		t.Errorf("expected safety intercept, got %+v", out)
	}
	if f.generator.calls != 0 {
		t.Errorf("generation ran %d times on an intercepted question", f.generator.calls)
	}

	rec := f.lastRecord(t)
	if rec.QuestionTopic != "safety_intercept" || !rec.SafetyIntercept || rec.ChunksUsed != 0 {
		t.Errorf("bad record: %+v", rec)
	}
}

func TestPipelinePrivacyBlock(t *testing.T) {
	f := newFixture()

	out, err := f.pipeline.Ask(context.Background(), askQuery("Who lives at number 12?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.GDPRBlocked {
		t.Fatalf("expected privacy block, got %+v", out)
	}
	if !strings.Contains(out.Answer, "14 Maple Drive") {
		t.Errorf("privacy reply not personalized: %q", out.Answer)
	}
	if f.generator.calls != 0 {
		t.Errorf("generation ran on a blocked question")
	}
	if rec := f.lastRecord(t); !rec.GDPRBlocked || rec.QuestionTopic != "gdpr_blocked" {
		t.Errorf("bad record: %+v", rec)
	}
}

func TestPipelineOwnUnitNotBlocked(t *testing.T) {
	f := newFixture()

	out, err := f.pipeline.Ask(context.Background(), askQuery("What warranty does number 14 have on the windows?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GDPRBlocked {
		t.Errorf("own unit reference was blocked")
	}
	if f.generator.calls != 1 {
		t.Errorf("generation calls = %d, want 1", f.generator.calls)
	}
}

func TestPipelineClarification(t *testing.T) {
	f := newFixture()

	out, err := f.pipeline.Ask(context.Background(), askQuery("How big is my house?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Clarification == nil {
		t.Fatalf("expected clarification, got %+v", out)
	}
	if len(out.Clarification.Options) != 2 {
		t.Errorf("got %d clarification options, want 2", len(out.Clarification.Options))
	}
	if f.generator.calls != 0 {
		t.Errorf("generation ran on a clarification question")
	}
	if rec := f.lastRecord(t); rec.QuestionTopic != "clarification_needed" {
		t.Errorf("bad record topic: %s", rec.QuestionTopic)
	}
}

func TestPipelineLiabilityOverride(t *testing.T) {
	f := newFixture()
	f.drawings.res = models.DrawingResolution{
		Found:   true,
		Drawing: &models.Drawing{FileName: "Plot 14 Floor Plan.pdf", DrawingType: "floor_plan"},
	}

	out, err := f.pipeline.Ask(context.Background(), askQuery("What are the dimensions of the master bedroom?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Answer != FloorPlanRedirectReply {
		t.Errorf("answer = %q, want floor plan redirect", out.Answer)
	}
	if out.Drawing == nil || out.Drawing.FileName != "Plot 14 Floor Plan.pdf" {
		t.Errorf("drawing not attached: %+v", out.Drawing)
	}
	if f.generator.calls != 0 {
		t.Errorf("generation ran despite the dimension override")
	}
	if rec := f.lastRecord(t); rec.QuestionTopic != "liability_override" {
		t.Errorf("bad record topic: %s", rec.QuestionTopic)
	}
}

func TestPipelineDimensionWithoutDrawingStillGenerates(t *testing.T) {
	f := newFixture()
	f.generator.reply = FloorPlanRedirectReply

	out, err := f.pipeline.Ask(context.Background(), askQuery("What are the dimensions of the master bedroom?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.generator.calls != 1 {
		t.Errorf("generation calls = %d, want 1", f.generator.calls)
	}
	if out.Drawing != nil {
		t.Errorf("unexpected drawing: %+v", out.Drawing)
	}
}

func TestPipelineAnswersFromDocuments(t *testing.T) {
	f := newFixture()

	out, err := f.pipeline.Ask(context.Background(), askQuery("What is the warranty period for the windows?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != "documents" || out.ChunksUsed != 1 {
		t.Errorf("source = %s chunks = %d, want documents/1", out.Source, out.ChunksUsed)
	}
	if out.Topic != "windows_doors" {
		t.Errorf("topic = %s, want windows_doors", out.Topic)
	}
	if f.generator.calls != 1 {
		t.Errorf("generation calls = %d, want 1", f.generator.calls)
	}

	rec := f.lastRecord(t)
	if rec.Answer == "" || rec.ChunksUsed != 1 || rec.QuestionTopic != "windows_doors" {
		t.Errorf("bad record: %+v", rec)
	}
	if rec.LatencyMs < 0 {
		t.Errorf("negative latency recorded")
	}

	found := false
	for _, event := range f.analytics.events {
		if event == "chat_question" {
			found = true
		}
	}
	if !found {
		t.Errorf("chat_question analytics event not logged: %v", f.analytics.events)
	}
}

func TestPipelineStreamOrdering(t *testing.T) {
	f := newFixture()
	f.generator.tokens = []string{"The windows ", "carry a ", "10 year warranty."}

	var types []EventType
	var metadata *models.MetadataFrame
	emit := func(ev Event) error {
		types = append(types, ev.Type)
		if ev.Type == EventMetadata {
			metadata = ev.Metadata
		}
		return nil
	}

	out, err := f.pipeline.AskStream(context.Background(), askQuery("What is the warranty period for the windows?"), emit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(types) < 3 || types[0] != EventMetadata || types[len(types)-1] != EventDone {
		t.Fatalf("bad frame ordering: %v", types)
	}
	for _, ty := range types[1 : len(types)-1] {
		if ty != EventText {
			t.Errorf("unexpected frame between metadata and done: %v", types)
		}
	}
	if metadata == nil || metadata.Source != "documents" || metadata.ChunksUsed != 1 {
		t.Errorf("bad metadata frame: %+v", metadata)
	}
	if out.Answer != "The windows carry a 10 year warranty." {
		t.Errorf("assembled answer = %q", out.Answer)
	}
	if rec := f.lastRecord(t); rec.StreamTruncated {
		t.Errorf("completed stream marked truncated")
	}
}

func TestPipelineStreamDisconnectPersistsPartial(t *testing.T) {
	f := newFixture()
	f.generator.tokens = []string{"The windows ", "carry a ", "10 year warranty."}

	textFrames := 0
	emit := func(ev Event) error {
		if ev.Type == EventText {
			textFrames++
			if textFrames >= 2 {
				return errors.New("client disconnected")
			}
		}
		return nil
	}

	out, err := f.pipeline.AskStream(context.Background(), askQuery("What is the warranty period for the windows?"), emit)
	if err != nil {
		t.Fatalf("disconnect should not surface as an error: %v", err)
	}
	if out.Answer != "The windows " {
		t.Errorf("partial answer = %q, want first token only", out.Answer)
	}

	rec := f.lastRecord(t)
	if !rec.StreamTruncated {
		t.Errorf("truncated stream not flagged in record")
	}
	if rec.Answer != "The windows " {
		t.Errorf("record answer = %q, want partial text", rec.Answer)
	}
}

func TestPipelineStreamDisconnectBeforeFirstFramePersists(t *testing.T) {
	f := newFixture()

	emit := func(ev Event) error {
		return errors.New("client disconnected")
	}

	out, err := f.pipeline.AskStream(context.Background(), askQuery("What is the warranty period for the windows?"), emit)
	if err != nil {
		t.Fatalf("disconnect should not surface as an error: %v", err)
	}
	if out.Answer != "" {
		t.Errorf("answer = %q, want nothing generated", out.Answer)
	}
	if f.generator.calls != 0 {
		t.Errorf("generation calls = %d, want 0 when no frame was delivered", f.generator.calls)
	}

	rec := f.lastRecord(t)
	if !rec.StreamTruncated {
		t.Errorf("truncated stream not flagged in record")
	}
	if rec.Answer != "" {
		t.Errorf("record answer = %q, want empty", rec.Answer)
	}
}

func TestPipelineCorpusUnavailable(t *testing.T) {
	f := newFixture()
	f.corpus.listErr = errors.New("connection refused")

	_, err := f.pipeline.Ask(context.Background(), askQuery("What is the warranty period for the windows?"))
	var unavailable *ErrCorpusUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}

	rec := f.lastRecord(t)
	if rec.ErrorKind != "corpus_unavailable" || rec.QuestionTopic != "error" {
		t.Errorf("bad error record: %+v", rec)
	}
}

func TestPipelineGenerationFailure(t *testing.T) {
	f := newFixture()
	f.generator.err = errors.New("upstream exploded")

	_, err := f.pipeline.Ask(context.Background(), askQuery("What is the warranty period for the windows?"))
	if err == nil {
		t.Fatal("expected error")
	}
	if rec := f.lastRecord(t); rec.ErrorKind != "provider_error" {
		t.Errorf("error kind = %q, want provider_error", rec.ErrorKind)
	}
}

func TestPipelineEmptyMessage(t *testing.T) {
	f := newFixture()
	if _, err := f.pipeline.Ask(context.Background(), askQuery("   ")); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(f.messages.records) != 0 {
		t.Errorf("empty message persisted a record")
	}
}

func TestPipelineUnansweredEvent(t *testing.T) {
	f := newFixture()
	f.corpus.chunks = nil
	f.generator.reply = NoInformationReply

	out, err := f.pipeline.Ask(context.Background(), askQuery("Is there a wine cellar specification?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != "none" || out.ChunksUsed != 0 {
		t.Errorf("source = %s chunks = %d, want none/0", out.Source, out.ChunksUsed)
	}

	found := false
	for _, event := range f.analytics.events {
		if event == "unanswered" {
			found = true
		}
	}
	if !found {
		t.Errorf("unanswered event not logged: %v", f.analytics.events)
	}
}
