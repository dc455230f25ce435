package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"homeowner-assistant-platform/models"
)

type fakeCorpus struct {
	chunks        []models.DocumentChunk
	superseded    map[string]bool
	listErr       error
	supersededErr error
}

func (f *fakeCorpus) ListChunks(ctx context.Context, developmentID string) ([]models.DocumentChunk, error) {
	return f.chunks, f.listErr
}

func (f *fakeCorpus) SupersededDocumentIDs(ctx context.Context, developmentID string) (map[string]bool, error) {
	if f.supersededErr != nil {
		return nil, f.supersededErr
	}
	if f.superseded == nil {
		return map[string]bool{}, nil
	}
	return f.superseded, nil
}

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vec, f.err
}

func corpusChunk(id, docID, content string, embedding []float64) models.DocumentChunk {
	return models.DocumentChunk{
		ID:            id,
		DevelopmentID: "dev-1",
		Content:       content,
		Metadata:      models.ChunkMetadata{DocumentID: docID, FileName: docID + ".pdf"},
		Embedding:     embedding,
	}
}

func newTestRetriever(corpus *fakeCorpus, embedder *fakeEmbedder) *Retriever {
	return NewRetriever(corpus, embedder, 20, 80000, 0.30)
}

func TestRetrieveRanksAndGates(t *testing.T) {
	corpus := &fakeCorpus{chunks: []models.DocumentChunk{
		corpusChunk("c1", "manual", "The thermostat controls the heating schedule.", []float64{1, 0}),
		corpusChunk("c2", "landscaping", "The turf was laid in spring.", []float64{0, 1}),
	}}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	selected, err := r.Retrieve(context.Background(), "dev-1", "thermostat heating", "thermostat heating")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) == 0 || selected[0].Chunk.ID != "c1" {
		t.Fatalf("expected c1 ranked first, got %+v", selected)
	}
	if selected[0].Similarity < 0.99 {
		t.Errorf("c1 similarity = %v, want ~1", selected[0].Similarity)
	}
	if selected[0].KeywordBoost <= 0 {
		t.Errorf("c1 keyword boost = %v, want > 0", selected[0].KeywordBoost)
	}
}

func TestRetrieveRelevanceGate(t *testing.T) {
	// Keyword overlap alone must not pass the gate when similarity is low
	corpus := &fakeCorpus{chunks: []models.DocumentChunk{
		corpusChunk("c1", "manual", "thermostat heating thermostat heating", []float64{0, 1}),
	}}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	selected, err := r.Retrieve(context.Background(), "dev-1", "thermostat heating", "thermostat heating")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected != nil {
		t.Errorf("low-similarity corpus passed the gate: %+v", selected)
	}
}

func TestRetrieveExclusions(t *testing.T) {
	facing := false
	chunks := []models.DocumentChunk{
		corpusChunk("keep", "manual", "Heating guidance for homeowners.", []float64{1, 0}),
		corpusChunk("old", "manual-v1", "Old heating guidance.", []float64{1, 0}),
		{
			ID: "technical", DevelopmentID: "dev-1", Content: "Cable sizing calcs.",
			Metadata:  models.ChunkMetadata{DocumentID: "calcs", Discipline: "electrical"},
			Embedding: []float64{1, 0},
		},
		{
			ID: "asbuilt", DevelopmentID: "dev-1", Content: "As-built drawing register.",
			Metadata:  models.ChunkMetadata{DocumentID: "reg", FileName: "As-Built Register.pdf"},
			Embedding: []float64{1, 0},
		},
		{
			ID: "internal", DevelopmentID: "dev-1", Content: "Internal only.",
			Metadata:  models.ChunkMetadata{DocumentID: "int", IsHomeownerFacing: &facing},
			Embedding: []float64{1, 0},
		},
	}
	corpus := &fakeCorpus{
		chunks:     chunks,
		superseded: map[string]bool{"manual-v1": true},
	}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	selected, err := r.Retrieve(context.Background(), "dev-1", "heating", "heating")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 1 || selected[0].Chunk.ID != "keep" {
		t.Errorf("exclusions not applied, got %+v", selected)
	}
}

func TestRetrieveBudgets(t *testing.T) {
	var chunks []models.DocumentChunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, corpusChunk(
			string(rune('a'+i)), "manual", strings.Repeat("x", 100), []float64{1, 0}))
	}
	corpus := &fakeCorpus{chunks: chunks}

	r := NewRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}}, 2, 80000, 0.30)
	selected, err := r.Retrieve(context.Background(), "dev-1", "q", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 2 {
		t.Errorf("chunk budget: got %d, want 2", len(selected))
	}

	r = NewRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}}, 20, 250, 0.30)
	selected, err = r.Retrieve(context.Background(), "dev-1", "q", "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 2 {
		t.Errorf("char budget: got %d chunks, want 2", len(selected))
	}
}

func TestRetrieveCorpusUnavailable(t *testing.T) {
	corpus := &fakeCorpus{listErr: errors.New("connection refused")}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	_, err := r.Retrieve(context.Background(), "dev-1", "q", "q")
	var unavailable *ErrCorpusUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrCorpusUnavailable, got %v", err)
	}
}

func TestRetrieveSupersededLookupDegrades(t *testing.T) {
	corpus := &fakeCorpus{
		chunks:        []models.DocumentChunk{corpusChunk("c1", "manual", "Heating guidance.", []float64{1, 0})},
		supersededErr: errors.New("index missing"),
	}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	selected, err := r.Retrieve(context.Background(), "dev-1", "heating", "heating")
	if err != nil {
		t.Fatalf("superseded lookup failure should not fail retrieval: %v", err)
	}
	if len(selected) != 1 {
		t.Errorf("got %d chunks, want 1", len(selected))
	}
}

func TestRetrieveUnparseableEmbeddingScoresZero(t *testing.T) {
	corpus := &fakeCorpus{chunks: []models.DocumentChunk{
		corpusChunk("good", "manual", "Heating guidance.", []float64{1, 0}),
		corpusChunk("bad", "manual2", "More heating guidance.", nil),
	}}
	r := newTestRetriever(corpus, &fakeEmbedder{vec: []float64{1, 0}})

	selected, err := r.Retrieve(context.Background(), "dev-1", "heating", "heating")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) == 0 || selected[0].Chunk.ID != "good" {
		t.Fatalf("expected parseable chunk first, got %+v", selected)
	}
	for _, sc := range selected {
		if sc.Chunk.ID == "bad" && sc.Similarity != 0 {
			t.Errorf("unparseable embedding similarity = %v, want 0", sc.Similarity)
		}
	}
}
