package services

import (
	"testing"
	"time"

	"homeowner-assistant-platform/models"
)

func TestCleanMarkdown(t *testing.T) {
	in := "**Bold** and __underline__ with *emphasis*.\n* first\n  * second\n- third"
	want := "Bold and underline with emphasis.\n- first\n  - second\n- third"
	if got := CleanMarkdown(in); got != want {
		t.Errorf("CleanMarkdown = %q, want %q", got, want)
	}
}

func TestCleanMarkdownIdempotent(t *testing.T) {
	in := "**Bold** headline\n* a bullet with *stars*"
	once := CleanMarkdown(in)
	if twice := CleanMarkdown(once); twice != once {
		t.Errorf("CleanMarkdown not idempotent: %q vs %q", once, twice)
	}
}

func sourcesChunk(fileName string, similarity float64, uploaded *time.Time) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.DocumentChunk{
			Content: "content",
			Metadata: models.ChunkMetadata{
				DocumentID: "doc",
				FileName:   fileName,
				UploadedAt: uploaded,
			},
		},
		Similarity: similarity,
		Score:      similarity,
	}
}

func TestDeriveSources(t *testing.T) {
	uploaded := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	chunks := []models.ScoredChunk{
		sourcesChunk("Homeowner Manual.pdf", 0.9, &uploaded),
		sourcesChunk("Homeowner Manual.pdf", 0.7, &uploaded),
		sourcesChunk("Warranty Guide.pdf", 0.8, nil),
		sourcesChunk("Boiler Datasheet.pdf", 0.85, nil),
		sourcesChunk("Plot 14 Floor Plan.pdf", 0.95, nil),
	}

	refs := DeriveSources("What is the warranty on the boiler?", chunks, false)
	if len(refs) != 2 {
		t.Fatalf("got %d sources, want 2: %+v", len(refs), refs)
	}
	if refs[0].Name != "Homeowner Manual.pdf" || refs[1].Name != "Warranty Guide.pdf" {
		t.Errorf("unexpected source order: %+v", refs)
	}
	if refs[0].Date != "2025-03-14" {
		t.Errorf("source date = %q, want 2025-03-14", refs[0].Date)
	}
}

func TestDeriveSourcesDrawingQuestion(t *testing.T) {
	chunks := []models.ScoredChunk{
		sourcesChunk("Plot 14 Floor Plan.pdf", 0.95, nil),
		sourcesChunk("Homeowner Manual.pdf", 0.5, nil),
	}
	refs := DeriveSources("Where can I see the floor plan layout?", chunks, false)
	if len(refs) != 2 || refs[0].Name != "Plot 14 Floor Plan.pdf" {
		t.Errorf("drawing question should include floor plan source: %+v", refs)
	}
}

func TestDeriveSourcesSuppressed(t *testing.T) {
	chunks := []models.ScoredChunk{sourcesChunk("Homeowner Manual.pdf", 0.9, nil)}
	if refs := DeriveSources("Is the wall structural?", chunks, true); refs != nil {
		t.Errorf("high-risk answer produced sources: %+v", refs)
	}
	if refs := DeriveSources("anything", nil, false); refs != nil {
		t.Errorf("empty chunks produced sources: %+v", refs)
	}
}

func TestDeriveSourcesCap(t *testing.T) {
	chunks := []models.ScoredChunk{
		sourcesChunk("A.pdf", 0.9, nil),
		sourcesChunk("B.pdf", 0.8, nil),
		sourcesChunk("C.pdf", 0.7, nil),
		sourcesChunk("D.pdf", 0.6, nil),
	}
	if refs := DeriveSources("question", chunks, false); len(refs) != 3 {
		t.Errorf("got %d sources, want 3", len(refs))
	}
}
