package services

import (
	"strings"
	"testing"
)

func TestChunkerShortText(t *testing.T) {
	c := NewChunker(1000, 200)
	chunks := c.Split("The boiler is serviced annually by the developer.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0], "boiler") {
		t.Errorf("chunk lost content: %q", chunks[0])
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(1000, 200)
	if chunks := c.Split(""); chunks != nil {
		t.Errorf("empty input produced chunks: %v", chunks)
	}
	if chunks := c.Split("\n\n   \n\n"); chunks != nil {
		t.Errorf("whitespace input produced chunks: %v", chunks)
	}
}

func TestChunkerParagraphBoundaries(t *testing.T) {
	paras := []string{
		"Heating. " + strings.Repeat("The thermostat schedule is programmable. ", 10),
		"Windows. " + strings.Repeat("The windows carry a ten year warranty. ", 10),
		"Garden. " + strings.Repeat("The rear fence belongs to this plot. ", 10),
	}
	text := strings.Join(paras, "\n\n")

	c := NewChunker(500, 100)
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("long text produced %d chunks, want several", len(chunks))
	}

	joined := strings.Join(chunks, "\n")
	for _, marker := range []string{"Heating.", "Windows.", "Garden."} {
		if !strings.Contains(joined, marker) {
			t.Errorf("chunks lost paragraph %q", marker)
		}
	}
}

func TestChunkerOversizedParagraph(t *testing.T) {
	sentence := "This sentence describes one aspect of the property in detail. "
	text := strings.Repeat(sentence, 40)

	c := NewChunker(400, 80)
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("oversized paragraph produced %d chunks, want several", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	chunks := c.Split("Some content.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}
