package services

import (
	"regexp"
	"strings"
)

// Chunker splits document text for embedding. Paragraphs are the preferred
// boundary; a paragraph larger than the chunk budget falls back to sentence
// splits. Consecutive chunks share a character overlap so answers that span
// a boundary still retrieve.
type Chunker struct {
	maxChunkSize int
	overlap      int
	paragraphRe  *regexp.Regexp
	sentenceRe   *regexp.Regexp
}

func NewChunker(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = maxChunkSize / 5
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
		paragraphRe:  regexp.MustCompile(`\n\s*\n+`),
		sentenceRe:   regexp.MustCompile(`[.!?]+\s+`),
	}
}

// Split returns the chunk texts in document order. Empty input yields nil.
func (c *Chunker) Split(text string) []string {
	var pieces []string
	for _, para := range c.paragraphRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= c.maxChunkSize {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, c.splitSentences(para)...)
	}
	if len(pieces) == 0 {
		return nil
	}

	var chunks []string
	current := new(strings.Builder)
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > c.maxChunkSize {
			chunks = append(chunks, current.String())
			tail := c.overlapTail(current.String())
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func (c *Chunker) splitSentences(para string) []string {
	var out []string
	current := new(strings.Builder)
	locs := c.sentenceRe.FindAllStringIndex(para, -1)
	prev := 0
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			out = append(out, s)
		}
		current.Reset()
	}
	for _, loc := range locs {
		sentence := para[prev:loc[1]]
		prev = loc[1]
		if current.Len()+len(sentence) > c.maxChunkSize {
			flush()
		}
		current.WriteString(sentence)
	}
	if prev < len(para) {
		rest := para[prev:]
		if current.Len()+len(rest) > c.maxChunkSize {
			flush()
		}
		current.WriteString(rest)
	}
	flush()
	return out
}

// overlapTail returns the last sentences of a chunk, up to the overlap budget
func (c *Chunker) overlapTail(chunk string) string {
	if c.overlap == 0 || len(chunk) <= c.overlap {
		return ""
	}
	tail := chunk[len(chunk)-c.overlap:]
	if idx := c.sentenceRe.FindStringIndex(tail); idx != nil {
		tail = tail[idx[1]:]
	}
	return strings.TrimSpace(tail)
}
