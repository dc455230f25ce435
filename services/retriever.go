package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/models"
)

// ErrCorpusUnavailable wraps a failed chunk listing. Unlike every other lookup
// in the pipeline this is fatal: it means the document store itself is down,
// not that no documents matched.
type ErrCorpusUnavailable struct {
	Err error
}

func (e *ErrCorpusUnavailable) Error() string {
	return fmt.Sprintf("corpus unavailable: %v", e.Err)
}

func (e *ErrCorpusUnavailable) Unwrap() error { return e.Err }

const (
	contentBoostPerToken  = 0.05
	metadataBoostPerToken = 0.02
)

// Disciplines whose documents are never surfaced to homeowners
var excludedDisciplines = map[string]bool{
	"structural":       true,
	"electrical":       true,
	"mechanical":       true,
	"plumbing":         true,
	"mep":              true,
	"m&e":              true,
	"hvac":             true,
	"fire_engineering": true,
	"fire engineering": true,
	"gas":              true,
	"construction":     true,
	"as-built":         true,
	"as_built":         true,
	"detailed_design":  true,
	"detailed design":  true,
	"contractor":       true,
}

var excludedFileNameRe = regexp.MustCompile(`(?i)\b(as[-_ ]?built|structural|electrical|mechanical|plumbing|hvac|m&e|mep|fire[-_ ]?strategy|gas[-_ ]?safe|construction[-_ ]?(issue|drawing)|detail(ed)?[-_ ]?design|contractor|rebar|drainage)\b`)

// Retriever selects the bounded, relevance-gated context window for a query
type Retriever struct {
	corpus   CorpusStore
	embedder Embedder

	maxChunks       int
	maxContextChars int
	minSimilarity   float64
}

func NewRetriever(corpus CorpusStore, embedder Embedder, maxChunks, maxContextChars int, minSimilarity float64) *Retriever {
	return &Retriever{
		corpus:          corpus,
		embedder:        embedder,
		maxChunks:       maxChunks,
		maxContextChars: maxContextChars,
		minSimilarity:   minSimilarity,
	}
}

// Retrieve scores the corpus against searchQuery and returns the selected
// window. originalQuestion drives the lexical boost so exact terms surface
// even when embeddings under-rank them.
func (r *Retriever) Retrieve(ctx context.Context, developmentID, searchQuery, originalQuestion string) ([]models.ScoredChunk, error) {
	superseded, err := r.corpus.SupersededDocumentIDs(ctx, developmentID)
	if err != nil {
		// Best-effort: a failed superseded lookup degrades to an empty set
		logger.Warn("superseded document lookup failed", "error", err, "development_id", developmentID)
		superseded = map[string]bool{}
	}

	chunks, err := r.corpus.ListChunks(ctx, developmentID)
	if err != nil {
		return nil, &ErrCorpusUnavailable{Err: err}
	}

	queryVec, err := r.embedder.Embed(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	tokens := questionTokens(originalQuestion)

	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if excludeChunk(chunk, superseded) {
			continue
		}

		similarity := 0.0
		if vec, err := ParseEmbedding(chunk.Embedding); err == nil {
			similarity = CosineSimilarity(queryVec, vec)
		}

		boost := keywordBoost(chunk, tokens)

		scored = append(scored, models.ScoredChunk{
			Chunk:        chunk,
			Similarity:   similarity,
			KeywordBoost: boost,
			Score:        similarity + boost,
		})
	}

	// Stable sort keeps corpus order for equal scores
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	// Relevance gate on raw similarity, not the boosted score: keyword overlap
	// alone must not drag irrelevant context into generation.
	if len(scored) == 0 || topSimilarity(scored) < r.minSimilarity {
		return nil, nil
	}

	var selected []models.ScoredChunk
	charTotal := 0
	for _, sc := range scored {
		if len(selected) >= r.maxChunks {
			break
		}
		if charTotal+len(sc.Chunk.Content) > r.maxContextChars {
			break
		}
		selected = append(selected, sc)
		charTotal += len(sc.Chunk.Content)
	}

	return selected, nil
}

func topSimilarity(scored []models.ScoredChunk) float64 {
	top := scored[0].Similarity
	for _, sc := range scored[1:] {
		if sc.Similarity > top {
			top = sc.Similarity
		}
	}
	return top
}

func excludeChunk(chunk models.DocumentChunk, superseded map[string]bool) bool {
	if superseded[chunk.Metadata.DocumentID] {
		return true
	}
	if excludedDisciplines[strings.ToLower(chunk.Metadata.Discipline)] {
		return true
	}
	if chunk.Metadata.FileName != "" && excludedFileNameRe.MatchString(chunk.Metadata.FileName) {
		return true
	}
	// Default is inclusion: exclusion requires the explicit flag
	if chunk.Metadata.IsHomeownerFacing != nil && !*chunk.Metadata.IsHomeownerFacing {
		return true
	}
	return false
}

func questionTokens(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func keywordBoost(chunk models.DocumentChunk, tokens []string) float64 {
	content := strings.ToLower(chunk.Content)
	metadata := strings.ToLower(fmt.Sprintf("%s %s %s",
		chunk.Metadata.DocumentID, chunk.Metadata.Discipline, chunk.Metadata.FileName))

	boost := 0.0
	for _, token := range tokens {
		if strings.Contains(content, token) {
			boost += contentBoostPerToken
		}
		if strings.Contains(metadata, token) {
			boost += metadataBoostPerToken
		}
	}
	return boost
}
