package services

import (
	"regexp"
	"sort"
	"strings"

	"homeowner-assistant-platform/models"
)

var bulletRe = regexp.MustCompile(`(?m)^(\s*)\* `)

// CleanMarkdown strips the markdown the portal does not render: emphasis
// markers are removed and asterisk bullets become dash bullets. Applied to
// whole answers and to individual stream tokens alike, so a marker split
// across two stream chunks can slip through; that cosmetic case is accepted.
// Idempotent: cleaning cleaned text is a no-op.
func CleanMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = bulletRe.ReplaceAllString(text, "$1- ")
	text = strings.ReplaceAll(text, "*", "")
	return text
}

const maxSources = 3

var datasheetRe = regexp.MustCompile(`(?i)(datasheet|data[-_ ]sheet|technical[-_ ]data|manufacturer|spec[-_ ]?sheet|installation[-_ ]manual|o&m)`)

var floorPlanFileRe = regexp.MustCompile(`(?i)(floor[-_ ]?plan|layout|elevation|\bplan\b)`)

// DeriveSources builds the attribution list shown ahead of a streamed answer.
// High-risk answers are redirects, not document-grounded claims, so they never
// show sources.
func DeriveSources(question string, chunks []models.ScoredChunk, highRisk bool) []models.SourceRef {
	if highRisk || len(chunks) == 0 {
		return nil
	}

	drawingRelated := IsDrawingRelated(question)

	type candidate struct {
		ref        models.SourceRef
		similarity float64
	}
	best := map[string]candidate{}

	for _, sc := range chunks {
		name := sc.Chunk.Metadata.FileName
		if name == "" {
			continue
		}
		if datasheetRe.MatchString(name) {
			continue
		}
		if floorPlanFileRe.MatchString(name) && !drawingRelated {
			continue
		}

		existing, seen := best[name]
		if seen && existing.similarity >= sc.Similarity {
			continue
		}

		ref := models.SourceRef{Name: name}
		if sc.Chunk.Metadata.UploadedAt != nil {
			ref.Date = sc.Chunk.Metadata.UploadedAt.Format("2006-01-02")
		}
		best[name] = candidate{ref: ref, similarity: sc.Similarity}
	}

	candidates := make([]candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	refs := make([]models.SourceRef, 0, maxSources)
	for _, c := range candidates {
		if len(refs) >= maxSources {
			break
		}
		refs = append(refs, c.ref)
	}
	return refs
}
