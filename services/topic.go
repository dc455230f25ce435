package services

import (
	"context"
	"regexp"
	"strings"
)

// High-risk topics get a fixed redirect regardless of retrieved content, and
// never show document sources. Detected independently of the safety gate.
type highRiskPattern struct {
	re       *regexp.Regexp
	category string
}

var highRiskPatterns = []highRiskPattern{
	{regexp.MustCompile(`\b(mould|mold|asthma|allerg|health (risk|hazard)|toxic|poison|ill from|sick from)\b`), "medical"},
	{regexp.MustCompile(`\b(sue|lawsuit|legal action|solicitor|liability|breach of contract|compensation claim)\b`), "legal"},
	{regexp.MustCompile(`\b(load[- ]?bearing|structural|foundation|subsidence|beam|joist|lintel)\b`), "structural"},
	{regexp.MustCompile(`\b(fire (safety|risk|rating|resistance)|smoke alarm|sprinkler|evacuation)\b`), "fire"},
	{regexp.MustCompile(`\b(electric|wiring|socket|fuse|gas|boiler|carbon monoxide|flue)\b`), "electrical_gas"},
	{regexp.MustCompile(`\b(emergency|urgent(ly)? help|999|immediately dangerous)\b`), "emergency"},
}

// DetectHighRisk returns the first matching high-risk category, if any
func DetectHighRisk(text string) (string, bool) {
	normalized := apostrophes.Replace(strings.ToLower(text))
	for _, entry := range highRiskPatterns {
		if entry.re.MatchString(normalized) {
			return entry.category, true
		}
	}
	return "", false
}

var dimensionRe = regexp.MustCompile(`(?i)\b(dimensions?|measurements?|how (wide|long|tall|high)|size of (the|my)? ?(room|bedroom|kitchen|lounge|living room|bathroom|garage|garden)|square (feet|foot|metres?|meters?)|floor area|room size|ceiling height)\b`)

// IsDimensionQuestion reports whether a question asks for numeric room or
// property measurements.
func IsDimensionQuestion(text string) bool {
	return dimensionRe.MatchString(text)
}

var ambiguousScopeRe = regexp.MustCompile(`(?i)\b(how (big|large)|what size) (is )?(my |the )?(house|home|property)\b`)

// IsAmbiguousScope reports whether a question about overall property size
// needs disambiguation between internal floor plans and external elevations.
func IsAmbiguousScope(text string) bool {
	return ambiguousScopeRe.MatchString(text)
}

var drawingRelatedRe = regexp.MustCompile(`(?i)\b(drawing|floor ?plan|layout|elevation|blueprint|plans)\b`)

// IsDrawingRelated reports whether a question concerns drawings or dimensions,
// which permits floor-plan filenames in the source list.
func IsDrawingRelated(text string) bool {
	return drawingRelatedRe.MatchString(text) || IsDimensionQuestion(text)
}

// KeywordTopicExtractor classifies a question into a coarse topic from a
// static table. Runs locally so topic extraction never spends a second
// generation call on the request path.
type KeywordTopicExtractor struct{}

type topicEntry struct {
	topic    string
	keywords []string
}

var topicTable = []topicEntry{
	{"heating", []string{"heating", "thermostat", "radiator", "boiler", "underfloor"}},
	{"windows_doors", []string{"window", "door", "lock", "glazing", "handle"}},
	{"warranty", []string{"warranty", "guarantee", "defect", "snag", "nhbc"}},
	{"appliances", []string{"appliance", "oven", "hob", "dishwasher", "washing machine", "fridge", "extractor"}},
	{"garden", []string{"garden", "fence", "turf", "patio", "shed", "landscaping"}},
	{"parking", []string{"parking", "driveway", "garage", "car", "ev charg"}},
	{"kitchen", []string{"kitchen", "worktop", "cupboard", "tap", "sink"}},
	{"bathroom", []string{"bathroom", "shower", "bath", "toilet", "tiles"}},
	{"dimensions", []string{"dimension", "measurement", "size", "floor area", "square"}},
	{"utilities", []string{"water", "electricity", "meter", "broadband", "stopcock", "fuse"}},
	{"community", []string{"community", "estate", "management", "service charge", "communal", "facilities"}},
}

func (KeywordTopicExtractor) ExtractTopic(ctx context.Context, text string) string {
	normalized := strings.ToLower(text)
	for _, entry := range topicTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(normalized, keyword) {
				return entry.topic
			}
		}
	}
	return "general"
}
