package services

import (
	"fmt"
	"regexp"
	"strings"
)

// PrivacyResult is the outcome of checking a question for other-unit references
type PrivacyResult struct {
	Blocked       bool
	MentionedUnit string
}

// Unit/address extraction: number-prefixed or number-suffixed tokens near
// address-like words.
var (
	unitPrefixRe  = regexp.MustCompile(`\b(?:number|no\.?|unit|plot|house|flat|apartment)\s*#?\s*(\d+)\b`)
	addressRe     = regexp.MustCompile(`\b(\d+)\s+[a-z]+(?:\s+[a-z]+)?\s+(?:street|road|avenue|lane|close|drive|way|court|crescent|place|gardens|grove|terrace|row|mews)\b`)
	neighbourRe   = regexp.MustCompile(`\b(?:neighbour|neighbor|next door|house (?:opposite|across))`)
	ownerNumberRe = regexp.MustCompile(`\d+`)
)

// Aggregate community questions are allowed even when neighbours are mentioned.
var aggregateKeywords = []string{
	"community", "estate", "development", "facilities", "amenities",
	"communal", "shared", "everyone", "all residents", "the residents",
}

// Specific-detail markers turn a neighbour mention into a block.
var specificDetailKeywords = []string{
	"their", "theirs", "how many bedrooms", "floor plan", "layout",
	"how big", "what size", "worth", "paid", "sold for", "inside",
}

// DetectOtherUnit decides whether a question asks about a unit or resident
// other than the requester's own. A mentioned number matching a number in the
// requester's own address is self-reference and never blocked.
func DetectOtherUnit(text, ownerAddress string) PrivacyResult {
	normalized := apostrophes.Replace(strings.ToLower(text))

	ownNumbers := map[string]bool{}
	for _, n := range ownerNumberRe.FindAllString(ownerAddress, -1) {
		ownNumbers[n] = true
	}

	var mentioned []string
	for _, m := range unitPrefixRe.FindAllStringSubmatch(normalized, -1) {
		mentioned = append(mentioned, m[1])
	}
	for _, m := range addressRe.FindAllStringSubmatch(normalized, -1) {
		mentioned = append(mentioned, m[1])
	}

	hasAggregate := containsAny(normalized, aggregateKeywords)
	hasSpecificDetail := containsAny(normalized, specificDetailKeywords)

	for _, number := range mentioned {
		if ownNumbers[number] {
			continue // self-reference
		}
		if hasAggregate && !hasSpecificDetail {
			continue
		}
		return PrivacyResult{Blocked: true, MentionedUnit: number}
	}

	// Neighbour phrasing without an explicit number still blocks when the
	// question asks for specific details rather than community information.
	if neighbourRe.MatchString(normalized) && hasSpecificDetail && !hasAggregate {
		return PrivacyResult{Blocked: true}
	}

	return PrivacyResult{}
}

// PrivacyMessage builds the fixed block response, personalized with the
// requester's own address when known.
func PrivacyMessage(ownerAddress string) string {
	if ownerAddress != "" {
		return fmt.Sprintf("I can only share information about your own home at %s and general "+
			"community facilities. I'm not able to discuss other properties or residents.", ownerAddress)
	}
	return "I can only share information about your own home and general community facilities. " +
		"I'm not able to discuss other properties or residents."
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
