package services

import (
	"fmt"
	"regexp"
	"strings"

	"homeowner-assistant-platform/models"
)

const followUpMaxWords = 8

var (
	anaphoraRe = regexp.MustCompile(`\b(it|they|them|those|these|that one|the same)\b`)

	continuationRes = []*regexp.Regexp{
		regexp.MustCompile(`^(and|but|also|what about|how about|tell me more|more about|anything else)\b`),
		regexp.MustCompile(`^(who|what|which|where|when|how|why)\s+\w+\s+(them|it|those|these)\b`),
	}
)

// IsFollowUp reports whether a message refers back to the previous exchange.
// Deliberately strict: a short question with no anaphora is not a follow-up,
// so an unrelated retrieval never drags in stale topic context.
func IsFollowUp(text string) bool {
	normalized := strings.TrimSpace(apostrophes.Replace(strings.ToLower(text)))

	if anaphoraRe.MatchString(normalized) && wordCount(normalized) <= followUpMaxWords {
		return true
	}

	for _, re := range continuationRes {
		if re.MatchString(normalized) {
			return true
		}
	}

	return false
}

// ExpandFollowUp builds the retrieval-only query for a follow-up. The
// original text is still what goes into the generation conversation turn.
func ExpandFollowUp(text string, history []models.ConversationTurn) string {
	if len(history) == 0 {
		return text
	}
	last := history[len(history)-1]
	return fmt.Sprintf("Previous topic: %s\nCurrent question: %s", last.UserMessage, text)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
