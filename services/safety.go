package services

import (
	"regexp"
	"strings"
)

// SafetyMessage is the single static response returned for any intercepted
// question. No document content is ever attached to it.
const SafetyMessage = "I'm not able to advise on that. Questions about structural changes, " +
	"electrics, gas, fire safety or anything that could affect the safety of your home " +
	"must go to a qualified professional. Please contact your developer's customer care " +
	"team or a certified tradesperson before doing any work."

// SafetyResult is the outcome of classifying one question
type SafetyResult struct {
	Critical       bool
	MatchedKeyword string
	Category       string
}

type safetyKeyword struct {
	keyword  string
	category string
}

type safetyPattern struct {
	re       *regexp.Regexp
	category string
}

// Keyword table, checked before the pattern table. First match wins.
// Recall is deliberately skewed high: overlapping entries per hazard class
// are intentional.
var safetyKeywords = []safetyKeyword{
	// structural
	{"knock down", "structural"},
	{"knock through", "structural"},
	{"knock out a wall", "structural"},
	{"remove a wall", "structural"},
	{"remove the wall", "structural"},
	{"remove this wall", "structural"},
	{"removing a wall", "structural"},
	{"load bearing", "structural"},
	{"load-bearing", "structural"},
	{"supporting wall", "structural"},
	{"structural wall", "structural"},
	{"demolish", "structural"},
	{"take down a wall", "structural"},
	{"subsidence", "structural"},
	{"crack in the wall", "structural"},
	{"cracks in the wall", "structural"},
	{"foundation crack", "structural"},
	{"ceiling sagging", "structural"},
	{"wall is bulging", "structural"},
	// electrical
	{"rewire", "electrical"},
	{"rewiring", "electrical"},
	{"fuse box", "electrical"},
	{"consumer unit", "electrical"},
	{"exposed wire", "electrical"},
	{"exposed wiring", "electrical"},
	{"electric shock", "electrical"},
	{"sparking", "electrical"},
	{"burning smell from socket", "electrical"},
	{"diy electrics", "electrical"},
	// gas
	{"gas leak", "gas"},
	{"smell gas", "gas"},
	{"smell of gas", "gas"},
	{"gas smell", "gas"},
	{"carbon monoxide", "gas"},
	{"boiler leaking", "gas"},
	{"disconnect the gas", "gas"},
	// fire
	{"fire alarm not working", "fire"},
	{"smoke alarm not working", "fire"},
	{"fire escape", "fire"},
	{"fire door", "fire"},
	{"flammable", "fire"},
	// water damage
	{"flooding", "water"},
	{"burst pipe", "water"},
	{"water coming through", "water"},
	{"leak in the ceiling", "water"},
	{"ceiling leak", "water"},
	{"damp patch", "water"},
	// legal / structural ambiguity
	{"planning permission", "legal"},
	{"building regulations", "legal"},
	{"building regs", "legal"},
	{"party wall", "legal"},
}

var safetyPatterns = []safetyPattern{
	{regexp.MustCompile(`\bis (it|this|that) safe\b`), "safety_query"},
	{regexp.MustCompile(`\bsafe to (remove|drill|cut|move|touch|use)\b`), "safety_query"},
	{regexp.MustCompile(`\bcan i (remove|knock|take|cut|drill) (down|out|through|into)\b`), "structural"},
	{regexp.MustCompile(`\bcan i (remove|move|alter) .*(wall|beam|column|joist|support)`), "structural"},
	{regexp.MustCompile(`\b(wall|beam|column|joist).*(load|bearing|supporting)\b`), "structural"},
	{regexp.MustCompile(`\b(diy|myself|my own).*(electric|wiring|gas|boiler)\b`), "electrical"},
	{regexp.MustCompile(`\b(electric|wiring|gas|boiler).*(myself|my own|diy)\b`), "electrical"},
	{regexp.MustCompile(`\bextension\b.*\b(build|add|plan)`), "structural"},
	{regexp.MustCompile(`\b(build|add|plan)\b.*\bextension\b`), "structural"},
}

var apostrophes = strings.NewReplacer("‘", "'", "’", "'")

// Classify decides whether a question must be intercepted before any
// retrieval or generation occurs. Pure function over the static tables.
func Classify(text string) SafetyResult {
	normalized := apostrophes.Replace(strings.ToLower(text))

	for _, entry := range safetyKeywords {
		if strings.Contains(normalized, entry.keyword) {
			return SafetyResult{Critical: true, MatchedKeyword: entry.keyword, Category: entry.category}
		}
	}

	for _, entry := range safetyPatterns {
		if match := entry.re.FindString(normalized); match != "" {
			return SafetyResult{Critical: true, MatchedKeyword: match, Category: entry.category}
		}
	}

	return SafetyResult{}
}
