package services

import (
	"fmt"
	"strings"

	"homeowner-assistant-platform/models"
)

// Fixed reply phrases. These are policy wording, not prompt suggestions: the
// generation instructions require them verbatim.
const (
	NoInformationReply = "I don't have that information in your home's documents. " +
		"Please contact your developer's customer care team for help with this."

	FloorPlanRedirectReply = "For exact measurements, please check the floor plan drawing " +
		"for your property - I've attached it below. I'm not able to quote dimensions myself."

	ClarificationQuestion = "Just to check - are you asking about the internal room layout " +
		"or the external appearance of your property?"
)

// ClarificationOptions is the fixed pair offered for ambiguous size questions
func ClarificationOptions() []models.ClarificationOption {
	return []models.ClarificationOption{
		{ID: "internal", Label: "Internal room sizes and layout (floor plan)"},
		{ID: "external", Label: "External appearance and elevations"},
	}
}

// Compose builds the system policy block for generation. The safety, privacy
// and dimension clauses are fixed and outrank any retrieved content.
func Compose(question string, chunks []models.ScoredChunk, unit *models.UnitProfile, isFirstTurn bool) string {
	var b strings.Builder

	b.WriteString("You are the homeowner assistant for a residential development portal. ")
	b.WriteString("You are warm, concise and practical.\n\n")

	if isFirstTurn {
		b.WriteString("This is the first message of the session: open with a brief, friendly greeting. ")
	} else {
		b.WriteString("This is a follow-up message: do not greet the user again, answer directly. ")
	}
	b.WriteString("\n\n")

	b.WriteString("Rules, in priority order:\n")
	b.WriteString("1. Answer only from the reference passages below. If they do not support an answer, reply exactly: \"" + NoInformationReply + "\" Never invent details.\n")
	b.WriteString("2. For medical or health questions, reply: \"I can't advise on health matters. Please speak to a medical professional or NHS 111.\"\n")
	b.WriteString("3. For legal questions, reply: \"I can't give legal advice. Please consult a solicitor or your conveyancer.\"\n")
	b.WriteString("4. For structural questions (walls, beams, foundations, extensions), reply: \"Structural questions need a qualified structural engineer. Please contact your developer's customer care team.\"\n")
	b.WriteString("5. For fire safety questions, reply: \"Fire safety questions must go to your developer's customer care team or the fire service on 101 for non-emergencies.\"\n")
	b.WriteString("6. For electrical or gas questions, reply: \"Electrical and gas work must be handled by a certified professional. Please contact a registered electrician or Gas Safe engineer.\"\n")
	b.WriteString("7. In an emergency, reply: \"If this is an emergency, call 999 immediately.\"\n")
	b.WriteString("Rules 2-7 apply even when the reference passages mention the topic.\n\n")

	b.WriteString("Never state or imply that any structural, electrical or gas element is safe, compliant or in working order, and never infer safety facts from drawings.\n")
	b.WriteString("Never quote numeric room dimensions, even when a number appears in the reference passages. For any measurement question reply exactly: \"" + FloorPlanRedirectReply + "\"\n\n")

	if unit != nil && unit.Address != "" {
		fmt.Fprintf(&b, "You may only discuss the requester's own home at %s and aggregate community information. ", unit.Address)
	} else {
		b.WriteString("You may only discuss the requester's own home and aggregate community information. ")
	}
	b.WriteString("If asked about any other unit or resident, reply: \"I can only share information about your own home and general community facilities.\"\n\n")

	if len(chunks) == 0 {
		b.WriteString("No reference passages are available for this question. Use the exact no-information reply from rule 1 unless one of rules 2-7 applies.\n")
		return b.String()
	}

	b.WriteString("Reference passages:\n\n")
	for i, sc := range chunks {
		fmt.Fprintf(&b, "--- Passage %d", i+1)
		if name := sc.Chunk.Metadata.FileName; name != "" {
			fmt.Fprintf(&b, " (%s)", name)
		}
		b.WriteString(" ---\n")
		b.WriteString(sc.Chunk.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}
