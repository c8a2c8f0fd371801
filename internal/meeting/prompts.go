package meeting

import (
	"fmt"
	"strings"

	"github.com/basinlabs/conclave/internal/session"
	"github.com/basinlabs/conclave/internal/toolloop"
)

// initialPrompt builds the first round's participant prompt: the raw
// agenda and optional context (spec §4.7 step 3a).
func initialPrompt(agenda, context string) string {
	if context == "" {
		return agenda
	}
	return fmt.Sprintf("%s\n\nAdditional context:\n%s", agenda, context)
}

// followUpPrompt builds a subsequent round's participant prompt: the
// chair's last question plus the original agenda and context (spec §4.7
// step 3a).
func followUpPrompt(question, agenda, context string) string {
	var b strings.Builder
	b.WriteString("Follow-up question from the chair:\n")
	b.WriteString(question)
	b.WriteString("\n\nOriginal agenda:\n")
	b.WriteString(agenda)
	if context != "" {
		b.WriteString("\n\nAdditional context:\n")
		b.WriteString(context)
	}
	return b.String()
}

// chairAnalysisSystemPrompt is the chair's system prompt when deciding
// whether to continue deliberation.
func chairAnalysisSystemPrompt() string {
	return "You are the chair of a multi-model deliberation. Review the round(s) below. " +
		"If the discussion needs another round, reply with \"CONTINUE:\" followed by the " +
		"single most important follow-up question to pose next. Otherwise reply with anything " +
		"that does not start with \"CONTINUE:\"."
}

// chairSynthesisSystemPrompt is the chair's system prompt for final
// synthesis.
func chairSynthesisSystemPrompt() string {
	return "You are the chair of a multi-model deliberation. Synthesize the discussion below " +
		"into a single clear, actionable summary."
}

// allIterationsSummary renders one round's sessions into the chair's
// analysis-prompt input.
func allIterationsSummary(sessions map[Participant]*toolloop.Session, ordinal int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d:\n", ordinal)
	for _, p := range participantOrder {
		sess, ok := sessions[p]
		if !ok {
			continue
		}
		writeParticipantSummary(&b, p, sess)
	}
	return b.String()
}

// synthesisPrompt renders the last round's sessions for final synthesis.
func synthesisPrompt(sessions map[Participant]*toolloop.Session) string {
	var b strings.Builder
	b.WriteString("Final round responses:\n")
	for _, p := range participantOrder {
		sess, ok := sessions[p]
		if !ok {
			continue
		}
		writeParticipantSummary(&b, p, sess)
	}
	return b.String()
}

func writeParticipantSummary(b *strings.Builder, p Participant, sess *toolloop.Session) {
	if sess.Success {
		fmt.Fprintf(b, "\n[%s]\n%s\n", p, sess.FinalContent)
		return
	}
	fmt.Fprintf(b, "\n[%s] (failed: %s)\n", p, sess.Error)
}

// resumeSummary renders every loaded iteration for the resume flow's
// chair analysis prompt (spec §4.7 "Resume flow").
func resumeSummary(metas []session.IterationMetadata, sessions map[int]map[string]session.ParticipantRecord) string {
	var b strings.Builder
	for _, meta := range metas {
		fmt.Fprintf(&b, "Round %d (%s):\n", meta.Iteration, meta.Question)
		for _, p := range participantOrder {
			rec, ok := sessions[meta.Iteration][string(p)]
			if !ok {
				continue
			}
			if rec.Success {
				fmt.Fprintf(&b, "\n[%s]\n%s\n", p, rec.FinalContent)
			} else {
				fmt.Fprintf(&b, "\n[%s] (failed: %s)\n", p, rec.Error)
			}
		}
	}
	return b.String()
}
