package coaching

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// perSourceChars caps how much fetched briefing text each source may
// contribute to the prompt.
const perSourceChars = 1500

const answerSystemStyle = `You are a discreet real-time meeting coach. The remote party just asked the user a question. Write a short answer the user can say out loud, first person, conversational, no preamble, no bullet points.`

// buildPrompt assembles the generation prompt from the triggering question,
// recent conversation, retrieval context, and the briefing.
func (e *Engine) buildPrompt(question string) string {
	var sb strings.Builder
	sb.WriteString(answerSystemStyle)
	sb.WriteString("\n\n")

	if e.briefing != nil {
		if b := e.briefing(); b != nil {
			if b.Topic != "" {
				fmt.Fprintf(&sb, "Meeting topic: %s\n", b.Topic)
			}
			if b.Agenda != "" {
				fmt.Fprintf(&sb, "Agenda: %s\n", b.Agenda)
			}
			for _, p := range b.Participants {
				fmt.Fprintf(&sb, "Participant: %s", p.Name)
				if p.Role != "" {
					fmt.Fprintf(&sb, " (%s", p.Role)
					if p.Company != "" {
						fmt.Fprintf(&sb, ", %s", p.Company)
					}
					sb.WriteString(")")
				}
				if p.Notes != "" {
					fmt.Fprintf(&sb, " - %s", p.Notes)
				}
				sb.WriteString("\n")
			}
			if b.Notes != "" {
				fmt.Fprintf(&sb, "Notes: %s\n", b.Notes)
			}
			for _, src := range b.Sources {
				if src.Text == "" {
					continue
				}
				text := truncateRunes(src.Text, perSourceChars)
				fmt.Fprintf(&sb, "Reference (%s):\n%s\n", src.URL, text)
			}
			sb.WriteString("\n")
		}
	}

	if e.rag != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ragText, err := e.rag.ContextFor(ctx, question, ragMaxChars)
		cancel()
		if err == nil && ragText != "" {
			sb.WriteString("Background material:\n")
			sb.WriteString(ragText)
			sb.WriteString("\n\n")
		}
	}

	if e.source != nil {
		lines := e.source(contextLineCount)
		if len(lines) > 0 {
			sb.WriteString("Recent conversation:\n")
			for _, l := range lines {
				fmt.Fprintf(&sb, "%s: %s\n", l.Speaker, l.Text)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "They asked: %q\n\nYour spoken answer:", question)
	return sb.String()
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
