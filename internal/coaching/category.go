package coaching

import (
	"strings"

	"ai-meeting-copilot/internal/models"
)

// Keyword buckets for post-hoc tip categorization. Checked against the
// lowercased question and answer together.
var categoryKeywords = []struct {
	category models.TipCategory
	words    []string
}{
	{models.CategoryTechnical, []string{
		"code", "api", "architecture", "database", "deploy", "algorithm",
		"system design", "technical", "implementation", "stack",
	}},
	{models.CategoryStrategy, []string{
		"roadmap", "strategy", "long-term", "priorit", "budget", "plan for",
		"quarter", "goal", "milestone",
	}},
	{models.CategoryCommunication, []string{
		"explain", "clarify", "summarize", "present", "walk you through",
		"let me rephrase", "in other words",
	}},
}

// categorize assigns a finished tip to one of the fixed categories using
// keyword heuristics over the generated text.
func categorize(question, answer string) models.TipCategory {
	text := strings.ToLower(question + " " + answer)
	for _, bucket := range categoryKeywords {
		for _, w := range bucket.words {
			if strings.Contains(text, w) {
				return bucket.category
			}
		}
	}
	if strings.TrimSpace(question) != "" {
		return models.CategoryAnswer
	}
	return models.CategoryGeneral
}
