package document

import (
	"fmt"
	"strings"

	"github.com/placementarchive/expindex/internal/store"
)

// Build assembles a flat searchable document from an experience record.
// Output is a pure function of the input with fixed section ordering:
// header fields, tips, rounds, then questions. Downstream snippet
// truncation and answer extraction depend on this ordering, so two
// calls on identical input must produce identical output. Missing
// fields are omitted entirely rather than rendered as placeholders.
func Build(exp *store.Experience) string {
	var parts []string

	if exp.CompanyName != "" {
		parts = append(parts, "Company: "+exp.CompanyName)
	}
	if exp.Role != "" {
		parts = append(parts, "Role: "+exp.Role)
	}
	if exp.InterviewYear != 0 {
		parts = append(parts, fmt.Sprintf("Year: %d", exp.InterviewYear))
	}
	if exp.OfferStatus != "" {
		parts = append(parts, "Result: "+exp.OfferStatus)
	}
	if exp.DifficultyLevel != 0 {
		parts = append(parts, fmt.Sprintf("Difficulty: %d/5", exp.DifficultyLevel))
	}

	if exp.Tips != "" {
		if tips := Normalize(exp.Tips); tips != "" {
			parts = append(parts, "Tips: "+tips)
		}
	}

	for _, r := range exp.Rounds {
		line := fmt.Sprintf("Round %d: %s", r.RoundNumber, r.RoundType)
		if r.Description != "" {
			if desc := Normalize(r.Description); desc != "" {
				line += " - " + desc
			}
		}
		parts = append(parts, line)
	}

	for _, q := range exp.Questions {
		text := Normalize(q.QuestionText)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Question (%s, %s): %s", q.QuestionType, q.Topic, text))
		if q.AnswerApproach != "" {
			if approach := Normalize(q.AnswerApproach); approach != "" {
				parts = append(parts, "Approach: "+approach)
			}
		}
	}

	return strings.Join(parts, "\n")
}

// Snippet returns the leading portion of a document capped at max
// bytes, used for stored metadata and display.
func Snippet(doc string, max int) string {
	if max <= 0 || len(doc) <= max {
		return doc
	}
	return doc[:max]
}
