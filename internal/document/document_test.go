package document

import (
	"strings"
	"testing"

	"github.com/placementarchive/expindex/internal/store"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "collapses whitespace",
			input:    "practice  DSA\n\tevery   day",
			expected: "practice DSA every day",
		},
		{
			name:     "strips special characters",
			input:    "solve @200+ problems <fast>!",
			expected: "solve 200 problems fast!",
		},
		{
			name:     "keeps basic punctuation",
			input:    "Arrays, trees. Graphs? Yes - and DP!",
			expected: "Arrays, trees. Graphs? Yes - and DP!",
		},
		{
			name:     "trims result",
			input:    "   padded   ",
			expected: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func fullExperience() *store.Experience {
	return &store.Experience{
		ID:              "exp-1",
		CompanyName:     "Acme",
		Role:            "SDE",
		InterviewYear:   2023,
		OfferStatus:     "accepted",
		DifficultyLevel: 4,
		Tips:            "Focus on  fundamentals.",
		Rounds: []store.InterviewRound{
			{RoundNumber: 1, RoundType: "online assessment", Description: "Two coding problems."},
			{RoundNumber: 2, RoundType: "technical"},
		},
		Questions: []store.Question{
			{QuestionText: "Reverse a linked list.", QuestionType: "coding", Topic: "linked lists", AnswerApproach: "Iterate with three pointers."},
		},
	}
}

func TestBuildSectionOrder(t *testing.T) {
	doc := Build(fullExperience())

	lines := strings.Split(doc, "\n")
	want := []string{
		"Company: Acme",
		"Role: SDE",
		"Year: 2023",
		"Result: accepted",
		"Difficulty: 4/5",
		"Tips: Focus on fundamentals.",
		"Round 1: online assessment - Two coding problems.",
		"Round 2: technical",
		"Question (coding, linked lists): Reverse a linked list.",
		"Approach: Iterate with three pointers.",
	}

	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), doc)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build(fullExperience())
	b := Build(fullExperience())
	if a != b {
		t.Error("Build produced different output for identical input")
	}
}

func TestBuildOmitsMissingFields(t *testing.T) {
	doc := Build(&store.Experience{
		ID:            "exp-2",
		CompanyName:   "Globex",
		Role:          "Analyst",
		InterviewYear: 2024,
	})

	for _, forbidden := range []string{"Result:", "Difficulty:", "Tips:", "Unknown", "Round", "Question"} {
		if strings.Contains(doc, forbidden) {
			t.Errorf("document contains %q for a record without that field:\n%s", forbidden, doc)
		}
	}
}

func TestBuildSkipsEmptyQuestionText(t *testing.T) {
	exp := fullExperience()
	exp.Questions = append(exp.Questions, store.Question{QuestionText: "   ", QuestionType: "coding"})

	doc := Build(exp)
	if got := strings.Count(doc, "Question ("); got != 1 {
		t.Errorf("got %d question blocks, want 1", got)
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet("short", 500); got != "short" {
		t.Errorf("Snippet() = %q, want unchanged input", got)
	}
	long := strings.Repeat("x", 600)
	if got := Snippet(long, 500); len(got) != 500 {
		t.Errorf("Snippet() length = %d, want 500", len(got))
	}
}
