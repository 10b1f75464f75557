package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

// The answer composer is template based: it classifies the question
// by keyword and assembles an answer from source snippets. Swapping
// it for an LLM call would only replace this file.

var (
	questionRe = regexp.MustCompile(`Question[^:]*:\s*([^\n]+)`)
	roundRe    = regexp.MustCompile(`Round\s*\d+[^:]*:\s*([^\n]+)`)
	diffRe     = regexp.MustCompile(`Difficulty:\s*(\d)/5`)
	tipsRe     = regexp.MustCompile(`Tips:\s*([^\n]+)`)
)

const noResultsAnswer = "I couldn't find any relevant interview experiences matching your query. " +
	"Try broadening your search or asking about specific companies or topics."

func composeAnswer(query string, sources []Source) string {
	if len(sources) == 0 {
		return noResultsAnswer
	}

	q := strings.ToLower(query)
	var body string
	switch {
	case containsAny(q, "dsa", "data structure", "algorithm", "leetcode", "coding question"):
		body = dsaAnswer(sources)
	case containsAny(q, "process", "rounds", "pattern", "stages"):
		body = processAnswer(sources)
	case containsAny(q, "difficult", "hard", "easy", "tough"):
		body = difficultyAnswer(sources)
	case containsAny(q, "tips", "prepare", "advice", "suggest"):
		body = tipsAnswer(sources)
	default:
		body = generalAnswer(sources)
	}

	return body + attribution(sources)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func generalAnswer(sources []Source) string {
	var b strings.Builder
	b.WriteString("Based on interview experiences from your campus:\n")
	for _, s := range limit(sources, 3) {
		snippet := s.Snippet
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		fmt.Fprintf(&b, "\n**%s (%s, %d):**\n%s\n", s.Company, s.Role, s.Year, snippet)
	}
	return b.String()
}

func dsaAnswer(sources []Source) string {
	var b strings.Builder
	b.WriteString("**DSA Questions from Campus Interviews:**\n\n")
	found := false
	for _, s := range limit(sources, 5) {
		questions := questionRe.FindAllStringSubmatch(s.Snippet, 3)
		if len(questions) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&b, "**%s:**\n", s.Company)
		for _, q := range questions {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(q[1]))
		}
		b.WriteString("\n")
	}
	if !found {
		b.WriteString("Common topics include: Arrays, Strings, Trees, Graphs, Dynamic Programming, and System Design.\n")
	}
	return b.String()
}

func processAnswer(sources []Source) string {
	var b strings.Builder
	b.WriteString("**Interview Process Overview:**\n\n")
	for _, s := range limit(sources, 3) {
		fmt.Fprintf(&b, "**%s - %s:**\n", s.Company, s.Role)
		rounds := roundRe.FindAllStringSubmatch(s.Snippet, -1)
		if len(rounds) == 0 {
			b.WriteString("- Technical rounds with coding and system design\n")
		}
		for _, r := range rounds {
			fmt.Fprintf(&b, "- %s\n", strings.TrimSpace(r[1]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func difficultyAnswer(sources []Source) string {
	type rated struct {
		company string
		level   int
	}
	var ratings []rated
	for _, s := range sources {
		if m := diffRe.FindStringSubmatch(s.Snippet); m != nil {
			ratings = append(ratings, rated{company: s.Company, level: int(m[1][0] - '0')})
		}
	}

	var b strings.Builder
	b.WriteString("**Difficulty Assessment:**\n\n")
	if len(ratings) == 0 {
		b.WriteString("Difficulty levels vary. Most technical interviews are rated Medium to Hard.\n")
		return b.String()
	}

	total := 0
	for _, r := range ratings {
		total += r.level
	}
	fmt.Fprintf(&b, "Average difficulty: **%.1f/5**\n\n", float64(total)/float64(len(ratings)))

	labels := []string{"Easy", "Easy-Medium", "Medium", "Medium-Hard", "Hard"}
	for _, r := range ratings[:min(len(ratings), 5)] {
		label := "Medium"
		if r.level >= 1 && r.level <= 5 {
			label = labels[r.level-1]
		}
		fmt.Fprintf(&b, "- %s: %d/5 (%s)\n", r.company, r.level, label)
	}
	return b.String()
}

func tipsAnswer(sources []Source) string {
	var b strings.Builder
	b.WriteString("**Preparation Tips from Successful Candidates:**\n\n")
	found := false
	for _, s := range limit(sources, 5) {
		m := tipsRe.FindStringSubmatch(s.Snippet)
		if m == nil {
			continue
		}
		found = true
		tip := strings.TrimSpace(m[1])
		if len(tip) > 300 {
			tip = tip[:300]
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", s.Company, tip)
	}
	if !found {
		b.WriteString("Common recommendations:\n" +
			"- Practice DSA on LeetCode/HackerRank (200+ problems)\n" +
			"- Review core CS fundamentals\n" +
			"- Prepare behavioral questions with STAR method\n" +
			"- Research company-specific interview patterns\n" +
			"- Mock interviews are highly recommended\n")
	}
	return b.String()
}

// attribution appends the evidence footer: source count, up to three
// distinct companies in first-seen order, and the year span.
func attribution(sources []Source) string {
	var companies []string
	seen := make(map[string]bool)
	minYear, maxYear := 0, 0
	for _, s := range sources {
		if s.Company != "" && !seen[s.Company] {
			seen[s.Company] = true
			companies = append(companies, s.Company)
		}
		if s.Year != 0 {
			if minYear == 0 || s.Year < minYear {
				minYear = s.Year
			}
			if s.Year > maxYear {
				maxYear = s.Year
			}
		}
	}
	if len(companies) > 3 {
		companies = companies[:3]
	}

	footer := fmt.Sprintf("\n\nBased on %d interview experience(s) from %s", len(sources), strings.Join(companies, ", "))
	if minYear != 0 {
		footer += fmt.Sprintf(" (%d-%d)", minYear, maxYear)
	}
	return footer
}

func limit(sources []Source, n int) []Source {
	if len(sources) > n {
		return sources[:n]
	}
	return sources
}
