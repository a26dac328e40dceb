package repodocs

import (
	"fmt"
	"strings"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
)

const (
	maxFiles        = 60
	maxFileChars    = 4000
	maxSummaryChars = 12000

	truncationMarker = "\n...[truncated]"
)

// PathSummary pairs one file path with its generated summary.
type PathSummary struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// truncate caps text at maxChars code points, never splitting a rune.
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + truncationMarker
}

func fileSummaryPrompt(path, content string) string {
	return fmt.Sprintf(`You are an expert technical writer.
Summarize the purpose of this file for a repo-level documentation system.
Keep it concise (3-6 sentences). Mention key functions, classes, or configs.

File path: %s
File content:
%s`, path, content)
}

// repoDocPrompt assembles the aggregate generation prompt. The formatted
// summary blocks are truncated as a whole, so entries past the budget can
// be dropped mid-line.
func repoDocPrompt(style string, summaries []PathSummary, complexity *int) string {
	var complexityHint string
	if complexity != nil {
		c := clampComplexity(*complexity)
		complexityHint = fmt.Sprintf(" Target complexity: %d/100.", c)
	}

	var instruction string
	switch style {
	case models.StylePlainText:
		instruction = "Write concise plain-English documentation for the entire repository." +
			" Provide a short overview, main components, and usage notes."
	case models.StyleResearch:
		instruction = "Write formal academic-style documentation with section headings." +
			" Use passive voice and technical precision."
	case models.StyleLatex:
		instruction = "Return a LaTeX document body (no Markdown)." +
			" Use \\section and \\subsection for structure."
	default:
		instruction = "Write technical documentation for the repository."
	}

	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "File: %s\nSummary: %s\n\n", s.Path, s.Summary)
	}
	formatted := truncate(strings.TrimSuffix(b.String(), "\n"), maxSummaryChars)

	return fmt.Sprintf(`You are an expert technical writer.%s
%s
Base your response strictly on the file summaries below.

File summaries:
%s`, complexityHint, instruction, formatted)
}

func clampComplexity(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
