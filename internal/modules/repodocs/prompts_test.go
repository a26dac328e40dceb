package repodocs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde"+truncationMarker, truncate("abcdefgh", 5))
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	// 3000 characters but ~6000 bytes; within the budget, must pass through.
	accented := strings.Repeat("é", 3000)
	assert.Equal(t, accented, truncate(accented, maxFileChars))

	// over the budget; the cut must land on a rune boundary
	wide := strings.Repeat("世", 1400)
	out := truncate(wide, 1000)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("世", 1000)+truncationMarker, out)
}

func TestRepoDocPromptComplexityHint(t *testing.T) {
	summaries := []PathSummary{{Path: "a.py", Summary: "does x"}}

	withoutHint := repoDocPrompt(models.StylePlainText, summaries, nil)
	assert.NotContains(t, withoutHint, "Target complexity")

	c := 42
	withHint := repoDocPrompt(models.StylePlainText, summaries, &c)
	assert.Contains(t, withHint, "Target complexity: 42/100.")

	over := 250
	clamped := repoDocPrompt(models.StylePlainText, summaries, &over)
	assert.Contains(t, clamped, "Target complexity: 100/100.")

	under := -5
	floored := repoDocPrompt(models.StylePlainText, summaries, &under)
	assert.Contains(t, floored, "Target complexity: 0/100.")
}

func TestRepoDocPromptStyles(t *testing.T) {
	summaries := []PathSummary{{Path: "a.py", Summary: "does x"}}

	plain := repoDocPrompt(models.StylePlainText, summaries, nil)
	assert.Contains(t, plain, "plain-English documentation")

	research := repoDocPrompt(models.StyleResearch, summaries, nil)
	assert.Contains(t, research, "academic-style documentation")

	latex := repoDocPrompt(models.StyleLatex, summaries, nil)
	assert.Contains(t, latex, "LaTeX document body")
}

func TestRepoDocPromptFormatsSummaries(t *testing.T) {
	summaries := []PathSummary{
		{Path: "a.py", Summary: "does x"},
		{Path: "b.md", Summary: "explains y"},
	}
	prompt := repoDocPrompt(models.StylePlainText, summaries, nil)
	assert.Contains(t, prompt, "File: a.py\nSummary: does x")
	assert.Contains(t, prompt, "File: b.md\nSummary: explains y")
}

func TestRepoDocPromptTruncatesWholeBlock(t *testing.T) {
	big := strings.Repeat("s", maxSummaryChars)
	summaries := []PathSummary{
		{Path: "first.go", Summary: big},
		{Path: "second.go", Summary: "never fits"},
	}
	prompt := repoDocPrompt(models.StylePlainText, summaries, nil)
	assert.Contains(t, prompt, truncationMarker)
	assert.NotContains(t, prompt, "second.go")
}

func TestFileSummaryPrompt(t *testing.T) {
	prompt := fileSummaryPrompt("src/main.go", "package main")
	assert.Contains(t, prompt, "File path: src/main.go")
	assert.Contains(t, prompt, "package main")
}
