package docs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/ai"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"gorm.io/gorm"
)

const (
	maxContextChars = 4000
	maxPatchChars   = 800

	truncationMarker = "\n...[truncated]"
)

// ErrUnsupportedStyle is returned for a style outside the known set.
var ErrUnsupportedStyle = errors.New("unsupported style")

// CommitHost fetches commit details from the source host.
type CommitHost interface {
	GetCommit(ctx context.Context, fullName, sha string) (*github.CommitDetail, error)
}

// GenerateInput describes one per-commit documentation request.
type GenerateInput struct {
	UserID       string
	RepoFullName string
	CommitSHA    string
	Style        string // empty generates all styles
	Complexity   *int
	Force        bool
}

// Result carries the generated (or cached) documentation per style.
type Result struct {
	CommitSHA      string    `json:"commit_sha"`
	CommitShortSHA string    `json:"commit_short_sha"`
	RepoName       string    `json:"repo_name"`
	RepoFullName   string    `json:"repo_full_name"`
	GeneratedAt    time.Time `json:"generated_at"`
	PlainText      string    `json:"plain_text,omitempty"`
	ResearchStyle  string    `json:"research_style,omitempty"`
	Latex          string    `json:"latex,omitempty"`
}

// Service generates commit documentation and caches it per
// (user, repo, commit, style, complexity).
type Service struct {
	db  *gorm.DB
	gen ai.TextGenerator
}

func NewService(db *gorm.DB, gen ai.TextGenerator) *Service {
	return &Service{db: db, gen: gen}
}

func allStyles() []string {
	return []string{models.StylePlainText, models.StyleResearch, models.StyleLatex}
}

// Generate returns documentation for a commit in the requested style(s),
// serving from cache unless force is set or the cache is incomplete.
func (s *Service) Generate(ctx context.Context, host CommitHost, in GenerateInput) (*Result, error) {
	styles := allStyles()
	if in.Style != "" {
		if !models.ValidStyle(in.Style) {
			return nil, ErrUnsupportedStyle
		}
		styles = []string{in.Style}
	}

	complexity := models.ComplexityUnset
	if in.Complexity != nil {
		complexity = *in.Complexity
	}

	cached := make(map[string]*models.DocumentationModel, len(styles))
	for _, style := range styles {
		var row models.DocumentationModel
		err := s.db.Where(
			"user_id = ? AND repo_full_name = ? AND commit_sha = ? AND style = ? AND complexity = ?",
			in.UserID, in.RepoFullName, in.CommitSHA, style, complexity,
		).First(&row).Error
		if err == nil {
			cached[style] = &row
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	result := &Result{
		CommitSHA:      in.CommitSHA,
		CommitShortSHA: shortSHA(in.CommitSHA),
		RepoName:       repoName(in.RepoFullName),
		RepoFullName:   in.RepoFullName,
		GeneratedAt:    time.Now().UTC(),
	}

	if !in.Force && len(cached) == len(styles) {
		latest := time.Time{}
		for style, row := range cached {
			result.setStyle(style, row.Content)
			at := row.UpdatedAt
			if at.IsZero() {
				at = row.CreatedAt
			}
			if at.After(latest) {
				latest = at
			}
		}
		if !latest.IsZero() {
			result.GeneratedAt = latest.UTC()
		}
		return result, nil
	}

	detail, err := host.GetCommit(ctx, in.RepoFullName, in.CommitSHA)
	if err != nil {
		return nil, err
	}
	commitContext := buildCommitContext(detail)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, style := range styles {
			row := cached[style]
			if row != nil && !in.Force {
				result.setStyle(style, row.Content)
				continue
			}

			content, genErr := s.gen.Generate(ctx, commitDocPrompt(style, commitContext, in.Complexity))
			if genErr != nil {
				return genErr
			}

			if row != nil {
				row.Content = content
				if err := tx.Save(row).Error; err != nil {
					return err
				}
			} else {
				row = &models.DocumentationModel{
					UserID:       in.UserID,
					RepoFullName: in.RepoFullName,
					CommitSHA:    in.CommitSHA,
					Style:        style,
					Complexity:   complexity,
					Content:      content,
				}
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			}
			result.setStyle(style, content)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Result) setStyle(style, content string) {
	switch style {
	case models.StylePlainText:
		r.PlainText = content
	case models.StyleResearch:
		r.ResearchStyle = content
	case models.StyleLatex:
		r.Latex = content
	}
}

func shortSHA(sha string) string {
	if len(sha) <= 7 {
		return sha
	}
	return sha[:7]
}

func repoName(fullName string) string {
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

// truncate caps text at maxChars code points, never splitting a rune.
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + truncationMarker
}

func buildCommitContext(detail *github.CommitDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Commit message: %s\n", detail.Message)
	fmt.Fprintf(&b, "Author: %s\n", detail.AuthorName)
	fmt.Fprintf(&b, "Date: %s\n", detail.Date.Format(time.RFC3339))
	fmt.Fprintf(&b, "Stats: +%d -%d (%d files)\n\n", detail.Additions, detail.Deletions, len(detail.Files))
	b.WriteString("Files changed:\n")

	for _, f := range detail.Files {
		fmt.Fprintf(&b, "- %s (+%d/-%d)\n", f.Filename, f.Additions, f.Deletions)
		if f.Patch != "" {
			b.WriteString(truncate(f.Patch, maxPatchChars))
			b.WriteString("\n\n")
		}
	}

	return truncate(strings.TrimRight(b.String(), "\n"), maxContextChars)
}

func commitDocPrompt(style, commitContext string, complexity *int) string {
	var complexityHint string
	if complexity != nil {
		c := *complexity
		if c < 0 {
			c = 0
		}
		if c > 100 {
			c = 100
		}
		complexityHint = fmt.Sprintf(" Target complexity: %d/100.", c)
	}

	var instruction string
	switch style {
	case models.StylePlainText:
		instruction = "Write concise plain-English documentation for the commit." +
			" Provide a short overview and bullet list of key changes."
	case models.StyleResearch:
		instruction = "Write formal academic-style documentation with section headings." +
			" Use passive voice and technical precision."
	case models.StyleLatex:
		instruction = "Return a LaTeX document body (no Markdown)." +
			" Use \\section and \\subsection for structure."
	default:
		instruction = "Write technical documentation."
	}

	return fmt.Sprintf(`You are an expert technical writer.%s
%s
Base your response strictly on the commit context below.

Commit context:
%s`, complexityHint, instruction, commitContext)
}
