package repodocs

import (
	"context"
	"errors"
	"strings"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/ai"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoDocumentableFiles means every tree entry was excluded or
	// unreadable, leaving nothing to document.
	ErrNoDocumentableFiles = errors.New("no text files found to document")

	// ErrMissingFullName means the repository row carries neither a
	// full name nor a URL it could be recovered from.
	ErrMissingFullName = errors.New("repository full name is missing")
)

// Host is the source-hosting collaborator: tree listing and file fetch
// for one authenticated user.
type Host interface {
	ListTree(ctx context.Context, fullName, ref string) ([]github.TreeEntry, error)
	FetchFileContent(ctx context.Context, fullName, path, ref string) (content, sha string, err error)
}

// Service synchronizes per-file summaries and the aggregate repository
// document. All mutations of one sync run commit as a single transaction.
type Service struct {
	db  *gorm.DB
	gen ai.TextGenerator
	log *zap.Logger
}

func NewService(db *gorm.DB, gen ai.TextGenerator, log *zap.Logger) *Service {
	return &Service{db: db, gen: gen, log: log}
}

// resolveFullName returns the repository's owner/name identifier, falling
// back to parsing the stored URL for rows synced before full_name existed.
func resolveFullName(repo *models.RepositoryModel) (string, error) {
	if repo.FullName != "" {
		return repo.FullName, nil
	}
	if idx := strings.Index(repo.URL, "github.com/"); idx >= 0 {
		full := strings.Trim(repo.URL[idx+len("github.com/"):], "/")
		if full != "" {
			return full, nil
		}
	}
	return "", ErrMissingFullName
}

// FullSync walks the repository tree, re-summarizes files whose blob SHA
// changed (or all files when force is set), and regenerates the aggregate
// document for (repo, style, complexity).
func (s *Service) FullSync(ctx context.Context, host Host, repo *models.RepositoryModel, style string, complexity *int, force bool, ref string) (*models.RepoDocumentationModel, error) {
	fullName, err := resolveFullName(repo)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		ref = "HEAD"
	}

	tree, err := host.ListTree(ctx, fullName, ref)
	if err != nil {
		return nil, err
	}

	var doc *models.RepoDocumentationModel
	err = s.db.Transaction(func(tx *gorm.DB) error {
		summaries := make([]PathSummary, 0, maxFiles)
		resummarized := 0
		for _, entry := range tree {
			if entry.Path == "" || shouldSkipPath(entry.Path) {
				continue
			}
			if len(summaries) >= maxFiles {
				break
			}

			var existing models.FileSummaryModel
			lookupErr := tx.Where("repo_id = ? AND path = ?", repo.ID, entry.Path).
				First(&existing).Error
			if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return lookupErr
			}
			found := lookupErr == nil
			if found && existing.BlobSHA == entry.SHA && !force {
				summaries = append(summaries, PathSummary{Path: entry.Path, Summary: existing.Summary})
				continue
			}

			content, sha, fetchErr := host.FetchFileContent(ctx, fullName, entry.Path, ref)
			if fetchErr != nil || content == "" {
				// unreadable files are skipped, not fatal
				continue
			}
			summary, genErr := s.gen.Generate(ctx, fileSummaryPrompt(entry.Path, truncate(content, maxFileChars)))
			if genErr != nil {
				return genErr
			}
			if sha == "" {
				sha = entry.SHA
			}

			if found {
				existing.Summary = summary
				existing.BlobSHA = sha
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
			} else {
				row := models.FileSummaryModel{
					RepoID:  repo.ID,
					Path:    entry.Path,
					Summary: summary,
					BlobSHA: sha,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			summaries = append(summaries, PathSummary{Path: entry.Path, Summary: summary})
			resummarized++
		}

		if len(summaries) == 0 {
			return ErrNoDocumentableFiles
		}

		// Fully cache-hit run: reuse the stored aggregate instead of
		// regenerating it.
		if resummarized == 0 && !force {
			var cached models.RepoDocumentationModel
			if tx.Where("repo_id = ? AND style = ? AND complexity = ?",
				repo.ID, style, complexityValue(complexity)).First(&cached).Error == nil {
				doc = &cached
				return nil
			}
		}

		content, genErr := s.gen.Generate(ctx, repoDocPrompt(style, summaries, complexity))
		if genErr != nil {
			return genErr
		}
		upserted, upErr := upsertRepoDoc(tx, repo.ID, style, complexityValue(complexity), content)
		if upErr != nil {
			return upErr
		}
		doc = upserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("repo documentation synced",
		zap.String("repo", fullName), zap.String("style", style))
	return doc, nil
}

// IncrementalSync applies a push event's change set: removed paths lose
// their summaries unconditionally, changed paths are re-summarized at
// headRef, then the aggregate document is rebuilt from the complete
// current summary set using the repository's own docs settings.
func (s *Service) IncrementalSync(ctx context.Context, host Host, repo *models.RepositoryModel, changed, removed []string, headRef string) error {
	fullName, err := resolveFullName(repo)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, p := range removed {
			// hard delete so the (repo, path) unique index allows the
			// path to come back in a later push
			if err := tx.Unscoped().Where("repo_id = ? AND path = ?", repo.ID, p).
				Delete(&models.FileSummaryModel{}).Error; err != nil {
				return err
			}
		}

		for _, p := range changed {
			if shouldSkipPath(p) {
				continue
			}
			content, sha, fetchErr := host.FetchFileContent(ctx, fullName, p, headRef)
			if fetchErr != nil || content == "" {
				continue
			}
			summary, genErr := s.gen.Generate(ctx, fileSummaryPrompt(p, truncate(content, maxFileChars)))
			if genErr != nil {
				return genErr
			}

			var existing models.FileSummaryModel
			lookupErr := tx.Where("repo_id = ? AND path = ?", repo.ID, p).First(&existing).Error
			if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return lookupErr
			}
			if lookupErr == nil {
				existing.Summary = summary
				existing.BlobSHA = sha
				existing.LastCommitSHA = headRef
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
			} else {
				row := models.FileSummaryModel{
					RepoID:        repo.ID,
					Path:          p,
					Summary:       summary,
					BlobSHA:       sha,
					LastCommitSHA: headRef,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}

		var rows []models.FileSummaryModel
		if err := tx.Where("repo_id = ?", repo.ID).
			Order("path").Limit(maxFiles).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			// the last tracked file was removed; keep the old document
			return nil
		}

		summaries := make([]PathSummary, 0, len(rows))
		for _, row := range rows {
			summaries = append(summaries, PathSummary{Path: row.Path, Summary: row.Summary})
		}

		style := repo.DocsStyle
		if style == "" {
			style = models.StylePlainText
		}
		var complexity *int
		if repo.DocsComplexity != models.ComplexityUnset {
			c := repo.DocsComplexity
			complexity = &c
		}

		content, genErr := s.gen.Generate(ctx, repoDocPrompt(style, summaries, complexity))
		if genErr != nil {
			return genErr
		}
		_, err := upsertRepoDoc(tx, repo.ID, style, complexityValue(complexity), content)
		return err
	})
}

// GetLatest returns the newest aggregate document for a repository,
// optionally restricted to one style.
func (s *Service) GetLatest(repoID, style string) (*models.RepoDocumentationModel, error) {
	var doc models.RepoDocumentationModel
	q := s.db.Where("repo_id = ?", repoID)
	if style != "" {
		q = q.Where("style = ?", style)
	}
	if err := q.Order("updated_at DESC").First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func complexityValue(c *int) int {
	if c == nil {
		return models.ComplexityUnset
	}
	return clampComplexity(*c)
}

func upsertRepoDoc(tx *gorm.DB, repoID, style string, complexity int, content string) (*models.RepoDocumentationModel, error) {
	var doc models.RepoDocumentationModel
	err := tx.Where("repo_id = ? AND style = ? AND complexity = ?", repoID, style, complexity).
		First(&doc).Error
	switch {
	case err == nil:
		doc.Content = content
		if err := tx.Save(&doc).Error; err != nil {
			return nil, err
		}
		return &doc, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		doc = models.RepoDocumentationModel{
			RepoID:     repoID,
			Style:      style,
			Complexity: complexity,
			Content:    content,
		}
		if err := tx.Create(&doc).Error; err != nil {
			return nil, err
		}
		return &doc, nil
	default:
		return nil, err
	}
}
