package docs

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.DocumentationModel{}))
	return db
}

type fakeCommitHost struct {
	detail *github.CommitDetail
	calls  int
}

func (h *fakeCommitHost) GetCommit(ctx context.Context, fullName, sha string) (*github.CommitDetail, error) {
	h.calls++
	return h.detail, nil
}

type countingGen struct {
	calls int
}

func (g *countingGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return fmt.Sprintf("generated-%d", g.calls), nil
}

func testDetail() *github.CommitDetail {
	return &github.CommitDetail{
		SHA:        "abc1234def",
		Message:    "fix parser edge case",
		AuthorName: "octocat",
		Date:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Additions:  10,
		Deletions:  2,
		Files: []github.CommitFile{
			{Filename: "parser.go", Additions: 10, Deletions: 2, Patch: "@@ -1 +1 @@"},
		},
	}
}

func TestGenerateAllStylesAndCache(t *testing.T) {
	db := newTestDB(t)
	gen := &countingGen{}
	host := &fakeCommitHost{detail: testDetail()}
	svc := NewService(db, gen)

	in := GenerateInput{
		UserID:       "user-1",
		RepoFullName: "octocat/demo",
		CommitSHA:    "abc1234def",
	}

	result, err := svc.Generate(context.Background(), host, in)
	require.NoError(t, err)
	assert.Equal(t, "abc1234", result.CommitShortSHA)
	assert.Equal(t, "demo", result.RepoName)
	assert.NotEmpty(t, result.PlainText)
	assert.NotEmpty(t, result.ResearchStyle)
	assert.NotEmpty(t, result.Latex)
	assert.Equal(t, 3, gen.calls)

	var rows int64
	require.NoError(t, db.Model(&models.DocumentationModel{}).Count(&rows).Error)
	assert.EqualValues(t, 3, rows)

	// fully cached second call: no commit fetch, no generation
	second, err := svc.Generate(context.Background(), host, in)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, 1, host.calls)
	assert.Equal(t, result.PlainText, second.PlainText)
}

func TestGenerateSingleStyle(t *testing.T) {
	db := newTestDB(t)
	gen := &countingGen{}
	host := &fakeCommitHost{detail: testDetail()}
	svc := NewService(db, gen)

	result, err := svc.Generate(context.Background(), host, GenerateInput{
		UserID:       "user-1",
		RepoFullName: "octocat/demo",
		CommitSHA:    "abc1234def",
		Style:        models.StyleResearch,
	})
	require.NoError(t, err)
	assert.Empty(t, result.PlainText)
	assert.NotEmpty(t, result.ResearchStyle)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateForceRegenerates(t *testing.T) {
	db := newTestDB(t)
	gen := &countingGen{}
	host := &fakeCommitHost{detail: testDetail()}
	svc := NewService(db, gen)

	in := GenerateInput{
		UserID:       "user-1",
		RepoFullName: "octocat/demo",
		CommitSHA:    "abc1234def",
		Style:        models.StylePlainText,
	}
	first, err := svc.Generate(context.Background(), host, in)
	require.NoError(t, err)

	in.Force = true
	second, err := svc.Generate(context.Background(), host, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.PlainText, second.PlainText)
	assert.Equal(t, 2, gen.calls)

	// still one cache row per style key
	var rows int64
	require.NoError(t, db.Model(&models.DocumentationModel{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestGenerateRejectsUnknownStyle(t *testing.T) {
	svc := NewService(newTestDB(t), &countingGen{})
	_, err := svc.Generate(context.Background(), &fakeCommitHost{}, GenerateInput{
		UserID:       "user-1",
		RepoFullName: "octocat/demo",
		CommitSHA:    "abc1234def",
		Style:        "haiku",
	})
	assert.ErrorIs(t, err, ErrUnsupportedStyle)
}

func TestGenerateComplexityIsolatesCacheKey(t *testing.T) {
	db := newTestDB(t)
	gen := &countingGen{}
	host := &fakeCommitHost{detail: testDetail()}
	svc := NewService(db, gen)

	c50 := 50
	base := GenerateInput{
		UserID:       "user-1",
		RepoFullName: "octocat/demo",
		CommitSHA:    "abc1234def",
		Style:        models.StylePlainText,
	}

	_, err := svc.Generate(context.Background(), host, base)
	require.NoError(t, err)

	withComplexity := base
	withComplexity.Complexity = &c50
	_, err = svc.Generate(context.Background(), host, withComplexity)
	require.NoError(t, err)

	var rows int64
	require.NoError(t, db.Model(&models.DocumentationModel{}).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
}

func TestBuildCommitContext(t *testing.T) {
	ctx := buildCommitContext(testDetail())
	assert.Contains(t, ctx, "Commit message: fix parser edge case")
	assert.Contains(t, ctx, "Author: octocat")
	assert.Contains(t, ctx, "Stats: +10 -2 (1 files)")
	assert.Contains(t, ctx, "- parser.go (+10/-2)")
	assert.Contains(t, ctx, "@@ -1 +1 @@")
}

func TestBuildCommitContextTruncatesLargePatch(t *testing.T) {
	detail := testDetail()
	detail.Files[0].Patch = strings.Repeat("p", maxPatchChars+100)
	ctx := buildCommitContext(detail)
	assert.Contains(t, ctx, truncationMarker)
	assert.LessOrEqual(t, len(ctx), maxContextChars+len(truncationMarker))
}

func TestBuildCommitContextKeepsMultibytePatchValid(t *testing.T) {
	detail := testDetail()
	detail.Files[0].Patch = strings.Repeat("世", maxPatchChars+100)
	ctx := buildCommitContext(detail)
	assert.Contains(t, ctx, truncationMarker)
	assert.True(t, utf8.ValidString(ctx))
	assert.Contains(t, ctx, strings.Repeat("世", maxPatchChars))
}
