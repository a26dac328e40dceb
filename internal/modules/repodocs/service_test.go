package repodocs

import (
	"context"
	"fmt"
	"testing"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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
	require.NoError(t, db.AutoMigrate(
		&models.UserModel{},
		&models.RepositoryModel{},
		&models.FileSummaryModel{},
		&models.RepoDocumentationModel{},
	))
	return db
}

func newTestRepo(t *testing.T, db *gorm.DB) *models.RepositoryModel {
	t.Helper()
	user := models.UserModel{GithubUsername: "octocat"}
	require.NoError(t, db.Create(&user).Error)
	repo := models.RepositoryModel{
		Name:           "demo",
		FullName:       "octocat/demo",
		OwnerID:        user.ID,
		DocsStyle:      models.StylePlainText,
		DocsComplexity: models.ComplexityUnset,
	}
	require.NoError(t, db.Create(&repo).Error)
	return &repo
}

type fakeFile struct {
	content string
	sha     string
}

type fakeHost struct {
	tree       []github.TreeEntry
	files      map[string]fakeFile
	fetchCalls int
}

func (h *fakeHost) ListTree(ctx context.Context, fullName, ref string) ([]github.TreeEntry, error) {
	return h.tree, nil
}

func (h *fakeHost) FetchFileContent(ctx context.Context, fullName, path, ref string) (string, string, error) {
	h.fetchCalls++
	f, ok := h.files[path]
	if !ok {
		return "", "", github.ErrNotFound
	}
	return f.content, f.sha, nil
}

func (h *fakeHost) setFile(path, content, sha string) {
	if h.files == nil {
		h.files = map[string]fakeFile{}
	}
	h.files[path] = fakeFile{content: content, sha: sha}
	for i, e := range h.tree {
		if e.Path == path {
			h.tree[i].SHA = sha
			return
		}
	}
	h.tree = append(h.tree, github.TreeEntry{Path: path, SHA: sha})
}

// countingGen returns a distinct deterministic string per call so tests
// can tell regenerated output from cached output.
type countingGen struct {
	calls int
}

func (g *countingGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return fmt.Sprintf("generated-%d", g.calls), nil
}

func newFixture(t *testing.T) (*Service, *gorm.DB, *models.RepositoryModel, *fakeHost, *countingGen) {
	db := newTestDB(t)
	repo := newTestRepo(t, db)
	gen := &countingGen{}
	host := &fakeHost{}
	host.setFile("a.py", "x", "sha-a1")
	host.setFile("b.md", "y", "sha-b1")
	return NewService(db, gen, zap.NewNop()), db, repo, host, gen
}

func TestFullSyncCreatesSummariesAndDocument(t *testing.T) {
	svc, db, repo, host, gen := newFixture(t)

	doc, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.NotEmpty(t, doc.Content)
	assert.Equal(t, models.StylePlainText, doc.Style)
	assert.Equal(t, models.ComplexityUnset, doc.Complexity)

	var summaries []models.FileSummaryModel
	require.NoError(t, db.Order("path").Find(&summaries).Error)
	require.Len(t, summaries, 2)
	assert.Equal(t, "a.py", summaries[0].Path)
	assert.Equal(t, "sha-a1", summaries[0].BlobSHA)
	assert.Equal(t, "b.md", summaries[1].Path)

	var docCount int64
	require.NoError(t, db.Model(&models.RepoDocumentationModel{}).Count(&docCount).Error)
	assert.EqualValues(t, 1, docCount)

	// one call per file, one for the aggregate
	assert.Equal(t, 3, gen.calls)
}

func TestFullSyncIdempotent(t *testing.T) {
	svc, _, repo, host, gen := newFixture(t)

	first, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)
	callsAfterFirst := gen.calls
	fetchesAfterFirst := host.fetchCalls

	second, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, gen.calls, "cache-hit run must make no AI calls")
	assert.Equal(t, fetchesAfterFirst, host.fetchCalls, "cache-hit run must fetch no content")
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.ID, second.ID)
}

func TestFullSyncForceResummarizesEverything(t *testing.T) {
	svc, _, repo, host, gen := newFixture(t)

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)
	callsAfterFirst := gen.calls

	_, err = svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, true, "")
	require.NoError(t, err)

	// two file summaries plus the aggregate, all regenerated
	assert.Equal(t, callsAfterFirst+3, gen.calls)
}

func TestFullSyncRegeneratesOnFingerprintChange(t *testing.T) {
	svc, db, repo, host, gen := newFixture(t)

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)
	callsAfterFirst := gen.calls

	host.setFile("b.md", "y changed", "sha-b2")

	_, err = svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	// only b.md re-summarized, plus the aggregate rebuild
	assert.Equal(t, callsAfterFirst+2, gen.calls)

	var row models.FileSummaryModel
	require.NoError(t, db.Where("path = ?", "b.md").First(&row).Error)
	assert.Equal(t, "sha-b2", row.BlobSHA)
}

func TestFullSyncExcludesFilteredPaths(t *testing.T) {
	svc, db, repo, host, _ := newFixture(t)
	host.setFile("node_modules/lib/index.js", "junk", "sha-n1")
	host.setFile("logo.png", "binary", "sha-p1")
	host.setFile("yarn.lock", "lock", "sha-l1")

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	var paths []string
	require.NoError(t, db.Model(&models.FileSummaryModel{}).Order("path").Pluck("path", &paths).Error)
	assert.Equal(t, []string{"a.py", "b.md"}, paths)
}

func TestFullSyncNoDocumentableFiles(t *testing.T) {
	db := newTestDB(t)
	repo := newTestRepo(t, db)
	svc := NewService(db, &countingGen{}, zap.NewNop())
	host := &fakeHost{}
	host.setFile("logo.png", "binary", "sha-p1")

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	assert.ErrorIs(t, err, ErrNoDocumentableFiles)

	var docCount int64
	require.NoError(t, db.Model(&models.RepoDocumentationModel{}).Count(&docCount).Error)
	assert.Zero(t, docCount)
}

func TestFullSyncSkipsUnfetchableFiles(t *testing.T) {
	svc, db, repo, host, _ := newFixture(t)
	host.tree = append(host.tree, github.TreeEntry{Path: "ghost.go", SHA: "sha-g1"})

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	var ghostCount int64
	require.NoError(t, db.Model(&models.FileSummaryModel{}).Where("path = ?", "ghost.go").Count(&ghostCount).Error)
	assert.Zero(t, ghostCount)
}

func TestCacheKeyIsolation(t *testing.T) {
	svc, db, repo, host, _ := newFixture(t)

	c50, c70 := 50, 70
	doc50, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, &c50, false, "")
	require.NoError(t, err)
	doc70, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, &c70, false, "")
	require.NoError(t, err)

	assert.NotEqual(t, doc50.ID, doc70.ID)

	var reread models.RepoDocumentationModel
	require.NoError(t, db.Where("repo_id = ? AND style = ? AND complexity = ?",
		repo.ID, models.StylePlainText, 50).First(&reread).Error)
	assert.Equal(t, doc50.Content, reread.Content)

	var docCount int64
	require.NoError(t, db.Model(&models.RepoDocumentationModel{}).Count(&docCount).Error)
	assert.EqualValues(t, 2, docCount)
}

func TestIncrementalSyncChangeAndRemove(t *testing.T) {
	svc, db, repo, host, gen := newFixture(t)

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	host.setFile("a.py", "x changed", "sha-a2")
	callsBefore := gen.calls

	err = svc.IncrementalSync(context.Background(), host, repo, []string{"a.py"}, []string{"b.md"}, "head-2")
	require.NoError(t, err)

	var paths []string
	require.NoError(t, db.Model(&models.FileSummaryModel{}).Order("path").Pluck("path", &paths).Error)
	assert.Equal(t, []string{"a.py"}, paths)

	var row models.FileSummaryModel
	require.NoError(t, db.Where("path = ?", "a.py").First(&row).Error)
	assert.Equal(t, "sha-a2", row.BlobSHA)
	assert.Equal(t, "head-2", row.LastCommitSHA)

	// one re-summary plus the aggregate rebuild
	assert.Equal(t, callsBefore+2, gen.calls)

	var doc models.RepoDocumentationModel
	require.NoError(t, db.Where("repo_id = ?", repo.ID).First(&doc).Error)
	assert.Equal(t, fmt.Sprintf("generated-%d", gen.calls), doc.Content)
}

func TestIncrementalSyncRemovingLastFileSkipsRebuild(t *testing.T) {
	svc, db, repo, host, gen := newFixture(t)

	doc, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)
	callsBefore := gen.calls

	err = svc.IncrementalSync(context.Background(), host, repo, nil, []string{"a.py", "b.md"}, "head-2")
	require.NoError(t, err)

	var summaryCount int64
	require.NoError(t, db.Model(&models.FileSummaryModel{}).Count(&summaryCount).Error)
	assert.Zero(t, summaryCount)

	assert.Equal(t, callsBefore, gen.calls, "empty summary set must not rebuild the aggregate")

	var kept models.RepoDocumentationModel
	require.NoError(t, db.Where("repo_id = ?", repo.ID).First(&kept).Error)
	assert.Equal(t, doc.Content, kept.Content, "stale document stays rather than being erased")
}

func TestIncrementalSyncUsesRepoSettings(t *testing.T) {
	svc, db, repo, host, _ := newFixture(t)

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.NoError(t, err)

	repo.DocsStyle = models.StyleResearch
	repo.DocsComplexity = 80
	require.NoError(t, db.Save(repo).Error)

	host.setFile("a.py", "x changed", "sha-a2")
	err = svc.IncrementalSync(context.Background(), host, repo, []string{"a.py"}, nil, "head-2")
	require.NoError(t, err)

	var doc models.RepoDocumentationModel
	require.NoError(t, db.Where("repo_id = ? AND style = ? AND complexity = ?",
		repo.ID, models.StyleResearch, 80).First(&doc).Error)
	assert.NotEmpty(t, doc.Content)
}

func TestFullSyncSurfacesSummaryLookupError(t *testing.T) {
	svc, db, repo, host, gen := newFixture(t)

	// break the summary table so the cache lookup fails with a real DB
	// error rather than record-not-found
	require.NoError(t, db.Migrator().DropTable(&models.FileSummaryModel{}))

	_, err := svc.FullSync(context.Background(), host, repo, models.StylePlainText, nil, false, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_summaries")
	assert.Zero(t, gen.calls, "a failed lookup must abort before any generation")
	assert.Zero(t, host.fetchCalls)
}

func TestResolveFullNameFromURL(t *testing.T) {
	full, err := resolveFullName(&models.RepositoryModel{URL: "https://github.com/octocat/demo/"})
	require.NoError(t, err)
	assert.Equal(t, "octocat/demo", full)

	_, err = resolveFullName(&models.RepositoryModel{URL: "https://example.com/x"})
	assert.ErrorIs(t, err, ErrMissingFullName)
}
