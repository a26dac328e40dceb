package commits

import (
	"sort"
	"strconv"

	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 20
	maxPerPage     = 50
	perRepoLimit   = 5
)

type Handler struct {
	db  *gorm.DB
	box *secret.Box
}

func NewHandler(db *gorm.DB, box *secret.Box) *Handler {
	return &Handler{db: db, box: box}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/commits", authMW)
	g.GET("", h.list)
}

// GET /commits?repo_full_name=&per_page=  [auth]
//
// With repo_full_name set, lists that repository's recent commits.
// Without it, merges recent commits across the user's monitored
// repositories (or a handful of their most recent repos when nothing is
// monitored), sorted by commit time.
func (h *Handler) list(c *gin.Context) {
	user := middleware.CurrentUser(c)
	token, err := user.AccessToken(h.box)
	if err != nil || token == "" {
		response.Unauthorized(c, "missing GitHub access token")
		return
	}

	perPage := defaultPerPage
	if raw := c.Query("per_page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			perPage = n
		}
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	ctx := c.Request.Context()
	gh := github.NewClient(ctx, token)

	if fullName := c.Query("repo_full_name"); fullName != "" {
		commits, err := gh.ListCommits(ctx, fullName, perPage, 1)
		if err != nil {
			response.BadGateway(c, err.Error())
			return
		}
		response.OK(c, gin.H{"commits": commits})
		return
	}

	var monitored []models.RepositoryModel
	if err := h.db.Where("owner_id = ? AND is_active = ?", user.ID, true).Find(&monitored).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	var fullNames []string
	maxRepos := perRepoLimit
	if len(monitored) > 0 {
		maxRepos = 10
		for _, r := range monitored {
			if r.FullName != "" {
				fullNames = append(fullNames, r.FullName)
			}
		}
	} else {
		ghRepos, err := gh.UserRepos(ctx)
		if err != nil {
			response.BadGateway(c, err.Error())
			return
		}
		for _, r := range ghRepos {
			if r.FullName != "" {
				fullNames = append(fullNames, r.FullName)
			}
		}
	}
	if len(fullNames) > maxRepos {
		fullNames = fullNames[:maxRepos]
	}

	perRepo := perPage
	if perRepo > perRepoLimit {
		perRepo = perRepoLimit
	}

	combined := make([]github.Commit, 0, len(fullNames)*perRepo)
	for _, fullName := range fullNames {
		commits, err := gh.ListCommits(ctx, fullName, perRepo, 1)
		if err != nil {
			// one unreachable repo should not break the feed
			continue
		}
		combined = append(combined, commits...)
	}

	sort.Slice(combined, func(i, j int) bool {
		return combined[i].Timestamp.After(combined[j].Timestamp)
	})
	if len(combined) > perPage {
		combined = combined[:perPage]
	}

	response.OK(c, gin.H{"commits": combined})
}
