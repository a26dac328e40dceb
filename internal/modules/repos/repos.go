package repos

import (
	"errors"

	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/pagination"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SyncForUser mirrors the user's GitHub repository list into the local
// table: missing repos are created, existing rows get their full name
// backfilled and last-updated refreshed. Rows are never deleted here.
func SyncForUser(db *gorm.DB, userID string, ghRepos []github.Repo) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, r := range ghRepos {
			fullName := r.FullName
			if fullName == "" {
				fullName = r.Name
			}

			var existing models.RepositoryModel
			err := tx.Where("owner_id = ? AND full_name = ?", userID, fullName).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = tx.Where("owner_id = ? AND name = ?", userID, r.Name).First(&existing).Error
			}

			switch {
			case err == nil:
				updates := map[string]interface{}{
					"last_updated": r.UpdatedAt.Format("2006-01-02T15:04:05Z"),
				}
				if existing.FullName == "" {
					updates["full_name"] = fullName
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				row := models.RepositoryModel{
					Name:           r.Name,
					FullName:       fullName,
					URL:            r.HTMLURL,
					LastUpdated:    r.UpdatedAt.Format("2006-01-02T15:04:05Z"),
					OwnerID:        userID,
					DocsStyle:      models.StylePlainText,
					DocsComplexity: models.ComplexityUnset,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
}

type Handler struct {
	db  *gorm.DB
	box *secret.Box
}

func NewHandler(db *gorm.DB, box *secret.Box) *Handler {
	return &Handler{db: db, box: box}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/repos", authMW)
	g.GET("", h.list)
	g.POST("/sync", h.sync)
	g.PATCH("/:id/monitor", h.setMonitor)
	g.PATCH("/:id/docs-settings", h.setDocsSettings)
}

// GET /repos  [auth]
func (h *Handler) list(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	q := pagination.FromContext(c)

	tx := h.db.Model(&models.RepositoryModel{}).
		Where("owner_id = ?", userID).
		Order("last_updated DESC")

	var repos []models.RepositoryModel
	meta, err := pagination.Paginate(tx, q, &repos)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{
		"total_repos": meta.Total,
		"repos":       repos,
		"pagination":  meta,
	})
}

// POST /repos/sync  [auth]
func (h *Handler) sync(c *gin.Context) {
	user := middleware.CurrentUser(c)
	token, err := user.AccessToken(h.box)
	if err != nil || token == "" {
		response.Unauthorized(c, "missing GitHub access token")
		return
	}

	gh := github.NewClient(c.Request.Context(), token)
	ghRepos, err := gh.UserRepos(c.Request.Context())
	if err != nil {
		response.BadGateway(c, err.Error())
		return
	}
	if err := SyncForUser(h.db, user.ID, ghRepos); err != nil {
		response.InternalError(c, err)
		return
	}

	h.list(c)
}

func (h *Handler) findOwnRepo(c *gin.Context) (*models.RepositoryModel, bool) {
	userID := middleware.CurrentUserID(c)
	var repo models.RepositoryModel
	err := h.db.Where("id = ? AND owner_id = ?", c.Param("id"), userID).First(&repo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "repository not found")
		} else {
			response.InternalError(c, err)
		}
		return nil, false
	}
	return &repo, true
}

type monitorDTO struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// PATCH /repos/:id/monitor  [auth]
func (h *Handler) setMonitor(c *gin.Context) {
	var dto monitorDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	repo, ok := h.findOwnRepo(c)
	if !ok {
		return
	}
	if err := h.db.Model(repo).Update("is_active", *dto.IsActive).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	repo.IsActive = *dto.IsActive
	response.OK(c, repo)
}

type docsSettingsDTO struct {
	DocsActive *bool  `json:"docs_active"`
	Style      string `json:"style"`
	Complexity *int   `json:"complexity" binding:"omitempty,min=0,max=100"`
}

// PATCH /repos/:id/docs-settings  [auth]
func (h *Handler) setDocsSettings(c *gin.Context) {
	var dto docsSettingsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Style != "" && !models.ValidStyle(dto.Style) {
		response.BadRequest(c, "unsupported style")
		return
	}

	repo, ok := h.findOwnRepo(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if dto.DocsActive != nil {
		updates["docs_active"] = *dto.DocsActive
	}
	if dto.Style != "" {
		updates["docs_style"] = dto.Style
	}
	if dto.Complexity != nil {
		updates["docs_complexity"] = *dto.Complexity
	}
	if len(updates) > 0 {
		if err := h.db.Model(repo).Updates(updates).Error; err != nil {
			response.InternalError(c, err)
			return
		}
	}

	var fresh models.RepositoryModel
	if err := h.db.First(&fresh, "id = ?", repo.ID).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, fresh)
}
