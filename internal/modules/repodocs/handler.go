package repodocs

import (
	"errors"
	"time"

	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/markdown"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
	db  *gorm.DB
	box *secret.Box
}

func NewHandler(svc *Service, db *gorm.DB, box *secret.Box) *Handler {
	return &Handler{svc: svc, db: db, box: box}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/repo-docs", authMW)
	g.POST("/activate", h.activate)
	g.POST("/generate", h.generate)
	g.GET("/latest", h.latest)
}

type syncDTO struct {
	RepoFullName string `json:"repo_full_name" binding:"required"`
	Style        string `json:"style"`
	Complexity   *int   `json:"complexity" binding:"omitempty,min=0,max=100"`
	Force        bool   `json:"force"`
}

type docResponse struct {
	RepoFullName string `json:"repo_full_name"`
	Style        string `json:"style"`
	Complexity   int    `json:"complexity"`
	GeneratedAt  string `json:"generated_at"`
	Content      string `json:"content"`
	HTML         string `json:"html,omitempty"`
}

func docToResponse(fullName string, doc *models.RepoDocumentationModel) docResponse {
	generatedAt := doc.UpdatedAt
	if generatedAt.IsZero() {
		generatedAt = doc.CreatedAt
	}
	return docResponse{
		RepoFullName: fullName,
		Style:        doc.Style,
		Complexity:   doc.Complexity,
		GeneratedAt:  generatedAt.UTC().Format(time.RFC3339),
		Content:      doc.Content,
	}
}

// findRepo locates the user's repository by full name, falling back to
// the bare name for rows synced before full_name was stored.
func findRepo(db *gorm.DB, userID, fullName string) (*models.RepositoryModel, error) {
	var repo models.RepositoryModel
	err := db.Where("owner_id = ? AND full_name = ?", userID, fullName).First(&repo).Error
	if err == nil {
		return &repo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := fullName
	if idx := lastSlash(fullName); idx >= 0 {
		name = fullName[idx+1:]
	}
	if err := db.Where("owner_id = ? AND name = ?", userID, name).First(&repo).Error; err != nil {
		return nil, err
	}
	if repo.FullName == "" {
		repo.FullName = fullName
		if err := db.Save(&repo).Error; err != nil {
			return nil, err
		}
	}
	return &repo, nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func normalizeStyle(style string) (string, bool) {
	if style == "" {
		return models.StylePlainText, true
	}
	if !models.ValidStyle(style) {
		return "", false
	}
	return style, true
}

// POST /repo-docs/activate  [auth]
func (h *Handler) activate(c *gin.Context) {
	h.runSync(c, true)
}

// POST /repo-docs/generate  [auth]
func (h *Handler) generate(c *gin.Context) {
	h.runSync(c, false)
}

func (h *Handler) runSync(c *gin.Context, markActive bool) {
	var dto syncDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	style, ok := normalizeStyle(dto.Style)
	if !ok {
		response.BadRequest(c, "unsupported style")
		return
	}

	user := middleware.CurrentUser(c)
	token, err := user.AccessToken(h.box)
	if err != nil || token == "" {
		response.Unauthorized(c, "missing GitHub access token")
		return
	}

	repo, err := findRepo(h.db, user.ID, dto.RepoFullName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "repository not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	if markActive {
		repo.DocsActive = true
		repo.DocsStyle = style
		repo.DocsComplexity = complexityValue(dto.Complexity)
		if err := h.db.Save(repo).Error; err != nil {
			response.InternalError(c, err)
			return
		}
	}

	host := github.NewClient(c.Request.Context(), token)
	doc, err := h.svc.FullSync(c.Request.Context(), host, repo, style, dto.Complexity, dto.Force, "")
	if err != nil {
		switch {
		case errors.Is(err, ErrNoDocumentableFiles), errors.Is(err, ErrMissingFullName):
			response.BadRequest(c, err.Error())
		case errors.Is(err, github.ErrNotFound):
			response.NotFound(c, "repository not found on GitHub")
		default:
			response.BadGateway(c, err.Error())
		}
		return
	}

	response.OK(c, docToResponse(repo.FullName, doc))
}

// GET /repo-docs/latest?repo_full_name=&style=&format=  [auth]
func (h *Handler) latest(c *gin.Context) {
	fullName := c.Query("repo_full_name")
	if fullName == "" {
		response.BadRequest(c, "repo_full_name is required")
		return
	}
	style := c.Query("style")
	if style != "" && !models.ValidStyle(style) {
		response.BadRequest(c, "unsupported style")
		return
	}

	user := middleware.CurrentUser(c)
	repo, err := findRepo(h.db, user.ID, fullName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "repository not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	doc, err := h.svc.GetLatest(repo.ID, style)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c, "no documentation found")
			return
		}
		response.InternalError(c, err)
		return
	}

	out := docToResponse(repo.FullName, doc)
	if c.Query("format") == "html" {
		html, err := markdown.Render(doc.Content)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		out.HTML = html
	}
	response.OK(c, out)
}
