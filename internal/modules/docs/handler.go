package docs

import (
	"errors"

	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/markdown"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
	box *secret.Box
}

func NewHandler(svc *Service, box *secret.Box) *Handler {
	return &Handler{svc: svc, box: box}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/docs", authMW)
	g.POST("/generate", h.generate)
}

type generateDTO struct {
	RepoFullName string `json:"repo_full_name" binding:"required"`
	CommitSHA    string `json:"commit_sha"     binding:"required"`
	Style        string `json:"style"`
	Complexity   *int   `json:"complexity" binding:"omitempty,min=0,max=100"`
	Force        bool   `json:"force"`
	Format       string `json:"format"`
}

// POST /docs/generate  [auth]
func (h *Handler) generate(c *gin.Context) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user := middleware.CurrentUser(c)
	token, err := user.AccessToken(h.box)
	if err != nil || token == "" {
		response.Unauthorized(c, "missing GitHub access token")
		return
	}

	host := github.NewClient(c.Request.Context(), token)
	result, err := h.svc.Generate(c.Request.Context(), host, GenerateInput{
		UserID:       user.ID,
		RepoFullName: dto.RepoFullName,
		CommitSHA:    dto.CommitSHA,
		Style:        dto.Style,
		Complexity:   dto.Complexity,
		Force:        dto.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedStyle):
			response.BadRequest(c, err.Error())
		case errors.Is(err, github.ErrNotFound):
			response.NotFound(c, "commit not found")
		default:
			response.BadGateway(c, err.Error())
		}
		return
	}

	if dto.Format == "html" && result.PlainText != "" {
		if html, err := markdown.Render(result.PlainText); err == nil {
			response.OK(c, gin.H{"result": result, "html": html})
			return
		}
	}
	response.OK(c, result)
}
