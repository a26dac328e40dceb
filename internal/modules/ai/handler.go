package ai

import (
	"strings"

	appcfg "github.com/5h444n/AutoDoc-Writer/internal/config"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	cfg        appcfg.AIConfig
	gen        TextGenerator
	modelCache *ModelCache
}

func NewHandler(cfg appcfg.AIConfig, gen TextGenerator) *Handler {
	return &Handler{cfg: cfg, gen: gen, modelCache: NewModelCache()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ai", authMW)
	g.POST("/preview", h.preview)
	g.GET("/providers/models", h.listProviderModels)
}

type previewDTO struct {
	Prompt string `json:"prompt" binding:"required"`
}

// POST /ai/preview  [auth]
func (h *Handler) preview(c *gin.Context) {
	var dto previewDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(dto.Prompt) == "" {
		response.BadRequest(c, "prompt must not be empty")
		return
	}

	text, err := h.gen.Generate(c.Request.Context(), dto.Prompt)
	if err != nil {
		response.BadGateway(c, err.Error())
		return
	}
	response.OK(c, gin.H{"text": text})
}

// GET /ai/providers/models  [auth]
func (h *Handler) listProviderModels(c *gin.Context) {
	providers := h.cfg.EnabledProviders()
	out := make([]ProviderModels, 0, len(providers))
	for _, p := range providers {
		entry := ProviderModels{
			ProviderID:   p.ID,
			ProviderType: p.Type,
		}
		models, err := h.modelCache.ListModels(p)
		if err != nil {
			entry.Models = fallbackModels(p)
			entry.Error = err.Error()
		} else {
			entry.Models = models
		}
		out = append(out, entry)
	}
	response.OK(c, out)
}
