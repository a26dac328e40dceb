package app

import (
	"net/http"

	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/ai"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/auth"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/commits"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/docs"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/repodocs"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/repos"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/webhook"
	pkgredis "github.com/5h444n/AutoDoc-Writer/internal/pkg/redis"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "autodoc-writer",
		"version":  "1.0.0",
		"homepage": "https://github.com/5h444n/AutoDoc-Writer",
		"issues":   "https://github.com/5h444n/AutoDoc-Writer/issues",
	}

	taskSvc := taskqueue.NewService(rc)
	chain := ai.NewChain(a.cfg.AI, a.logger)
	repoDocsSvc := repodocs.NewService(db, chain, a.logger)
	docsSvc := docs.NewService(db, chain)

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	// Rate limiting applies to anonymous traffic only, so it must run
	// after OptionalAuth has resolved the user.
	api.Use(middleware.RateLimit(rc.Raw()))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })

	auth.NewHandler(db, a.box, a.cfg, a.logger).RegisterRoutes(api, authMW)
	repos.NewHandler(db, a.box).RegisterRoutes(api, authMW)
	commits.NewHandler(db, a.box).RegisterRoutes(api, authMW)
	docs.NewHandler(docsSvc, a.box).RegisterRoutes(api, authMW)
	repodocs.NewHandler(repoDocsSvc, db, a.box).RegisterRoutes(api, authMW)
	ai.NewHandler(a.cfg.AI, chain).RegisterRoutes(api, authMW)
	webhook.NewHandler(db, a.box, a.cfg.GitHub.WebhookSecret, repoDocsSvc, taskSvc, a.logger).RegisterRoutes(api, authMW)
}
