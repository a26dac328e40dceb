package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appcfg "github.com/5h444n/AutoDoc-Writer/internal/config"
	"github.com/5h444n/AutoDoc-Writer/internal/middleware"
	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/repos"
	jwtpkg "github.com/5h444n/AutoDoc-Writer/internal/pkg/jwt"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionTTL = 30 * 24 * time.Hour

// Handler implements the GitHub OAuth login flow. Successful callbacks
// upsert the user with an encrypted access token, mirror their repository
// list, and hand a session JWT back to the frontend.
type Handler struct {
	db  *gorm.DB
	box *secret.Box
	cfg *appcfg.AppConfig
	log *zap.Logger
}

func NewHandler(db *gorm.DB, box *secret.Box, cfg *appcfg.AppConfig, log *zap.Logger) *Handler {
	return &Handler{db: db, box: box, cfg: cfg, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.GET("/login", h.login)
	g.GET("/callback", h.callback)
	g.GET("/me", authMW, h.me)
}

// GET /auth/login
func (h *Handler) login(c *gin.Context) {
	if h.cfg.GitHub.ClientID == "" {
		response.InternalError(c, errors.New("github oauth is not configured"))
		return
	}

	params := url.Values{}
	params.Set("client_id", h.cfg.GitHub.ClientID)
	params.Set("scope", "repo read:user")
	if h.cfg.GitHub.RedirectURI != "" {
		params.Set("redirect_uri", h.cfg.GitHub.RedirectURI)
	}
	c.Redirect(http.StatusTemporaryRedirect,
		"https://github.com/login/oauth/authorize?"+params.Encode())
}

// GET /auth/callback?code=...
func (h *Handler) callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "missing code")
		return
	}
	ctx := c.Request.Context()

	token, err := github.ExchangeCode(ctx, h.cfg.GitHub.ClientID, h.cfg.GitHub.ClientSecret, code)
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("token exchange failed: %v", err))
		return
	}

	gh := github.NewClient(ctx, token)
	profile, err := gh.UserProfile(ctx)
	if err != nil || profile.Login == "" {
		response.BadRequest(c, "could not fetch GitHub profile")
		return
	}

	var user models.UserModel
	err = h.db.Where("github_username = ?", profile.Login).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		response.InternalError(c, err)
		return
	}
	user.GithubUsername = profile.Login
	user.Name = profile.Name
	user.AvatarURL = profile.AvatarURL
	if err := user.SetAccessToken(h.box, token); err != nil {
		response.InternalError(c, err)
		return
	}
	if err := h.db.Save(&user).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	// repo sync failure should not block login
	if ghRepos, reposErr := gh.UserRepos(ctx); reposErr != nil {
		h.log.Warn("repo sync on login failed", zap.String("user", user.GithubUsername), zap.Error(reposErr))
	} else if syncErr := repos.SyncForUser(h.db, user.ID, ghRepos); syncErr != nil {
		h.log.Warn("repo sync on login failed", zap.String("user", user.GithubUsername), zap.Error(syncErr))
	}

	session, err := jwtpkg.Sign(user.ID, sessionTTL)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	redirect := fmt.Sprintf("%s/auth/callback?token=%s&username=%s",
		h.cfg.FrontendURL, url.QueryEscape(session), url.QueryEscape(user.GithubUsername))
	c.Redirect(http.StatusTemporaryRedirect, redirect)
}

// GET /auth/me  [auth]
func (h *Handler) me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.OK(c, gin.H{
		"id":              user.ID,
		"github_username": user.GithubUsername,
		"name":            user.Name,
		"avatar_url":      user.AvatarURL,
	})
}
