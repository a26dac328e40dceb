package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/5h444n/AutoDoc-Writer/internal/models"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/github"
	"github.com/5h444n/AutoDoc-Writer/internal/modules/repodocs"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/response"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskTypePushSync is the task type for push-triggered documentation syncs.
const TaskTypePushSync = "repodocs:push"

var (
	errMissingSignature = errors.New("missing webhook signature")
	errInvalidSignature = errors.New("invalid webhook signature")
)

// PushPayload is the task payload for one push-triggered sync.
type PushPayload struct {
	RepoFullName string   `json:"repo_full_name"`
	HeadSHA      string   `json:"head_sha"`
	Changed      []string `json:"changed"`
	Removed      []string `json:"removed"`
}

// Handler receives GitHub webhooks and runs push-triggered documentation
// syncs as background tasks. Push errors are logged, never surfaced to
// GitHub, which has already been told "queued".
type Handler struct {
	db            *gorm.DB
	box           *secret.Box
	webhookSecret string
	sync          *repodocs.Service
	tasks         *taskqueue.Service
	log           *zap.Logger
}

func NewHandler(db *gorm.DB, box *secret.Box, webhookSecret string, sync *repodocs.Service, tasks *taskqueue.Service, log *zap.Logger) *Handler {
	return &Handler{db: db, box: box, webhookSecret: webhookSecret, sync: sync, tasks: tasks, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/webhooks")
	g.POST("/github", h.github)
	g.GET("/tasks/:id", authMW, h.getTask)
}

// verifySignature checks the X-Hub-Signature-256 HMAC. An empty configured
// secret disables verification.
func verifySignature(secretKey string, payload []byte, signatureHeader string) error {
	if secretKey == "" {
		return nil
	}
	if signatureHeader == "" || !strings.HasPrefix(signatureHeader, "sha256=") {
		return errMissingSignature
	}
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return errInvalidSignature
	}
	return nil
}

type pushEvent struct {
	After      string `json:"after"`
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// collectChanges flattens the event's commit list into one changed set and
// one removed set. A path both modified and removed counts as removed.
func collectChanges(event *pushEvent) (changed, removed []string) {
	changedSet := map[string]struct{}{}
	removedSet := map[string]struct{}{}
	for _, commit := range event.Commits {
		for _, p := range commit.Added {
			changedSet[p] = struct{}{}
		}
		for _, p := range commit.Modified {
			changedSet[p] = struct{}{}
		}
		for _, p := range commit.Removed {
			removedSet[p] = struct{}{}
		}
	}
	for p := range removedSet {
		delete(changedSet, p)
		removed = append(removed, p)
	}
	for p := range changedSet {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

// POST /webhooks/github
func (h *Handler) github(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "unreadable payload")
		return
	}
	if err := verifySignature(h.webhookSecret, payload, c.GetHeader("X-Hub-Signature-256")); err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	switch c.GetHeader("X-GitHub-Event") {
	case "ping":
		response.OK(c, gin.H{"status": "ok"})
		return
	case "push":
	default:
		response.OK(c, gin.H{"status": "ignored"})
		return
	}

	var event pushEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		response.BadRequest(c, "invalid webhook payload")
		return
	}
	if event.Repository.FullName == "" || event.After == "" {
		response.BadRequest(c, "invalid webhook payload")
		return
	}

	changed, removed := collectChanges(&event)
	task, err := h.tasks.Enqueue(c.Request.Context(), TaskTypePushSync, PushPayload{
		RepoFullName: event.Repository.FullName,
		HeadSHA:      event.After,
		Changed:      changed,
		Removed:      removed,
	}, event.Repository.FullName)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	if task.Status == taskqueue.TaskPending {
		go h.process(task.ID)
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "task_id": task.ID})
}

// GET /webhooks/tasks/:id  [auth]
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c, "task not found")
		return
	}
	response.OK(c, task)
}

func (h *Handler) process(taskID string) {
	ctx := context.Background()

	task, err := h.tasks.GetByID(ctx, taskID)
	if err != nil || task == nil {
		h.log.Error("push sync task vanished", zap.String("task", taskID), zap.Error(err))
		return
	}
	var payload PushPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		h.setTaskStatus(ctx, taskID, taskqueue.TaskFailed, nil, "malformed payload")
		return
	}

	h.setTaskStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")

	if err := h.runPushSync(ctx, payload); err != nil {
		h.log.Error("push sync failed",
			zap.String("repo", payload.RepoFullName),
			zap.String("head", payload.HeadSHA),
			zap.Error(err),
		)
		h.setTaskStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	h.setTaskStatus(ctx, taskID, taskqueue.TaskCompleted, gin.H{"repo": payload.RepoFullName}, "")
}

// setTaskStatus records a status transition. A failed write leaves the
// task stuck and its dedup key held until the TTL expires, so it must at
// least be visible in the logs.
func (h *Handler) setTaskStatus(ctx context.Context, taskID string, status taskqueue.TaskStatus, result interface{}, errMsg string) {
	if err := h.tasks.UpdateStatus(ctx, taskID, status, result, errMsg); err != nil {
		h.log.Error("task status update failed",
			zap.String("task", taskID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (h *Handler) runPushSync(ctx context.Context, payload PushPayload) error {
	var repo models.RepositoryModel
	err := h.db.Where("full_name = ?", payload.RepoFullName).First(&repo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		name := payload.RepoFullName
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		err = h.db.Where("name = ?", name).First(&repo).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// not a tracked repository, nothing to do
		return nil
	}
	if err != nil {
		return err
	}
	if !repo.DocsActive {
		return nil
	}

	var owner models.UserModel
	if err := h.db.First(&owner, "id = ?", repo.OwnerID).Error; err != nil {
		return err
	}
	token, err := owner.AccessToken(h.box)
	if err != nil || token == "" {
		return errors.New("repository owner has no usable access token")
	}

	host := github.NewClient(ctx, token)
	return h.sync.IncrementalSync(ctx, host, &repo, payload.Changed, payload.Removed, payload.HeadSHA)
}
