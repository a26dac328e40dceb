package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	pkgredis "github.com/5h444n/AutoDoc-Writer/internal/pkg/redis"
	"github.com/5h444n/AutoDoc-Writer/internal/pkg/taskqueue"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"after":"abc"}`)

	assert.NoError(t, verifySignature("", payload, ""), "empty secret disables verification")
	assert.NoError(t, verifySignature("s3cret", payload, sign("s3cret", payload)))

	assert.ErrorIs(t, verifySignature("s3cret", payload, ""), errMissingSignature)
	assert.ErrorIs(t, verifySignature("s3cret", payload, "sha1=deadbeef"), errMissingSignature)
	assert.ErrorIs(t, verifySignature("s3cret", payload, sign("wrong", payload)), errInvalidSignature)
	assert.ErrorIs(t, verifySignature("s3cret", []byte("tampered"), sign("s3cret", payload)), errInvalidSignature)
}

func TestCollectChanges(t *testing.T) {
	raw := []byte(`{
		"after": "head-1",
		"repository": {"name": "demo", "full_name": "octocat/demo"},
		"commits": [
			{"added": ["new.go"], "modified": ["main.go"], "removed": []},
			{"added": [], "modified": ["main.go", "doomed.go"], "removed": ["old.go"]},
			{"added": [], "modified": [], "removed": ["doomed.go"]}
		]
	}`)
	var event pushEvent
	require.NoError(t, json.Unmarshal(raw, &event))

	changed, removed := collectChanges(&event)

	// doomed.go was modified then removed; removal wins
	assert.Equal(t, []string{"main.go", "new.go"}, changed)
	assert.Equal(t, []string{"doomed.go", "old.go"}, removed)
}

func TestCollectChangesEmpty(t *testing.T) {
	changed, removed := collectChanges(&pushEvent{})
	assert.Empty(t, changed)
	assert.Empty(t, removed)
}

func TestSetTaskStatusLogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	// redis client pointed at a closed port: every command fails
	rc := pkgredis.NewFromClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	h := NewHandler(nil, nil, "", nil, taskqueue.NewService(rc), zap.New(core))

	h.setTaskStatus(context.Background(), "task-1", taskqueue.TaskFailed, nil, "boom")

	entries := logs.FilterMessage("task status update failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "task-1", entries[0].ContextMap()["task"])
}
