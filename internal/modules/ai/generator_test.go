package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	appcfg "github.com/5h444n/AutoDoc-Writer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func compatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func compatProvider(id, endpoint string) appcfg.AIProvider {
	return appcfg.AIProvider{
		ID:           id,
		Type:         "openai-compatible",
		APIKey:       "test-key",
		Endpoint:     endpoint,
		DefaultModel: "test-model",
		Enabled:      true,
	}
}

func chatCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"choices":[{"message":{"content":"` + content + `"}}]}`))
}

func TestChainNoProviders(t *testing.T) {
	chain := NewChain(appcfg.AIConfig{}, zap.NewNop())
	_, err := chain.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestChainFirstProviderWins(t *testing.T) {
	srv := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		chatCompletion(w, "generated text")
	})

	chain := NewChain(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{compatProvider("primary", srv.URL)},
	}, zap.NewNop())

	text, err := chain.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
}

func TestChainFallsBackToNextProvider(t *testing.T) {
	failing := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	working := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		chatCompletion(w, "from backup")
	})

	chain := NewChain(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{
			compatProvider("primary", failing.URL),
			compatProvider("backup", working.URL),
		},
	}, zap.NewNop())

	text, err := chain.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from backup", text)
}

func TestChainRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		chatCompletion(w, "after retry")
	})

	chain := NewChain(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{compatProvider("primary", srv.URL)},
	}, zap.NewNop())

	text, err := chain.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "after retry", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChainDoesNotRetryPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	chain := NewChain(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{compatProvider("only", srv.URL)},
	}, zap.NewNop())

	_, err := chain.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all AI providers failed")
	assert.Contains(t, err.Error(), "only")
	assert.Equal(t, int32(1), calls.Load())
}

func TestChainSkipsDisabledProviders(t *testing.T) {
	srv := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		chatCompletion(w, "enabled one")
	})

	disabled := compatProvider("off", "http://127.0.0.1:1")
	disabled.Enabled = false

	chain := NewChain(appcfg.AIConfig{
		Providers: []appcfg.AIProvider{disabled, compatProvider("on", srv.URL)},
	}, zap.NewNop())

	text, err := chain.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "enabled one", text)
}

func TestCleanResponse(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"fenced", "```\nhello\n```", "hello"},
		{"fenced with language", "```markdown\n# Title\nbody\n```", "# Title\nbody"},
		{"unterminated fence", "```\nhello", "hello"},
		{"interior fence kept", "before\n```\ncode\n```\nafter", "before\n```\ncode\n```\nafter"},
		{"whitespace trimmed", "  padded  ", "padded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanResponse(tc.in))
		})
	}
}
