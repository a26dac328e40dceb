package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	appcfg "github.com/5h444n/AutoDoc-Writer/internal/config"
)

// ModelInfo describes one model a provider can serve.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderModels groups the model list for a single provider.
type ProviderModels struct {
	ProviderID   string      `json:"providerId"`
	ProviderType string      `json:"providerType"`
	Models       []ModelInfo `json:"models"`
	Error        string      `json:"error,omitempty"`
}

const modelCacheTTL = 10 * time.Minute

// ModelCache caches per-provider model listings for a fixed TTL so the
// settings UI does not hammer the upstream APIs.
type ModelCache struct {
	mu      sync.Mutex
	entries map[string]modelCacheEntry
}

type modelCacheEntry struct {
	models    []ModelInfo
	fetchedAt time.Time
}

func NewModelCache() *ModelCache {
	return &ModelCache{entries: make(map[string]modelCacheEntry)}
}

// ListModels returns the models for a provider, fetching from upstream
// when the cached entry is missing or stale.
func (c *ModelCache) ListModels(provider appcfg.AIProvider) ([]ModelInfo, error) {
	c.mu.Lock()
	entry, ok := c.entries[provider.ID]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < modelCacheTTL {
		return entry.models, nil
	}

	models, err := fetchModelsFromProvider(provider)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		models = fallbackModels(provider)
	}

	c.mu.Lock()
	c.entries[provider.ID] = modelCacheEntry{models: models, fetchedAt: time.Now()}
	c.mu.Unlock()
	return models, nil
}

func fallbackModels(provider appcfg.AIProvider) []ModelInfo {
	if provider.DefaultModel == "" {
		return []ModelInfo{}
	}
	return []ModelInfo{{ID: provider.DefaultModel, Name: provider.DefaultModel}}
}

func fetchModelsFromProvider(provider appcfg.AIProvider) ([]ModelInfo, error) {
	if isAnthropicProviderType(provider.Type) {
		endpoint := normalizeAnthropicModelsEndpoint(provider.Endpoint)
		headers := map[string]string{
			"x-api-key":         strings.TrimSpace(provider.APIKey),
			"anthropic-version": "2023-06-01",
			"accept":            "application/json",
		}
		return fetchModelsByEndpoint(endpoint, headers, parseAnthropicModels)
	}

	endpoint := normalizeOpenAIModelsEndpoint(provider.Endpoint)
	headers := map[string]string{
		"authorization": "Bearer " + strings.TrimSpace(provider.APIKey),
		"accept":        "application/json",
	}
	return fetchModelsByEndpoint(endpoint, headers, parseOpenAIStyleModels)
}

func fetchModelsByEndpoint(endpoint string, headers map[string]string, parser func([]byte) ([]ModelInfo, error)) ([]ModelInfo, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		if strings.TrimSpace(v) == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("provider models request failed: %s", strings.TrimSpace(string(body)))
	}
	models, err := parser(body)
	if err != nil {
		return nil, err
	}
	return dedupeModelInfos(models), nil
}

func parseOpenAIStyleModels(body []byte) ([]ModelInfo, error) {
	var payload struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(payload.Data))
	for _, item := range payload.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{ID: id, Name: name})
	}
	return models, nil
}

func parseAnthropicModels(body []byte) ([]ModelInfo, error) {
	var payload struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(payload.Data))
	for _, item := range payload.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(item.DisplayName)
		if name == "" {
			name = id
		}
		models = append(models, ModelInfo{ID: id, Name: name})
	}
	return models, nil
}

func dedupeModelInfos(input []ModelInfo) []ModelInfo {
	if len(input) == 0 {
		return []ModelInfo{}
	}
	out := make([]ModelInfo, 0, len(input))
	seen := make(map[string]struct{}, len(input))
	for _, item := range input {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

func normalizeAnthropicModelsEndpoint(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/models"
}

func normalizeOpenAIModelsEndpoint(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/models"
}
