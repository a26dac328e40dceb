package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appcfg "github.com/5h444n/AutoDoc-Writer/internal/config"
	"go.uber.org/zap"
)

// TextGenerator produces text from a prompt. Implementations are expected
// to be safe for concurrent use.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoProviders is returned when no enabled provider is configured.
var ErrNoProviders = errors.New("no enabled AI provider configured")

const (
	maxAttemptsPerProvider = 2
	retryBaseDelay         = time.Second
)

// providerError carries the HTTP status of a failed provider call so the
// chain can decide whether a retry is worthwhile.
type providerError struct {
	Status int
	Err    error
}

func (e *providerError) Error() string { return e.Err.Error() }
func (e *providerError) Unwrap() error { return e.Err }

func isTransient(err error) bool {
	var pe *providerError
	if errors.As(err, &pe) {
		return pe.Status == 429 || pe.Status >= 500
	}
	return false
}

// Chain tries each enabled provider in configured order until one returns
// a usable response. Transient failures (rate limits, upstream errors) get
// one retry with backoff before the chain moves on.
type Chain struct {
	providers []appcfg.AIProvider
	log       *zap.Logger
}

func NewChain(cfg appcfg.AIConfig, log *zap.Logger) *Chain {
	return &Chain{providers: cfg.EnabledProviders(), log: log}
}

func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	failures := make([]string, 0, len(c.providers))
	for _, provider := range c.providers {
		text, err := c.generateWith(ctx, &provider, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("AI provider failed",
			zap.String("provider", provider.ID),
			zap.Error(err),
		)
		failures = append(failures, fmt.Sprintf("%s: %v", provider.ID, err))
	}

	return "", fmt.Errorf("all AI providers failed: %s", strings.Join(failures, "; "))
}

func (c *Chain) generateWith(ctx context.Context, provider *appcfg.AIProvider, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttemptsPerProvider; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		text, err := callProvider(ctx, provider, prompt)
		if err == nil {
			return cleanResponse(text), nil
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
	}
	return "", lastErr
}

// cleanResponse strips a markdown code fence when the whole response is
// wrapped in one.
func cleanResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	lines := strings.Split(cleaned, "\n")
	if len(lines) < 2 {
		return cleaned
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
