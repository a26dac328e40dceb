package github

import (
	"context"
	"errors"
	"net/http"
	"time"

	gh "github.com/google/go-github/v57/github"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// withRetry runs fn with bounded exponential backoff on rate limits and
// upstream 5xx failures. Other errors are returned as-is, with 404 mapped
// onto ErrNotFound.
func (c *Client) withRetry(ctx context.Context, fn func() (*gh.Response, error)) error {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		resp, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if !retryable(resp, err) {
			return err
		}
	}
	return lastErr
}

func retryable(resp *gh.Response, err error) bool {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}
