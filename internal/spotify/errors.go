package spotify

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured indicates the Spotify credentials are missing.
var ErrNotConfigured = errors.New("spotify credentials are not configured")

// ErrInvalidPageSize indicates the API rejected the requested page
// size. Callers retry the same offset with a smaller size.
var ErrInvalidPageSize = errors.New("spotify rejected the page size")

// RateLimitedError indicates the API throttled us. It is fatal to the
// in-progress listing; RetryAfter carries the provider's hint when one
// was supplied.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("spotify rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "spotify rate limit exceeded"
}

// UpstreamError represents any other non-success response.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("spotify error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("spotify error: HTTP %d", e.StatusCode)
}
