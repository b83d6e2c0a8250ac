package zotero

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func responseWithHeaders(status int, headers map[string]string) *http.Response {
	resp := &http.Response{StatusCode: status, Header: http.Header{}}
	for name, value := range headers {
		resp.Header.Set(name, value)
	}
	return resp
}

func TestRateLimiter_BackoffHeader(t *testing.T) {
	limiter := NewRateLimiter()

	limiter.UpdateFromResponse(responseWithHeaders(http.StatusOK, map[string]string{
		HeaderBackoff: "30",
	}))

	remaining := time.Until(limiter.PausedUntil())
	assert.Greater(t, remaining, 25*time.Second)
	assert.LessOrEqual(t, remaining, 30*time.Second)
}

func TestRateLimiter_RetryAfterWins(t *testing.T) {
	limiter := NewRateLimiter()

	limiter.UpdateFromResponse(responseWithHeaders(http.StatusTooManyRequests, map[string]string{
		HeaderBackoff:    "5",
		HeaderRetryAfter: "60",
	}))

	remaining := time.Until(limiter.PausedUntil())
	assert.Greater(t, remaining, 55*time.Second)
}

func TestRateLimiter_NoHeadersNoPause(t *testing.T) {
	limiter := NewRateLimiter()

	limiter.UpdateFromResponse(responseWithHeaders(http.StatusOK, nil))

	assert.True(t, limiter.PausedUntil().IsZero())
}

func TestRateLimiter_PauseNeverShrinks(t *testing.T) {
	limiter := NewRateLimiter()

	limiter.UpdateFromResponse(responseWithHeaders(http.StatusOK, map[string]string{
		HeaderBackoff: "60",
	}))
	first := limiter.PausedUntil()

	limiter.UpdateFromResponse(responseWithHeaders(http.StatusOK, map[string]string{
		HeaderBackoff: "1",
	}))

	assert.Equal(t, first, limiter.PausedUntil())
}
