package zotero

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProactiveRate is the proactive throttle rate in requests per second.
	// The API allows bursts but asks clients to stay well below its
	// enforcement limits.
	ProactiveRate = 5.0

	// HeaderBackoff is the advisory backoff header (seconds).
	HeaderBackoff = "Backoff"

	// HeaderRetryAfter is the mandatory retry-after header (seconds),
	// sent with 429 and 503 responses.
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles requests proactively with a token bucket and
// reactively by honouring Backoff/Retry-After headers from responses.
type RateLimiter struct {
	mu         sync.Mutex
	pauseUntil time.Time
	bucket     *rate.Limiter
}

// NewRateLimiter creates a new rate limiter with proactive throttling.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		bucket: rate.NewLimiter(rate.Limit(ProactiveRate), 1),
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	pauseUntil := r.pauseUntil
	r.mu.Unlock()

	if time.Now().Before(pauseUntil) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(pauseUntil)):
		}
	}

	return nil
}

// UpdateFromResponse records any server-requested pause from response
// headers. Retry-After takes precedence over the advisory Backoff.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	seconds := headerSeconds(resp, HeaderBackoff)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		if retry := headerSeconds(resp, HeaderRetryAfter); retry > 0 {
			seconds = retry
		}
	}
	if seconds <= 0 {
		return
	}

	until := time.Now().Add(time.Duration(seconds) * time.Second)

	r.mu.Lock()
	if until.After(r.pauseUntil) {
		r.pauseUntil = until
	}
	r.mu.Unlock()
}

// PausedUntil returns the end of the current server-requested pause.
func (r *RateLimiter) PausedUntil() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseUntil
}

func headerSeconds(resp *http.Response, name string) int {
	value := resp.Header.Get(name)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return seconds
}
