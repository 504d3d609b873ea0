// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across components: a
// status-carrying error type, transient-failure detection, and an
// explicit retry policy.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// StatusError reports a non-2xx HTTP response from a remote API.
type StatusError struct {
	// Service names the remote API (e.g. "newsapi", "cohere").
	Service string

	// StatusCode is the HTTP status returned.
	StatusCode int

	// Body is a short excerpt of the response body, if any.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// RateLimited reports whether the response was HTTP 429.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

const maxBodyExcerpt = 256

// CheckResponse returns nil for 2xx responses and a *StatusError
// otherwise. On error the body is drained and closed.
func CheckResponse(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

// IsTransient reports whether err is worth retrying: HTTP 429, a
// connection reset, or a network timeout. Cancellation of the caller's
// own context is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.RateLimited()
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "status code: 429")
}

// Policy describes how an operation is retried. Delays is the backoff
// schedule: attempt n+1 waits Delays[n], so len(Delays) is the number of
// retries. Retryable decides whether an error is retried at all; a nil
// Retryable retries nothing.
type Policy struct {
	Delays    []time.Duration
	Retryable func(error) bool

	// Sleep waits for d or until ctx is done. Nil uses a timer; tests
	// substitute a recorder.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultDelays is the summarizer backoff schedule.
var DefaultDelays = []time.Duration{500 * time.Millisecond, 2 * time.Second, 5 * time.Second}

// TransientPolicy retries transient failures on the given schedule.
func TransientPolicy(delays []time.Duration) Policy {
	if delays == nil {
		delays = DefaultDelays
	}
	return Policy{Delays: delays, Retryable: IsTransient}
}

// MaxAttempts returns the total number of calls the policy allows.
func (p Policy) MaxAttempts() int {
	return len(p.Delays) + 1
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// schedule is exhausted. The last error is returned. If ctx is done during
// a backoff wait, ctx.Err() is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts(); attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.Delays[attempt-1]); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts(), lastErr)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
