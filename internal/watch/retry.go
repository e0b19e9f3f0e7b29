package watch

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"
)

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429:
		return true
	}
	return code >= 500 && code <= 599
}

// RetryPolicy implements capped, jittered exponential backoff for
// transient fetch failures. MaxRetries counts retries after the first
// attempt, so a target is attempted at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewRetryPolicy builds a policy with sane defaults for zero values.
func NewRetryPolicy(maxRetries int, base, max time.Duration) RetryPolicy {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: base, MaxDelay: max}
}

// ShouldRetry decides whether another attempt is allowed after err.
// attempt is zero-based: the first retry decision passes attempt 0.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	// An http client timeout unwraps to context.DeadlineExceeded, so
	// the fetcher's Transient classification must be consulted first;
	// the sentinels only guard bare cancellation errors.
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// Backoff returns the wait before retry number attempt (zero-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
