package llm

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// Transport error classes, sniffed from error text. Providers do not
// return structured codes through every path, so this is best-effort.
type ErrorClass int

const (
	ErrGeneric ErrorClass = iota
	ErrQuota              // non-retryable, abort the whole generation
	ErrRateLimit
	ErrTimeout
)

var (
	quotaMarkers     = []string{"quota", "insufficient_quota", "billing", "credit"}
	rateLimitMarkers = []string{"rate limit", "rate_limit", "429", "too many requests", "overloaded"}
	timeoutMarkers   = []string{"timeout", "timed out", "deadline exceeded"}
)

// Classify buckets a transport error for retry decisions.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrGeneric
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return ErrQuota
		}
	}
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return ErrRateLimit
		}
	}
	for _, m := range timeoutMarkers {
		if strings.Contains(msg, m) {
			return ErrTimeout
		}
	}
	return ErrGeneric
}

// QuotaError marks an exhausted-quota failure. Callers abort immediately
// instead of retrying.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return "llm quota exceeded: " + e.Err.Error()
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

// RetryClient wraps a Client with exponential backoff on transient
// failures. This is the transport-level retry policy; quality-driven
// regeneration rounds are a separate concern layered above it.
type RetryClient struct {
	inner      Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetryClient(inner Client, maxRetries int) *RetryClient {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &RetryClient{inner: inner, maxRetries: maxRetries, sleep: sleepCtx}
}

func (r *RetryClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			// 2^attempt seconds between attempts.
			wait := time.Duration(1<<attempt) * time.Second
			log.Printf("llm: attempt %d/%d failed (%v), retrying in %s", attempt, r.maxRetries, lastErr, wait)
			if err := r.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
		text, err := r.inner.Generate(ctx, prompt, maxTokens, temperature)
		if err == nil {
			return text, nil
		}
		if Classify(err) == ErrQuota {
			return "", &QuotaError{Err: err}
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsQuota reports whether err carries a quota failure anywhere in its chain.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
