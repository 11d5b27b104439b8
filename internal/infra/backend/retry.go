package backend

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig defines retry behavior for retryable requests.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig: 3 attempts, 250ms then 500ms between them.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    250 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle a failed attempt.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

func (a ErrorAction) String() string {
	if a == ActionRetry {
		return "retry"
	}
	return "fatal"
}

// ClassifyStatus decides whether a non-2xx status is worth another attempt.
// Only gateway errors are retried; everything else is the backend's final answer.
func ClassifyStatus(code int) ErrorAction {
	switch code {
	case 502, 503, 504:
		return ActionRetry
	default:
		return ActionFatal
	}
}

// ClassifyError decides whether a transport error is worth another attempt.
// Resets, EOFs, resolution failures and timeouts are retried; a cancelled
// caller is not.
func ClassifyError(err error) ErrorAction {
	if err == nil || errors.Is(err, context.Canceled) {
		return ActionFatal
	}
	return ActionRetry
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
