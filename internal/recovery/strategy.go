package recovery

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// FailureCategory says what to do with a journaled commit after a retry.
type FailureCategory int

const (
	// CategoryTransient retries later.
	CategoryTransient FailureCategory = iota
	// CategoryPermanent gives up: the backend rejected the claim outright.
	CategoryPermanent
	// CategoryRecorded means the ledger already has the claim.
	CategoryRecorded
)

// Classify maps a commit error to a category.
func Classify(err error) FailureCategory {
	if err == nil {
		return CategoryRecorded
	}
	var re *domain.RemoteError
	if !errors.As(err, &re) {
		return CategoryTransient
	}
	switch {
	case re.Code == http.StatusConflict:
		return CategoryRecorded
	case re.Code == http.StatusRequestTimeout, re.Code == http.StatusTooManyRequests:
		return CategoryTransient
	case re.Code >= 400 && re.Code < 500:
		return CategoryPermanent
	default:
		return CategoryTransient
	}
}

// Backoff spaces out retries of one journal entry: InitialDelay * 2^retries.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
}

// DefaultBackoff is 30s, 1m, 2m ... capped at 30m, 10 retries.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 30 * time.Second,
		MaxDelay:     30 * time.Minute,
		MaxRetries:   10,
	}
}

// Delay returns the wait before retry number retries (0-indexed).
func (b Backoff) Delay(retries int) time.Duration {
	delay := float64(b.InitialDelay) * math.Pow(2, float64(retries))
	if delay > float64(b.MaxDelay) {
		return b.MaxDelay
	}
	return time.Duration(delay)
}

// Exhausted reports whether an entry with this many retries should be abandoned.
func (b Backoff) Exhausted(retries int) bool {
	return b.MaxRetries > 0 && retries >= b.MaxRetries
}
