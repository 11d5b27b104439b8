package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorPrefix marks error text shown to users.
const ErrorPrefix = "Error: "

var (
	// ErrNoSteps is returned when the backend has no step count for the requested day.
	ErrNoSteps = errors.New("no steps found for yesterday")

	// ErrNoCredential is returned when a call needs the API key and none is configured.
	ErrNoCredential = errors.New("api key is not configured")
)

// ResolutionError is returned when a hostname cannot be resolved and no cached
// addresses exist for it.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NetworkError is a transport-level failure (connect, timeout, reset) after all attempts.
type NetworkError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Code   int
	Status string
	Body   string
}

// Error renders the same text the backend console shows: "Error: 404 - Not Found - body".
func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s%d - %s", ErrorPrefix, e.Code, e.Status)
	if strings.TrimSpace(e.Body) != "" {
		msg += " - " + e.Body
	}
	return msg
}

// Retryable reports whether the status is one of the gateway errors worth retrying.
func (e *RemoteError) Retryable() bool {
	return e.Code == 502 || e.Code == 503 || e.Code == 504
}

// WorkflowKind classifies a claim workflow failure.
type WorkflowKind string

const (
	WorkflowNoSteps     WorkflowKind = "no_steps"
	WorkflowAction      WorkflowKind = "action"
	WorkflowMissingTier WorkflowKind = "missing_tier"
)

// WorkflowError is a claim failure that is not a remote-call failure.
type WorkflowError struct {
	Kind   WorkflowKind
	Player string
	Err    error
}

func (e *WorkflowError) Error() string {
	switch e.Kind {
	case WorkflowAction:
		return fmt.Sprintf("reward command failed for %s: %v", e.Player, e.Err)
	case WorkflowMissingTier:
		return fmt.Sprintf("missing tier for %s: %v", e.Player, e.Err)
	default:
		return fmt.Sprintf("claim for %s: %v", e.Player, e.Err)
	}
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// PartialCommitError means the reward actions ran but the backend never recorded the
// claim. The fix is to retry the commit alone.
type PartialCommitError struct {
	Player   string
	Day      string
	MinSteps int64
	Tier     string
	Err      error
}

func (e *PartialCommitError) Error() string {
	day := e.Day
	if day == "" {
		day = "yesterday"
	}
	return fmt.Sprintf("rewards for %s (%s, %s) were given but the claim was not recorded: %v",
		e.Player, e.Tier, day, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// Describe renders err for display. Partial commits are flagged loudly since the game
// and the ledger disagree until the commit is retried.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var pc *PartialCommitError
	if errors.As(err, &pc) {
		return "WARNING: " + pc.Error() + " (commit will be retried, do not re-claim)"
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Error()
	}
	return ErrorPrefix + err.Error()
}

// IsErrorText reports whether s is an error sentinel body instead of a payload.
func IsErrorText(s string) bool {
	return strings.HasPrefix(s, "Error:")
}
