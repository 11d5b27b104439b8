package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

var (
	// ErrPendingCommitNotFound is returned when a journal entry doesn't exist
	ErrPendingCommitNotFound = errors.New("pending commit not found")
)

// PendingCommitRepository journals claims whose actions ran but whose commit failed
type PendingCommitRepository interface {
	// Add records a new pending commit. An empty ID is assigned.
	Add(ctx context.Context, pc *domain.PendingCommit) error

	// ListPending returns up to limit pending entries, oldest attempt first
	ListPending(ctx context.Context, limit int) ([]*domain.PendingCommit, error)

	// IncrementRetry bumps the retry count and records the last error
	IncrementRetry(ctx context.Context, id string, errMsg string) error

	// MarkResolved marks an entry as committed
	MarkResolved(ctx context.Context, id string) error

	// MarkAbandoned stops retrying an entry
	MarkAbandoned(ctx context.Context, id string) error

	// CountPending returns the number of pending entries
	CountPending(ctx context.Context) (int, error)

	// DeleteSettledBefore removes resolved and abandoned entries last attempted before t
	DeleteSettledBefore(ctx context.Context, t time.Time) (int64, error)
}

// OptInRepository stores which reward thresholds a player auto-claims.
// Players are keyed by domain.NormalizePlayer.
type OptInRepository interface {
	// Enabled returns the opted-in thresholds for a player
	Enabled(ctx context.Context, player string) ([]int64, error)

	// SetEnabled turns auto-claim for one threshold on or off
	SetEnabled(ctx context.Context, player string, minSteps int64, on bool) error

	// HasAny reports whether the player opted into any threshold
	HasAny(ctx context.Context, player string) (bool, error)
}
