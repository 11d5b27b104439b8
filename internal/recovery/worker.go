// Package recovery retries the commit step of claims whose reward actions already ran.
// Actions are never re-applied here.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/storage"
	"github.com/vietddude/stepbridge/internal/metrics"
)

// Committer records a claim on the backend ledger.
type Committer interface {
	ClaimReward(ctx context.Context, player string, minSteps int64, day string) (string, error)
}

// Stats counts what one pass did.
type Stats struct {
	Resolved  int
	Retried   int
	Abandoned int
	Waiting   int
}

// Worker periodically retries journaled commits.
type Worker struct {
	repo      storage.PendingCommitRepository
	committer Committer
	backoff   Backoff
	interval  time.Duration
	batchSize int
	log       *slog.Logger
	now       func() time.Time
}

// NewWorker creates a recovery worker.
func NewWorker(
	repo storage.PendingCommitRepository,
	committer Committer,
	interval time.Duration,
	backoff Backoff,
	log *slog.Logger,
) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		repo:      repo,
		committer: committer,
		backoff:   backoff,
		interval:  interval,
		batchSize: 50,
		log:       log.With("component", "recovery"),
		now:       time.Now,
	}
}

// Start runs passes every interval until ctx ends.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Worker) pass(ctx context.Context) {
	stats, err := w.RunOnce(ctx)
	if err != nil {
		w.log.Error("Recovery pass failed", "error", err)
		return
	}
	if stats.Resolved+stats.Retried+stats.Abandoned > 0 {
		w.log.Info("Recovery pass",
			"resolved", stats.Resolved,
			"retried", stats.Retried,
			"abandoned", stats.Abandoned,
			"waiting", stats.Waiting,
		)
	}
}

// RunOnce retries every pending entry whose backoff has elapsed.
func (w *Worker) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	pending, err := w.repo.ListPending(ctx, w.batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list pending commits: %w", err)
	}

	for _, pc := range pending {
		if ctx.Err() != nil {
			break
		}
		if w.now().Before(pc.LastTry.Add(w.backoff.Delay(pc.RetryCount))) {
			stats.Waiting++
			continue
		}
		if err := w.retry(ctx, pc, &stats); err != nil {
			return stats, err
		}
	}

	if n, err := w.repo.CountPending(ctx); err == nil {
		metrics.PendingCommits.Set(float64(n))
	}
	return stats, nil
}

func (w *Worker) retry(ctx context.Context, pc *domain.PendingCommit, stats *Stats) error {
	log := w.log.With("pending_id", pc.ID, "player", pc.Player, "min_steps", pc.MinSteps, "day", pc.Day)

	_, commitErr := w.committer.ClaimReward(ctx, pc.Player, pc.MinSteps, pc.Day)
	switch Classify(commitErr) {
	case CategoryRecorded:
		if err := w.repo.MarkResolved(ctx, pc.ID); err != nil {
			return fmt.Errorf("failed to resolve %s: %w", pc.ID, err)
		}
		log.Info("Pending commit recorded", "retries", pc.RetryCount)
		stats.Resolved++
		return nil

	case CategoryPermanent:
		if err := w.repo.MarkAbandoned(ctx, pc.ID); err != nil {
			return fmt.Errorf("failed to abandon %s: %w", pc.ID, err)
		}
		log.Error("Pending commit rejected by backend", "error", commitErr)
		stats.Abandoned++
		return nil
	}

	if err := w.repo.IncrementRetry(ctx, pc.ID, commitErr.Error()); err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	if w.backoff.Exhausted(pc.RetryCount + 1) {
		if err := w.repo.MarkAbandoned(ctx, pc.ID); err != nil {
			return fmt.Errorf("failed to abandon %s: %w", pc.ID, err)
		}
		log.Error("Pending commit abandoned after retries", "retries", pc.RetryCount+1, "error", commitErr)
		stats.Abandoned++
		return nil
	}
	log.Warn("Pending commit retry failed", "retries", pc.RetryCount+1, "error", commitErr)
	stats.Retried++
	return nil
}
