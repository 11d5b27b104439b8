package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/stepbridge/internal/infra/storage"
)

// Pruner deletes settled journal entries based on a retention period.
type Pruner struct {
	repo      storage.PendingCommitRepository
	retention time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a pruner. A zero retention disables it.
func NewPruner(repo storage.PendingCommitRepository, retention time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		repo:      repo,
		retention: retention,
		log:       log.With("component", "pruner"),
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	// 10% of retention, between a minute and an hour
	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes resolved and abandoned entries older than the retention period.
func (p *Pruner) Prune(ctx context.Context) int64 {
	n, err := p.repo.DeleteSettledBefore(ctx, p.now().Add(-p.retention))
	if err != nil {
		p.log.Error("Failed to prune settled commits", "error", err)
		return 0
	}
	if n > 0 {
		p.log.Debug("Pruned settled commits", "count", n)
	}
	return n
}
