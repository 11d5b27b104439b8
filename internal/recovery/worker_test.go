package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/storage/memory"
)

// =============================================================================
// Mock Committer
// =============================================================================

type mockCommitter struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (c *mockCommitter) ClaimReward(ctx context.Context, player string, minSteps int64, day string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.errs) == 0 {
		return `{"ok":true}`, nil
	}
	err := c.errs[0]
	c.errs = c.errs[1:]
	return "", err
}

func newWorker(t *testing.T, committer Committer, backoff Backoff) (*Worker, *memory.PendingCommitRepo) {
	t.Helper()
	repo := memory.NewPendingCommitRepo(memory.NewMemoryStorage())
	w := NewWorker(repo, committer, time.Minute, backoff, nil)
	return w, repo
}

func addPending(t *testing.T, repo *memory.PendingCommitRepo, lastTry time.Time) *domain.PendingCommit {
	t.Helper()
	pc := &domain.PendingCommit{Player: "alex", Day: "2026-10-17", MinSteps: 10000, TierLabel: "Gold", LastTry: lastTry}
	if err := repo.Add(context.Background(), pc); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return pc
}

func TestRunOnce_ResolvesOnSuccess(t *testing.T) {
	committer := &mockCommitter{}
	w, repo := newWorker(t, committer, Backoff{MaxRetries: 3})
	addPending(t, repo, time.Now().Add(-time.Hour))

	stats, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats.Resolved != 1 {
		t.Errorf("expected 1 resolved, got %+v", stats)
	}
	if n, _ := repo.CountPending(context.Background()); n != 0 {
		t.Errorf("expected empty backlog, got %d", n)
	}
}

func TestRunOnce_ConflictMeansAlreadyRecorded(t *testing.T) {
	committer := &mockCommitter{errs: []error{&domain.RemoteError{Code: 409, Status: "Conflict"}}}
	w, repo := newWorker(t, committer, Backoff{MaxRetries: 3})
	addPending(t, repo, time.Now().Add(-time.Hour))

	stats, _ := w.RunOnce(context.Background())
	if stats.Resolved != 1 {
		t.Errorf("expected conflict to resolve, got %+v", stats)
	}
}

func TestRunOnce_TransientThenAbandon(t *testing.T) {
	netErr := &domain.NetworkError{Method: "POST", URL: "/claim-reward", Attempts: 1, Err: errors.New("timeout")}
	committer := &mockCommitter{errs: []error{netErr, netErr}}
	w, repo := newWorker(t, committer, Backoff{MaxRetries: 2})
	addPending(t, repo, time.Now().Add(-time.Hour))

	stats, _ := w.RunOnce(context.Background())
	if stats.Retried != 1 {
		t.Fatalf("expected first failure to be retried, got %+v", stats)
	}

	stats, _ = w.RunOnce(context.Background())
	if stats.Abandoned != 1 {
		t.Fatalf("expected second failure to abandon, got %+v", stats)
	}
	if committer.calls != 2 {
		t.Errorf("expected 2 commit calls, got %d", committer.calls)
	}
}

func TestRunOnce_PermanentRejectionAbandons(t *testing.T) {
	committer := &mockCommitter{errs: []error{&domain.RemoteError{Code: 400, Status: "Bad Request"}}}
	w, repo := newWorker(t, committer, Backoff{MaxRetries: 5})
	addPending(t, repo, time.Now().Add(-time.Hour))

	stats, _ := w.RunOnce(context.Background())
	if stats.Abandoned != 1 {
		t.Errorf("expected abandon, got %+v", stats)
	}
}

func TestRunOnce_RespectsBackoff(t *testing.T) {
	committer := &mockCommitter{}
	w, repo := newWorker(t, committer, Backoff{InitialDelay: time.Hour, MaxDelay: time.Hour, MaxRetries: 5})
	addPending(t, repo, time.Now())

	stats, _ := w.RunOnce(context.Background())
	if stats.Waiting != 1 || committer.calls != 0 {
		t.Errorf("expected entry to wait, got %+v calls=%d", stats, committer.calls)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{InitialDelay: time.Second, MaxDelay: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Delay(i); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestPruner_RemovesOnlySettled(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewPendingCommitRepo(memory.NewMemoryStorage())
	resolved := addPending(t, repo, time.Now().Add(-10*24*time.Hour))
	addPending(t, repo, time.Now().Add(-10*24*time.Hour))
	if err := repo.MarkResolved(ctx, resolved.ID); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}

	p := NewPruner(repo, 7*24*time.Hour, nil)
	if n := p.Prune(ctx); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if n, _ := repo.CountPending(ctx); n != 1 {
		t.Errorf("pending entry must survive pruning, got %d", n)
	}
}
