package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/storage"
)

// PendingCommitRepo implements storage.PendingCommitRepository using PostgreSQL.
type PendingCommitRepo struct {
	db *DB
}

// NewPendingCommitRepo creates a new PostgreSQL pending commit repository.
func NewPendingCommitRepo(db *DB) *PendingCommitRepo {
	return &PendingCommitRepo{db: db}
}

// Add journals a pending commit.
func (r *PendingCommitRepo) Add(ctx context.Context, pc *domain.PendingCommit) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	if pc.Status == "" {
		pc.Status = domain.PendingCommitStatusPending
	}
	query := `
		INSERT INTO pending_commits
			(id, player, day, min_steps, tier_label, steps, error_msg, retry_count, status, created_at, last_attempt_at)
		VALUES
			(:id, :player, :day, :min_steps, :tier_label, :steps, :error_msg, :retry_count, :status, NOW(), NOW())
	`
	if _, err := r.db.NamedExecContext(ctx, query, pc); err != nil {
		return fmt.Errorf("failed to add pending commit: %w", err)
	}
	return nil
}

// ListPending returns pending entries, least recently attempted first.
func (r *PendingCommitRepo) ListPending(ctx context.Context, limit int) ([]*domain.PendingCommit, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, player, day, min_steps, tier_label, steps, error_msg, retry_count, status, created_at, last_attempt_at
		FROM pending_commits
		WHERE status = 'pending'
		ORDER BY last_attempt_at ASC
		LIMIT $1
	`
	var result []*domain.PendingCommit
	if err := r.db.SelectContext(ctx, &result, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending commits: %w", err)
	}
	return result, nil
}

// IncrementRetry increments retry count and updates timestamp.
func (r *PendingCommitRepo) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	query := `
		UPDATE pending_commits
		SET retry_count = retry_count + 1, error_msg = $2, last_attempt_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, errMsg)
}

// MarkResolved marks a pending commit as committed.
func (r *PendingCommitRepo) MarkResolved(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE pending_commits SET status = 'resolved' WHERE id = $1`, id)
}

// MarkAbandoned stops retrying a pending commit.
func (r *PendingCommitRepo) MarkAbandoned(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE pending_commits SET status = 'abandoned' WHERE id = $1`, id)
}

// CountPending returns the pending backlog size.
func (r *PendingCommitRepo) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pending_commits WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending commits: %w", err)
	}
	return count, nil
}

// DeleteSettledBefore prunes resolved and abandoned entries.
func (r *PendingCommitRepo) DeleteSettledBefore(ctx context.Context, t time.Time) (int64, error) {
	query := `
		DELETE FROM pending_commits
		WHERE status IN ('resolved', 'abandoned') AND last_attempt_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, t)
	if err != nil {
		return 0, fmt.Errorf("failed to prune pending commits: %w", err)
	}
	return res.RowsAffected()
}

func (r *PendingCommitRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrPendingCommitNotFound
	}
	return nil
}
