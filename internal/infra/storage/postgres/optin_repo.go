package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// OptInRepo implements storage.OptInRepository using PostgreSQL.
type OptInRepo struct {
	db *DB
}

// NewOptInRepo creates a new PostgreSQL opt-in repository.
func NewOptInRepo(db *DB) *OptInRepo {
	return &OptInRepo{db: db}
}

// Enabled returns the player's opted-in thresholds in ascending order.
func (r *OptInRepo) Enabled(ctx context.Context, player string) ([]int64, error) {
	var result []int64
	query := `SELECT min_steps FROM auto_claim_opt_ins WHERE player = $1 ORDER BY min_steps`
	if err := r.db.SelectContext(ctx, &result, query, domain.NormalizePlayer(player)); err != nil {
		return nil, fmt.Errorf("failed to load opt-ins: %w", err)
	}
	return result, nil
}

// SetEnabled adds or removes one threshold.
func (r *OptInRepo) SetEnabled(ctx context.Context, player string, minSteps int64, on bool) error {
	key := domain.NormalizePlayer(player)
	if key == "" {
		return nil
	}
	var err error
	if on {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO auto_claim_opt_ins (player, min_steps) VALUES ($1, $2)
			ON CONFLICT (player, min_steps) DO NOTHING
		`, key, minSteps)
	} else {
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM auto_claim_opt_ins WHERE player = $1 AND min_steps = $2`, key, minSteps)
	}
	if err != nil {
		return fmt.Errorf("failed to update opt-in: %w", err)
	}
	return nil
}

// HasAny reports whether the player opted into any threshold.
func (r *OptInRepo) HasAny(ctx context.Context, player string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM auto_claim_opt_ins WHERE player = $1)`, domain.NormalizePlayer(player))
	if err != nil {
		return false, fmt.Errorf("failed to check opt-ins: %w", err)
	}
	return exists, nil
}
