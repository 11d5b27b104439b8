package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// OptInRepo implements storage.OptInRepository as one Redis set per player.
type OptInRepo struct {
	client *Client
}

// NewOptInRepo creates a Redis-backed opt-in repository.
func NewOptInRepo(client *Client) *OptInRepo {
	return &OptInRepo{client: client}
}

// Enabled returns the player's opted-in thresholds in ascending order.
func (r *OptInRepo) Enabled(ctx context.Context, player string) ([]int64, error) {
	members, err := r.client.rdb.SMembers(ctx, optInKey(player)).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	result := make([]int64, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		result = append(result, v)
	}
	slices.Sort(result)
	return result, nil
}

// SetEnabled adds or removes one threshold.
func (r *OptInRepo) SetEnabled(ctx context.Context, player string, minSteps int64, on bool) error {
	if domain.NormalizePlayer(player) == "" {
		return nil
	}
	key := optInKey(player)
	member := strconv.FormatInt(minSteps, 10)
	if on {
		if err := r.client.rdb.SAdd(ctx, key, member).Err(); err != nil {
			return fmt.Errorf("sadd failed: %w", err)
		}
		return nil
	}
	if err := r.client.rdb.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("srem failed: %w", err)
	}
	return nil
}

// HasAny reports whether the player opted into any threshold.
func (r *OptInRepo) HasAny(ctx context.Context, player string) (bool, error) {
	n, err := r.client.rdb.SCard(ctx, optInKey(player)).Result()
	if err != nil {
		return false, fmt.Errorf("scard failed: %w", err)
	}
	return n > 0, nil
}
