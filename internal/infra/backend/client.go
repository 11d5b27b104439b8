package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// Client exposes the backend endpoints the bridge consumes.
type Client struct {
	exec *Executor
}

// NewClient wraps an executor.
func NewClient(exec *Executor) *Client {
	return &Client{exec: exec}
}

// Executor returns the underlying executor.
func (c *Client) Executor() *Executor {
	return c.exec
}

func playerPath(player, suffix string) string {
	return "/v1/servers/players/" + url.PathEscape(player) + suffix
}

func claimQuery(minSteps int64, day string) url.Values {
	q := url.Values{}
	if minSteps >= 0 {
		q.Set("min_steps", strconv.FormatInt(minSteps, 10))
	}
	if strings.TrimSpace(day) != "" {
		q.Set("day", day)
	}
	return q
}

// Health checks backend liveness. It does not need the API key.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Request{
		Method:    http.MethodGet,
		Path:      "/health",
		Retryable: true,
		Endpoint:  "health",
	})
}

// ServerInfo returns server metadata as raw JSON.
func (c *Client) ServerInfo(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Get("server-info", "/v1/servers/info", nil, true))
}

// AllPlayers returns the raw player dump.
func (c *Client) AllPlayers(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Get("players", "/v1/servers/players", nil, true))
}

// ListPlayers returns one page of registered players, optionally filtered by q.
func (c *Client) ListPlayers(ctx context.Context, limit, offset int, q string) (domain.PlayerPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if strings.TrimSpace(q) != "" {
		query.Set("q", q)
	}
	body, err := c.exec.Execute(ctx, Get("players-list", "/v1/servers/players/list", query, true))
	if err != nil {
		return domain.PlayerPage{}, err
	}
	return ParsePlayerPage(body)
}

// YesterdayStepsRaw returns the raw yesterday-steps payload.
func (c *Client) YesterdayStepsRaw(ctx context.Context, player string) (string, error) {
	return c.exec.Execute(ctx, Get("yesterday-steps", playerPath(player, "/yesterday-steps"), nil, true))
}

// YesterdaySteps returns yesterday's step count, or -1 when the backend has none.
func (c *Client) YesterdaySteps(ctx context.Context, player string) (int64, error) {
	body, err := c.YesterdayStepsRaw(ctx, player)
	if err != nil {
		return -1, err
	}
	return ParseSteps(body)
}

// ClaimStatus returns the claim state. A negative minSteps selects the identity-only
// shape (no query parameters).
func (c *Client) ClaimStatus(ctx context.Context, player string, minSteps int64, day string) (domain.ClaimStatus, error) {
	body, err := c.exec.Execute(ctx, Get("claim-status", playerPath(player, "/claim-status"), claimQuery(minSteps, day), true))
	if err != nil {
		return domain.ClaimStatus{}, err
	}
	return ParseClaimStatus(body)
}

// ClaimStatusList returns every claim status row for the player.
func (c *Client) ClaimStatusList(ctx context.Context, player string) ([]domain.ClaimStatusItem, error) {
	body, err := c.exec.Execute(ctx, Get("claim-status-list", playerPath(player, "/claim-status-list"), nil, true))
	if err != nil {
		return nil, err
	}
	return ParseClaimStatusList(body)
}

// ClaimAvailableRaw returns the raw claim-available payload; debug asks the backend to
// explain why nothing is claimable.
func (c *Client) ClaimAvailableRaw(ctx context.Context, player string, debug bool) (string, error) {
	var q url.Values
	if debug {
		q = url.Values{"debug": []string{"true"}}
	}
	return c.exec.Execute(ctx, Get("claim-available", playerPath(player, "/claim-available"), q, true))
}

// ClaimAvailable returns the claimable items for the player.
func (c *Client) ClaimAvailable(ctx context.Context, player string) ([]domain.ClaimableItem, error) {
	body, err := c.ClaimAvailableRaw(ctx, player, false)
	if err != nil {
		return nil, err
	}
	return ParseClaimableItems(body)
}

// ClaimReward commits a claim. Not retried: the commit has a side effect on the ledger.
func (c *Client) ClaimReward(ctx context.Context, player string, minSteps int64, day string) (string, error) {
	return c.exec.Execute(ctx, Post("claim-reward", playerPath(player, "/claim-reward"), claimQuery(minSteps, day), nil, false))
}

// RewardsRaw returns the raw catalog payload.
func (c *Client) RewardsRaw(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Get("rewards", "/v1/servers/rewards", nil, true))
}

// Rewards fetches and parses the reward tier catalog.
func (c *Client) Rewards(ctx context.Context) ([]domain.RewardTier, error) {
	body, err := c.RewardsRaw(ctx)
	if err != nil {
		return nil, err
	}
	return ParseRewardTiers(body)
}

// SeedDefaultRewards asks the backend to install its default catalog.
func (c *Client) SeedDefaultRewards(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Post("rewards-default", "/v1/servers/rewards/default", nil, nil, false))
}

// Ban bans a player with an optional reason.
func (c *Client) Ban(ctx context.Context, player, reason string) (string, error) {
	body, err := json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: reason})
	if err != nil {
		return "", fmt.Errorf("marshal ban reason: %w", err)
	}
	return c.exec.Execute(ctx, Post("ban", playerPath(player, "/ban"), nil, body, false))
}

// Unban lifts a ban.
func (c *Client) Unban(ctx context.Context, player string) (string, error) {
	return c.exec.Execute(ctx, Delete("unban", playerPath(player, "/ban"), true))
}

// DeletePlayer removes the player's data.
func (c *Client) DeletePlayer(ctx context.Context, player string) (string, error) {
	return c.exec.Execute(ctx, Delete("delete-player", playerPath(player, ""), true))
}

// Bans lists all bans on this server.
func (c *Client) Bans(ctx context.Context) (string, error) {
	return c.exec.Execute(ctx, Get("bans", "/v1/servers/bans", nil, true))
}
