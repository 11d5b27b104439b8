package claim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/reward"
)

type claimCall struct {
	Target   string
	MinSteps int64
	Day      string
}

type fakeBackend struct {
	mu        sync.Mutex
	steps     map[string]int64
	items     map[string][]domain.ClaimableItem
	debug     string
	claimed   map[string]string
	claims    []claimCall
	claimErr  error
	statusErr error
	debugErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		steps:   make(map[string]int64),
		items:   make(map[string][]domain.ClaimableItem),
		claimed: make(map[string]string),
	}
}

func statusKey(target string, minSteps int64, day string) string {
	return fmt.Sprintf("%s|%d|%s", target, minSteps, day)
}

func (f *fakeBackend) ClaimStatus(ctx context.Context, player string, minSteps int64, day string) (domain.ClaimStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return domain.ClaimStatus{}, f.statusErr
	}
	if minSteps < 0 {
		for _, c := range f.claims {
			if c.Target == player {
				return domain.ClaimStatus{Claimed: true, ClaimedAt: f.claimed[statusKey(c.Target, c.MinSteps, c.Day)]}, nil
			}
		}
		return domain.ClaimStatus{}, nil
	}
	at, ok := f.claimed[statusKey(player, minSteps, day)]
	return domain.ClaimStatus{Claimed: ok, ClaimedAt: at}, nil
}

func (f *fakeBackend) YesterdaySteps(ctx context.Context, player string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps, ok := f.steps[player]
	if !ok {
		return -1, nil
	}
	return steps, nil
}

func (f *fakeBackend) ClaimAvailable(ctx context.Context, player string) ([]domain.ClaimableItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[player], nil
}

func (f *fakeBackend) ClaimAvailableRaw(ctx context.Context, player string, debug bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debugErr != nil {
		return "", f.debugErr
	}
	return f.debug, nil
}

func (f *fakeBackend) ClaimReward(ctx context.Context, player string, minSteps int64, day string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return "", f.claimErr
	}
	f.claims = append(f.claims, claimCall{Target: player, MinSteps: minSteps, Day: day})
	f.claimed[statusKey(player, minSteps, day)] = "2026-10-18T08:00:00Z"
	return `{"ok":true}`, nil
}

func (f *fakeBackend) claimCalls() []claimCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]claimCall(nil), f.claims...)
}

type staticCatalog struct {
	tiers     []domain.RewardTier
	refreshes atomic.Int32
}

func (s *staticCatalog) Refresh(ctx context.Context) (*reward.Catalog, error) {
	s.refreshes.Add(1)
	return reward.NewCatalog(s.tiers), nil
}

type inlineMain struct{}

func (inlineMain) CallOnMain(ctx context.Context, fn func() error) error {
	return fn()
}

type recordingRunner struct {
	mu       sync.Mutex
	commands [][]string
	err      error
	delay    time.Duration
	active   atomic.Int32
	overlap  atomic.Bool
}

func (r *recordingRunner) Run(ctx context.Context, target string, commands []string) error {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, commands)
	return r.err
}

func (r *recordingRunner) calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.commands...)
}

func goldCatalog() []domain.RewardTier {
	return []domain.RewardTier{
		{MinSteps: 0, Label: "Starter"},
		{MinSteps: 5000, Label: "Bronze", Actions: []string{"give {player} iron_ingot 1"}},
		{MinSteps: 10000, Label: "Gold", Actions: []string{"give {player} gold_ingot 1"}},
	}
}

type staticCreds bool

func (c staticCreds) Configured() bool { return bool(c) }
