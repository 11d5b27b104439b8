package claim

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/vietddude/stepbridge/internal/bridge"
	"github.com/vietddude/stepbridge/internal/infra/storage"
)

// DefaultAutoClaimDelay is how long after a join the auto-claim runs.
const DefaultAutoClaimDelay = 5 * time.Second

// Credentials reports whether the backend API key is set.
type Credentials interface {
	Configured() bool
}

// AutoClaimer claims opted-in thresholds shortly after a player joins. Failures are
// logged and dropped since nobody asked for the claim.
type AutoClaimer struct {
	orch   *Orchestrator
	optIns storage.OptInRepository
	creds  Credentials
	sched  *bridge.Scheduler
	delay  time.Duration
	log    *slog.Logger
}

// NewAutoClaimer creates an auto-claimer.
func NewAutoClaimer(
	orch *Orchestrator,
	optIns storage.OptInRepository,
	creds Credentials,
	sched *bridge.Scheduler,
	delay time.Duration,
	log *slog.Logger,
) *AutoClaimer {
	if delay <= 0 {
		delay = DefaultAutoClaimDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &AutoClaimer{
		orch:   orch,
		optIns: optIns,
		creds:  creds,
		sched:  sched,
		delay:  delay,
		log:    log.With("component", "autoclaim"),
	}
}

// Schedule arms an auto-claim for target. It returns nil when nothing is armed: no
// API key, or the player opted into nothing.
func (a *AutoClaimer) Schedule(ctx context.Context, target string) *bridge.Timer {
	if !a.creds.Configured() {
		return nil
	}
	ok, err := a.optIns.HasAny(ctx, target)
	if err != nil {
		a.log.Debug("Opt-in lookup failed", "target", target, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	return a.sched.Schedule(a.delay, func() {
		a.sched.RunAsync(ctx, func(ctx context.Context) (any, error) {
			n, err := a.Run(ctx, target)
			if err != nil {
				a.log.Debug("Auto-claim failed", "target", target, "error", err)
			}
			return n, nil
		})
	})
}

// Run claims every currently claimable item whose threshold target opted into and
// returns how many were claimed.
func (a *AutoClaimer) Run(ctx context.Context, target string) (int, error) {
	enabled, err := a.optIns.Enabled(ctx, target)
	if err != nil {
		return 0, err
	}
	if len(enabled) == 0 {
		return 0, nil
	}

	items, err := a.orch.backend.ClaimAvailable(ctx, target)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for _, item := range items {
		if !slices.Contains(enabled, item.MinSteps) {
			continue
		}
		res, err := a.orch.claimFor(ctx, ModeAuto, target, item.Day, item.MinSteps)
		if err != nil {
			a.log.Debug("Auto-claim item failed",
				"target", target, "day", item.Day, "min_steps", item.MinSteps, "error", err)
			continue
		}
		if res.State == StateDone {
			claimed++
		}
	}
	if claimed > 0 {
		a.log.Info("Auto-claimed rewards", "target", target, "count", claimed)
	}
	return claimed, nil
}
