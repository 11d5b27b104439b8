// Package claim runs the reward claim workflow: check status, fetch steps, resolve
// the tier, apply the tier's actions on the main loop, then commit to the ledger.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/storage"
	"github.com/vietddude/stepbridge/internal/metrics"
	"github.com/vietddude/stepbridge/internal/reward"
)

// Backend is the subset of the remote API the workflow calls.
type Backend interface {
	ClaimStatus(ctx context.Context, player string, minSteps int64, day string) (domain.ClaimStatus, error)
	YesterdaySteps(ctx context.Context, player string) (int64, error)
	ClaimAvailable(ctx context.Context, player string) ([]domain.ClaimableItem, error)
	ClaimAvailableRaw(ctx context.Context, player string, debug bool) (string, error)
	ClaimReward(ctx context.Context, player string, minSteps int64, day string) (string, error)
}

// CatalogSource returns a fresh catalog snapshot for one workflow run.
type CatalogSource interface {
	Refresh(ctx context.Context) (*reward.Catalog, error)
}

// MainLoop runs fn on the host's main loop and waits for it.
type MainLoop interface {
	CallOnMain(ctx context.Context, fn func() error) error
}

// ActionRunner applies rendered reward actions. It is only called on the main loop.
type ActionRunner interface {
	Run(ctx context.Context, target string, commands []string) error
}

// ActionRunnerFunc adapts a function to ActionRunner.
type ActionRunnerFunc func(ctx context.Context, target string, commands []string) error

func (f ActionRunnerFunc) Run(ctx context.Context, target string, commands []string) error {
	return f(ctx, target, commands)
}

// Orchestrator runs claim workflows. Workflows for the same target never interleave.
type Orchestrator struct {
	backend  Backend
	catalogs CatalogSource
	main     MainLoop
	runner   ActionRunner

	journal  storage.PendingCommitRepository
	locker   Locker
	observer Observer
	log      *slog.Logger
	now      func() time.Time
	dayLoc   *time.Location

	targets *keyedMutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal records partial commits for the recovery worker.
func WithJournal(j storage.PendingCommitRepository) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithLocker adds a cross-process lock on top of the in-process one.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithObserver reports every state transition.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithDayLocation sets the time zone the backend counts days in. Defaults to UTC.
func WithDayLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		if loc != nil {
			o.dayLoc = loc
		}
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(b Backend, catalogs CatalogSource, main MainLoop, runner ActionRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  b,
		catalogs: catalogs,
		main:     main,
		runner:   runner,
		log:      slog.Default(),
		now:      time.Now,
		dayLoc:   time.UTC,
		targets:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("component", "claim")
	return o
}

// Claim runs the single-target workflow with status keyed by identity only: the
// backend decides which day and threshold are being claimed.
func (o *Orchestrator) Claim(ctx context.Context, target string) (*Result, error) {
	unlock, err := o.lock(ctx, target)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := o.newRun(target, ModeSingle)
	res, err := r.claimByIdentity(ctx)
	o.record(ModeSingle, res, err)
	return res, err
}

// ClaimFor runs the workflow for one (day, threshold) pair. A negative minSteps means
// the threshold is not known yet: yesterday's steps are resolved to a tier first and
// that tier's threshold is used for the status check and the commit.
func (o *Orchestrator) ClaimFor(ctx context.Context, target, day string, minSteps int64) (*Result, error) {
	return o.claimFor(ctx, ModeTargeted, target, day, minSteps)
}

func (o *Orchestrator) claimFor(ctx context.Context, mode Mode, target, day string, minSteps int64) (*Result, error) {
	unlock, err := o.lock(ctx, target)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := o.newRun(target, mode)
	res, err := r.claimByThreshold(ctx, day, minSteps)
	o.record(mode, res, err)
	return res, err
}

func (o *Orchestrator) lock(ctx context.Context, target string) (func(), error) {
	key := domain.NormalizePlayer(target)
	unlock, err := o.targets.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	if o.locker == nil {
		return unlock, nil
	}
	remote, err := o.locker.Lock(ctx, target)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		remote()
		unlock()
	}, nil
}

func (o *Orchestrator) record(mode Mode, res *Result, err error) {
	outcome := string(StateFailed)
	var pc *domain.PartialCommitError
	switch {
	case errors.As(err, &pc):
		outcome = "partial_commit"
	case err == nil && res != nil:
		outcome = string(res.State)
	}
	metrics.ClaimsTotal.WithLabelValues(string(mode), outcome).Inc()
}

// run is one workflow execution. It is confined to the calling goroutine.
type run struct {
	o      *Orchestrator
	res    *Result
	log    *slog.Logger
	state  State
	target string
}

func (o *Orchestrator) newRun(target string, mode Mode) *run {
	id := uuid.NewString()
	return &run{
		o:      o,
		target: target,
		res:    &Result{RunID: id, Target: target, Steps: -1, MinSteps: -1},
		log:    o.log.With("run_id", id, "target", target, "mode", string(mode)),
	}
}

func (r *run) enter(s State) {
	from := r.state
	r.state = s
	r.res.State = s
	r.res.Path = append(r.res.Path, s)
	r.log.Debug("Claim transition", "from", string(from), "to", string(s))
	if r.o.observer != nil {
		r.o.observer(Transition{RunID: r.res.RunID, Target: r.target, From: from, To: s, At: r.o.now()})
	}
}

func (r *run) fail(err error) (*Result, error) {
	r.enter(StateFailed)
	r.log.Warn("Claim failed", "error", err)
	return r.res, err
}

func (r *run) finish(s State) (*Result, error) {
	r.enter(s)
	r.log.Info("Claim finished", "state", string(s), "summary", r.res.Summary())
	return r.res, nil
}

func (r *run) claimByIdentity(ctx context.Context) (*Result, error) {
	r.enter(StateCheckingStatus)
	st, err := r.o.backend.ClaimStatus(ctx, r.target, -1, "")
	if err != nil {
		return r.fail(err)
	}
	if st.Claimed {
		r.res.ClaimedAt = st.ClaimedAt
		return r.finish(StateAlreadyClaimed)
	}

	if _, err := r.fetchSteps(ctx); err != nil {
		return r.fail(err)
	}

	r.enter(StateResolvingTier)
	cat, err := r.o.catalogs.Refresh(ctx)
	if err != nil {
		return r.fail(err)
	}
	tier, ok := cat.Resolve(r.res.Steps)
	if !ok {
		return r.finish(StateNoTier)
	}
	return r.applyAndCommit(ctx, "", tier)
}

func (r *run) claimByThreshold(ctx context.Context, day string, minSteps int64) (*Result, error) {
	r.res.Day = day

	if minSteps < 0 {
		if _, err := r.fetchSteps(ctx); err != nil {
			return r.fail(err)
		}
	}

	r.enter(StateResolvingTier)
	cat, err := r.o.catalogs.Refresh(ctx)
	if err != nil {
		return r.fail(err)
	}
	var tier domain.RewardTier
	if minSteps < 0 {
		var ok bool
		if tier, ok = cat.Resolve(r.res.Steps); !ok {
			return r.finish(StateNoTier)
		}
	} else {
		var ok bool
		if tier, ok = cat.Exact(minSteps); !ok {
			return r.fail(&domain.WorkflowError{
				Kind:   domain.WorkflowMissingTier,
				Player: r.target,
				Err:    fmt.Errorf("no catalog tier with min_steps %d", minSteps),
			})
		}
	}
	return r.checkApplyCommit(ctx, day, tier)
}

// checkApplyCommit checks status for the exact (day, threshold) pair and then claims it.
func (r *run) checkApplyCommit(ctx context.Context, day string, tier domain.RewardTier) (*Result, error) {
	r.res.MinSteps = tier.MinSteps
	r.res.Tier = &tier

	r.enter(StateCheckingStatus)
	st, err := r.o.backend.ClaimStatus(ctx, r.target, tier.MinSteps, day)
	if err != nil {
		return r.fail(err)
	}
	if st.Claimed {
		r.res.ClaimedAt = st.ClaimedAt
		return r.finish(StateAlreadyClaimed)
	}
	return r.applyAndCommit(ctx, day, tier)
}

func (r *run) fetchSteps(ctx context.Context) (int64, error) {
	r.enter(StateFetchingSteps)
	steps, err := r.o.backend.YesterdaySteps(ctx, r.target)
	if err != nil {
		return -1, err
	}
	if steps < 0 {
		return -1, &domain.WorkflowError{Kind: domain.WorkflowNoSteps, Player: r.target, Err: domain.ErrNoSteps}
	}
	r.res.Steps = steps
	return steps, nil
}

func (r *run) applyAndCommit(ctx context.Context, day string, tier domain.RewardTier) (*Result, error) {
	r.res.MinSteps = tier.MinSteps
	r.res.Tier = &tier

	// An identity-only commit means "yesterday" as of when the actions ran. Pin that
	// date so a later retry cannot land on a different day.
	journalDay := day
	if journalDay == "" {
		journalDay = r.o.yesterday()
	}

	r.enter(StateApplyingActions)
	commands := tier.RenderActions(r.target)
	err := r.o.main.CallOnMain(ctx, func() error {
		return r.o.runner.Run(ctx, r.target, commands)
	})
	if err != nil {
		return r.fail(&domain.WorkflowError{Kind: domain.WorkflowAction, Player: r.target, Err: err})
	}

	r.enter(StateCommitting)
	resp, err := r.o.backend.ClaimReward(ctx, r.target, tier.MinSteps, day)
	if err != nil {
		pc := &domain.PartialCommitError{
			Player:   r.target,
			Day:      journalDay,
			MinSteps: tier.MinSteps,
			Tier:     tier.DisplayName(),
			Err:      err,
		}
		r.journal(ctx, pc)
		return r.fail(pc)
	}
	r.res.CommitResponse = resp
	return r.finish(StateDone)
}

func (o *Orchestrator) yesterday() string {
	return o.now().In(o.dayLoc).AddDate(0, 0, -1).Format(time.DateOnly)
}

func (r *run) journal(ctx context.Context, pc *domain.PartialCommitError) {
	if r.o.journal == nil {
		r.log.Error("Partial commit not journaled", "error", pc)
		return
	}
	entry := &domain.PendingCommit{
		Player:    pc.Player,
		Day:       pc.Day,
		MinSteps:  pc.MinSteps,
		TierLabel: pc.Tier,
		Steps:     r.res.Steps,
		Error:     pc.Err.Error(),
		Status:    domain.PendingCommitStatusPending,
	}
	// The workflow ctx may be the reason the commit failed.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.o.journal.Add(jctx, entry); err != nil {
		r.log.Error("Failed to journal partial commit", "error", err, "min_steps", pc.MinSteps)
		return
	}
	metrics.PendingCommits.Inc()
	r.log.Warn("Journaled partial commit", "pending_id", entry.ID, "min_steps", pc.MinSteps, "day", pc.Day)
}
