package claim

import (
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// State is a step of the claim workflow.
type State string

const (
	StateCheckingStatus  State = "checking_status"
	StateFetchingSteps   State = "fetching_steps"
	StateResolvingTier   State = "resolving_tier"
	StateApplyingActions State = "applying_actions"
	StateCommitting      State = "committing"
	StateDone            State = "done"
	StateAlreadyClaimed  State = "already_claimed"
	StateNoTier          State = "no_tier"
	StateFailed          State = "failed"
)

// Terminal reports whether the workflow stops in this state.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateAlreadyClaimed, StateNoTier, StateFailed:
		return true
	}
	return false
}

// Mode is how a workflow was started. Used as a metrics label.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeTargeted Mode = "targeted"
	ModeBatch    Mode = "batch"
	ModeAuto     Mode = "auto"
)

// Transition is reported to the Observer on every state change.
type Transition struct {
	RunID  string
	Target string
	From   State
	To     State
	At     time.Time
}

// Observer receives workflow transitions. It runs on the workflow's goroutine and
// must not block.
type Observer func(Transition)

// Result is the outcome of one claim workflow.
type Result struct {
	RunID          string
	Target         string
	State          State
	Day            string
	Steps          int64
	MinSteps       int64
	Tier           *domain.RewardTier
	ClaimedAt      string
	CommitResponse string
	Path           []State
}

// Summary renders the outcome the way the admin UI shows it.
func (r *Result) Summary() string {
	switch r.State {
	case StateAlreadyClaimed:
		if strings.TrimSpace(r.ClaimedAt) != "" {
			return "Already claimed at " + r.ClaimedAt + "."
		}
		return "Already claimed."
	case StateNoTier:
		return fmt.Sprintf("No reward tier for %d steps.", r.Steps)
	case StateDone:
		label := ""
		if r.Tier != nil {
			label = r.Tier.DisplayName()
		}
		if r.Steps >= 0 {
			return fmt.Sprintf("Tier: %s (%d steps). Claim: %s", label, r.Steps, r.CommitResponse)
		}
		return fmt.Sprintf("Tier: %s (%s, %d steps). Claim: %s", label, dayLabel(r.Day), r.MinSteps, r.CommitResponse)
	default:
		return string(r.State)
	}
}

func dayLabel(day string) string {
	if day == "" {
		return "yesterday"
	}
	return day
}
