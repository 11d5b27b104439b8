package domain

import (
	"strconv"
	"strings"
)

// PlayerPage is one page of the registered player listing.
type PlayerPage struct {
	Names []string
	Total int
}

// PlayerAction is what the admin wants to do with a selected player.
type PlayerAction string

const (
	ActionNone           PlayerAction = "none"
	ActionBan            PlayerAction = "ban"
	ActionUnban          PlayerAction = "unban"
	ActionDelete         PlayerAction = "delete"
	ActionClaimReward    PlayerAction = "claim_reward"
	ActionClaimStatus    PlayerAction = "claim_status"
	ActionYesterdaySteps PlayerAction = "yesterday_steps"
)

var actionLabels = map[PlayerAction]string{
	ActionNone:           "Open Menu",
	ActionBan:            "Ban",
	ActionUnban:          "Unban",
	ActionDelete:         "Delete",
	ActionClaimReward:    "Claim Reward",
	ActionClaimStatus:    "Claim Status",
	ActionYesterdaySteps: "Day Steps",
}

// Label returns the menu label of the action.
func (a PlayerAction) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return actionLabels[ActionNone]
}

// Destructive reports whether the action needs a confirmation step.
func (a PlayerAction) Destructive() bool {
	return a == ActionBan || a == ActionUnban || a == ActionDelete
}

// ParsePlayerAction maps a user-typed name to an action. Unknown names map to ActionNone.
func ParsePlayerAction(s string) PlayerAction {
	s = strings.ToLower(strings.TrimSpace(s))
	for a := range actionLabels {
		if string(a) == s {
			return a
		}
	}
	return ActionNone
}

// NormalizePlayer is the key used for per-player local state.
func NormalizePlayer(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
