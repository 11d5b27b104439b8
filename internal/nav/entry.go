package nav

import (
	"slices"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// Kind identifies which screen an Entry restores.
type Kind string

const (
	KindAdmin        Kind = "admin"
	KindPlayerList   Kind = "player_list"
	KindActionMenu   Kind = "action_menu"
	KindClaimRewards Kind = "claim_rewards"
	KindClaimStatus  Kind = "claim_status"
	KindSettings     Kind = "settings"
	KindRewards      Kind = "rewards"
	KindConfirm      Kind = "confirm"
)

var knownKinds = []Kind{
	KindAdmin, KindPlayerList, KindActionMenu, KindClaimRewards,
	KindClaimStatus, KindSettings, KindRewards, KindConfirm,
}

// Known reports whether the kind can be replayed.
func (k Kind) Known() bool {
	return slices.Contains(knownKinds, k)
}

// Entry is a snapshot of one screen. Only the fields for its Kind are set:
// player lists use Players, Query, Page, Total and Action; per-player screens use
// Target; confirmations use Action, Target and ReturnToList.
type Entry struct {
	Kind         Kind
	Players      []string
	Query        string
	Page         int
	Total        int
	Action       domain.PlayerAction
	Target       string
	ReturnToList bool
}

func (e Entry) clone() Entry {
	e.Players = slices.Clone(e.Players)
	return e
}

// Admin is the root menu entry.
func Admin() Entry { return Entry{Kind: KindAdmin} }

// PlayerList captures a page of the player picker.
func PlayerList(players []string, query string, page, total int, action domain.PlayerAction) Entry {
	return Entry{Kind: KindPlayerList, Players: players, Query: query, Page: page, Total: total, Action: action}
}

// ActionMenu captures the per-player action menu.
func ActionMenu(target string) Entry { return Entry{Kind: KindActionMenu, Target: target} }

// ClaimRewards captures the claimable rewards screen.
func ClaimRewards(target string) Entry { return Entry{Kind: KindClaimRewards, Target: target} }

// ClaimStatus captures the claim status screen.
func ClaimStatus(target string) Entry { return Entry{Kind: KindClaimStatus, Target: target} }

// Settings captures the settings screen.
func Settings() Entry { return Entry{Kind: KindSettings} }

// Rewards captures the reward catalog screen.
func Rewards() Entry { return Entry{Kind: KindRewards} }

// Confirm captures a pending destructive action.
func Confirm(action domain.PlayerAction, target string, returnToList bool) Entry {
	return Entry{Kind: KindConfirm, Action: action, Target: target, ReturnToList: returnToList}
}
