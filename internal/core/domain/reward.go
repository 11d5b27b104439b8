package domain

import "strings"

// PlayerPlaceholder is substituted with the target identity when an action runs.
const PlayerPlaceholder = "{player}"

// RewardTier is one bracket of the server reward catalog.
type RewardTier struct {
	MinSteps int64    `json:"min_steps"`
	Label    string   `json:"label"`
	Actions  []string `json:"rewards"`
}

// DisplayName returns the label, or "Tier <min_steps>" when the catalog left it blank.
func (t RewardTier) DisplayName() string {
	if strings.TrimSpace(t.Label) == "" {
		return "Tier " + formatInt(t.MinSteps)
	}
	return t.Label
}

// RenderActions returns the tier's actions with the placeholder replaced by player.
// Blank templates are skipped.
func (t RewardTier) RenderActions(player string) []string {
	out := make([]string, 0, len(t.Actions))
	for _, raw := range t.Actions {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(strings.ReplaceAll(raw, PlayerPlaceholder, player)))
	}
	return out
}

// ClaimableItem is one unclaimed (day, threshold) pair for a player.
type ClaimableItem struct {
	Day      string `json:"day"`
	MinSteps int64  `json:"min_steps"`
	Label    string `json:"label"`
	ItemID   string `json:"item_id,omitempty"`
}

// ClaimStatus is the commit state of a claim.
type ClaimStatus struct {
	Claimed   bool   `json:"claimed"`
	ClaimedAt string `json:"claimed_at,omitempty"`
}

// ClaimStatusItem is one row of the claim-status-list endpoint.
type ClaimStatusItem struct {
	Day       string `json:"day"`
	MinSteps  int64  `json:"min_steps"`
	Label     string `json:"label"`
	Claimed   bool   `json:"claimed"`
	ClaimedAt string `json:"claimed_at,omitempty"`
}
