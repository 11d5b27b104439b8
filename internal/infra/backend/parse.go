package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// checkPayload rejects error sentinels and blank bodies before decoding.
func checkPayload(body string) (bool, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || trimmed == NoResponseBody {
		return false, nil
	}
	if domain.IsErrorText(trimmed) {
		return false, &domain.RemoteError{Status: "error payload", Body: trimmed}
	}
	return true, nil
}

// ParseRewardTiers decodes {"tiers":[{min_steps,label,rewards}]}. Missing labels
// default to "" and missing rewards to an empty list.
func ParseRewardTiers(body string) ([]domain.RewardTier, error) {
	ok, err := checkPayload(body)
	if err != nil || !ok {
		return []domain.RewardTier{}, err
	}

	var root struct {
		Tiers []struct {
			MinSteps *int64           `json:"min_steps"`
			Label    *string          `json:"label"`
			Rewards  []json.RawMessage `json:"rewards"`
		} `json:"tiers"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("parse reward tiers: %w", err)
	}

	tiers := make([]domain.RewardTier, 0, len(root.Tiers))
	for _, t := range root.Tiers {
		tier := domain.RewardTier{Actions: []string{}}
		if t.MinSteps != nil {
			tier.MinSteps = *t.MinSteps
		}
		if t.Label != nil {
			tier.Label = *t.Label
		}
		for _, raw := range t.Rewards {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				tier.Actions = append(tier.Actions, s)
			}
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// ParseClaimStatus decodes {"claimed":bool,"claimed_at":string?}.
func ParseClaimStatus(body string) (domain.ClaimStatus, error) {
	ok, err := checkPayload(body)
	if err != nil || !ok {
		return domain.ClaimStatus{}, err
	}
	var status domain.ClaimStatus
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		return domain.ClaimStatus{}, fmt.Errorf("parse claim status: %w", err)
	}
	return status, nil
}

// ParseClaimStatusList decodes {"items":[{day,min_steps,label,claimed,claimed_at}]}.
func ParseClaimStatusList(body string) ([]domain.ClaimStatusItem, error) {
	ok, err := checkPayload(body)
	if err != nil || !ok {
		return []domain.ClaimStatusItem{}, err
	}
	var root struct {
		Items []domain.ClaimStatusItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("parse claim status list: %w", err)
	}
	if root.Items == nil {
		root.Items = []domain.ClaimStatusItem{}
	}
	return root.Items, nil
}

// ParseClaimableItems decodes {"items":[{day,min_steps,label,item_id?}]}.
func ParseClaimableItems(body string) ([]domain.ClaimableItem, error) {
	ok, err := checkPayload(body)
	if err != nil || !ok {
		return []domain.ClaimableItem{}, err
	}
	var root struct {
		Items []domain.ClaimableItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("parse claimable items: %w", err)
	}
	if root.Items == nil {
		root.Items = []domain.ClaimableItem{}
	}
	return root.Items, nil
}

// ParseSteps decodes {"steps_yesterday":n}. A missing value yields -1.
func ParseSteps(body string) (int64, error) {
	ok, err := checkPayload(body)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, nil
	}
	var root struct {
		Steps *int64 `json:"steps_yesterday"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return -1, fmt.Errorf("parse steps: %w", err)
	}
	if root.Steps == nil {
		return -1, nil
	}
	return *root.Steps, nil
}

// ParsePlayerPage decodes {"players":[{"minecraft_username":...}],"total_players":n}.
func ParsePlayerPage(body string) (domain.PlayerPage, error) {
	page := domain.PlayerPage{Names: []string{}}
	ok, err := checkPayload(body)
	if err != nil || !ok {
		return page, err
	}
	var root struct {
		Total   int `json:"total_players"`
		Players []struct {
			Username string `json:"minecraft_username"`
		} `json:"players"`
	}
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return page, fmt.Errorf("parse player page: %w", err)
	}
	page.Total = root.Total
	for _, p := range root.Players {
		if p.Username != "" {
			page.Names = append(page.Names, p.Username)
		}
	}
	return page, nil
}
