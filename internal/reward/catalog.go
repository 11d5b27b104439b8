// Package reward holds the reward tier catalog and tier resolution.
package reward

import (
	"github.com/vietddude/stepbridge/internal/core/domain"
)

// ResolveTier returns the tier with the largest MinSteps that is <= steps.
// Tiers sharing a threshold resolve to the first one in catalog order.
// It returns false when no tier qualifies, including negative steps and an empty catalog.
func ResolveTier(tiers []domain.RewardTier, steps int64) (domain.RewardTier, bool) {
	if steps < 0 {
		return domain.RewardTier{}, false
	}
	best := -1
	for i, t := range tiers {
		if t.MinSteps > steps {
			continue
		}
		if best < 0 || t.MinSteps > tiers[best].MinSteps {
			best = i
		}
	}
	if best < 0 {
		return domain.RewardTier{}, false
	}
	return tiers[best], true
}

// FindExact returns the first tier whose MinSteps equals minSteps.
func FindExact(tiers []domain.RewardTier, minSteps int64) (domain.RewardTier, bool) {
	for _, t := range tiers {
		if t.MinSteps == minSteps {
			return t, true
		}
	}
	return domain.RewardTier{}, false
}

// Catalog is an immutable snapshot of the tier list fetched for one workflow run.
type Catalog struct {
	tiers []domain.RewardTier
}

// NewCatalog copies tiers into a snapshot.
func NewCatalog(tiers []domain.RewardTier) *Catalog {
	cp := make([]domain.RewardTier, len(tiers))
	for i, t := range tiers {
		t.Actions = append([]string(nil), t.Actions...)
		cp[i] = t
	}
	return &Catalog{tiers: cp}
}

// Tiers returns a copy of the tiers in catalog order.
func (c *Catalog) Tiers() []domain.RewardTier {
	if c == nil {
		return nil
	}
	return append([]domain.RewardTier(nil), c.tiers...)
}

// Len returns the number of tiers.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tiers)
}

// Resolve is ResolveTier over the snapshot.
func (c *Catalog) Resolve(steps int64) (domain.RewardTier, bool) {
	if c == nil {
		return domain.RewardTier{}, false
	}
	return ResolveTier(c.tiers, steps)
}

// Exact is FindExact over the snapshot.
func (c *Catalog) Exact(minSteps int64) (domain.RewardTier, bool) {
	if c == nil {
		return domain.RewardTier{}, false
	}
	return FindExact(c.tiers, minSteps)
}
