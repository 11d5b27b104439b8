package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

func TestClaimAll_MissingTierDoesNotAbort(t *testing.T) {
	be := newFakeBackend()
	be.items["alex"] = []domain.ClaimableItem{
		{Day: "2026-10-15", MinSteps: 5000, Label: "Bronze"},
		{Day: "2026-10-16", MinSteps: 7500, Label: "Silver"},
		{Day: "2026-10-17", MinSteps: 10000, Label: "Gold"},
	}
	cat := &staticCatalog{tiers: goldCatalog()}
	runner := &recordingRunner{}
	orch := NewOrchestrator(be, cat, inlineMain{}, runner)

	batch, err := orch.ClaimAll(context.Background(), "alex")
	require.NoError(t, err)
	require.Len(t, batch.Items, 3)

	assert.True(t, batch.Items[0].OK())
	assert.Equal(t, MissingTierNote, batch.Items[1].Note)
	assert.False(t, batch.Items[1].OK())
	assert.True(t, batch.Items[2].OK())
	assert.Equal(t, 2, batch.Claimed())
	assert.Equal(t, int32(1), cat.refreshes.Load(), "one catalog fetch per batch")

	lines := batch.Lines()
	assert.Contains(t, lines[0], "Tier: Bronze")
	assert.Contains(t, lines[1], "missing tier")
	assert.Contains(t, lines[2], "Tier: Gold")
	assert.Contains(t, batch.Summary(), "Claimed 2 of 3 rewards.")

	assert.Equal(t, [][]string{{"give alex iron_ingot 1"}, {"give alex gold_ingot 1"}}, runner.calls())
	calls := be.claimCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, claimCall{Target: "alex", MinSteps: 5000, Day: "2026-10-15"}, calls[0])
	assert.Equal(t, claimCall{Target: "alex", MinSteps: 10000, Day: "2026-10-17"}, calls[1])
}

func TestClaimAll_ItemFailureRecordedInline(t *testing.T) {
	be := newFakeBackend()
	be.items["alex"] = []domain.ClaimableItem{
		{Day: "2026-10-16", MinSteps: 5000, Label: "Bronze"},
		{Day: "2026-10-17", MinSteps: 10000, Label: "Gold"},
	}
	be.claimErr = &domain.RemoteError{Code: 409, Status: "Conflict"}
	orch := NewOrchestrator(be, &staticCatalog{tiers: goldCatalog()}, inlineMain{}, &recordingRunner{})

	batch, err := orch.ClaimAll(context.Background(), "alex")
	require.NoError(t, err)
	require.Len(t, batch.Items, 2)
	for _, it := range batch.Items {
		var pc *domain.PartialCommitError
		assert.ErrorAs(t, it.Err, &pc)
		assert.Contains(t, it.Line(), "WARNING")
	}
	assert.Equal(t, 0, batch.Claimed())
}

func TestClaimAll_EmptyFetchesDebug(t *testing.T) {
	be := newFakeBackend()
	be.debug = `{"items":[],"reason":"no steps synced"}`
	cat := &staticCatalog{tiers: goldCatalog()}
	orch := NewOrchestrator(be, cat, inlineMain{}, &recordingRunner{})

	batch, err := orch.ClaimAll(context.Background(), "alex")
	require.NoError(t, err)
	assert.Empty(t, batch.Items)
	assert.Contains(t, batch.Summary(), "No claimable rewards.")
	assert.Contains(t, batch.Summary(), "no steps synced")
	assert.Equal(t, int32(0), cat.refreshes.Load())
}

func TestClaimAll_DebugFailureDoesNotMaskEmpty(t *testing.T) {
	be := newFakeBackend()
	be.debugErr = errors.New("debug endpoint down")
	orch := NewOrchestrator(be, &staticCatalog{tiers: goldCatalog()}, inlineMain{}, &recordingRunner{})

	batch, err := orch.ClaimAll(context.Background(), "alex")
	require.NoError(t, err)
	assert.Equal(t, "No claimable rewards.", batch.Summary())
}
