package claim

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// MissingTierNote is recorded for an item whose threshold is not in the catalog.
const MissingTierNote = "missing tier"

// ItemResult is the outcome for one claimable item of a batch.
type ItemResult struct {
	Item   domain.ClaimableItem
	Result *Result
	Err    error
	Note   string
}

// OK reports whether the item was claimed or was already claimed.
func (i ItemResult) OK() bool {
	return i.Err == nil && i.Note == "" && i.Result != nil &&
		(i.Result.State == StateDone || i.Result.State == StateAlreadyClaimed)
}

// Line renders the item for the batch summary.
func (i ItemResult) Line() string {
	label := i.Item.Label
	if label == "" {
		label = fmt.Sprintf("Tier %d", i.Item.MinSteps)
	}
	prefix := fmt.Sprintf("%s %s (%d):", dayLabel(i.Item.Day), label, i.Item.MinSteps)
	switch {
	case i.Note != "":
		return prefix + " " + i.Note
	case i.Err != nil:
		return prefix + " " + domain.Describe(i.Err)
	case i.Result != nil:
		return prefix + " " + i.Result.Summary()
	default:
		return prefix
	}
}

// BatchResult is the outcome of ClaimAll.
type BatchResult struct {
	BatchID string
	Target  string
	Items   []ItemResult
	Debug   string
}

// Claimed counts items that ended claimed.
func (b *BatchResult) Claimed() int {
	n := 0
	for _, it := range b.Items {
		if it.OK() {
			n++
		}
	}
	return n
}

// Lines renders one line per item.
func (b *BatchResult) Lines() []string {
	lines := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		lines = append(lines, it.Line())
	}
	return lines
}

// Summary renders the whole batch.
func (b *BatchResult) Summary() string {
	if len(b.Items) == 0 {
		msg := "No claimable rewards."
		if strings.TrimSpace(b.Debug) != "" {
			msg += "\nDebug: " + b.Debug
		}
		return msg
	}
	header := fmt.Sprintf("Claimed %d of %d rewards.", b.Claimed(), len(b.Items))
	return header + "\n" + strings.Join(b.Lines(), "\n")
}

// ClaimAll claims every claimable item for target in order. One catalog snapshot is
// used for the whole batch. A failing item is recorded and the batch moves on.
func (o *Orchestrator) ClaimAll(ctx context.Context, target string) (*BatchResult, error) {
	unlock, err := o.lock(ctx, target)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batch := &BatchResult{BatchID: uuid.NewString(), Target: target}
	log := o.log.With("batch_id", batch.BatchID, "target", target)

	items, err := o.backend.ClaimAvailable(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		debug, derr := o.backend.ClaimAvailableRaw(ctx, target, true)
		if derr != nil {
			log.Debug("Claim debug fetch failed", "error", derr)
		} else {
			batch.Debug = debug
		}
		return batch, nil
	}

	cat, err := o.catalogs.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		ir := ItemResult{Item: item}
		tier, ok := cat.Exact(item.MinSteps)
		if !ok {
			ir.Note = MissingTierNote
			log.Warn("No catalog tier for claimable item", "day", item.Day, "min_steps", item.MinSteps)
			batch.Items = append(batch.Items, ir)
			continue
		}

		r := o.newRun(target, ModeBatch)
		r.res.Day = item.Day
		ir.Result, ir.Err = r.checkApplyCommit(ctx, item.Day, tier)
		o.record(ModeBatch, ir.Result, ir.Err)
		batch.Items = append(batch.Items, ir)
	}

	log.Info("Batch claim finished", "claimed", batch.Claimed(), "items", len(batch.Items))
	return batch, nil
}
