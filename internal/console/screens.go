package console

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/nav"
)

var menuActions = []domain.PlayerAction{
	domain.ActionClaimReward,
	domain.ActionClaimStatus,
	domain.ActionYesterdaySteps,
	domain.ActionBan,
	domain.ActionUnban,
	domain.ActionDelete,
}

func (c *Console) render(ctx context.Context, e nav.Entry) error {
	switch e.Kind {
	case nav.KindAdmin:
		c.renderAdmin()
	case nav.KindPlayerList:
		c.renderPlayers(e)
	case nav.KindActionMenu:
		c.println("Player:", e.Target)
		for _, a := range menuActions {
			c.println(fmt.Sprintf("  do %-16s %s", a, a.Label()))
		}
	case nav.KindClaimRewards:
		return c.renderClaimable(ctx, e.Target)
	case nav.KindClaimStatus:
		return c.renderStatus(ctx, e.Target)
	case nav.KindSettings:
		return c.renderSettings(ctx)
	case nav.KindRewards:
		return c.renderCatalog(ctx)
	case nav.KindConfirm:
		c.println(fmt.Sprintf("%s %s? (yes/no)", e.Action.Label(), e.Target))
	default:
		return fmt.Errorf("unknown screen %q", e.Kind)
	}
	return nil
}

func (c *Console) renderAdmin() {
	c.println("StepCraft admin")
	c.println("  players [query]        list players")
	c.println("  select <action> [q]    list players to ban, unban, delete, claim_reward...")
	c.println("  open <player>          player actions")
	c.println("  claim <player>         claim yesterday's reward")
	c.println("  claim-all <player>     claim every claimable reward")
	c.println("  rewards <player>       list claimable rewards")
	c.println("  status <player>        claim status list")
	c.println("  steps <player>         yesterday's steps")
	c.println("  catalog                reward tiers")
	c.println("  settings               API key and auto-claim")
	c.println("  back | quit")
}

func (c *Console) openPlayers(ctx context.Context, action domain.PlayerAction, query string, page int) error {
	e, err := c.fetchPlayers(ctx, action, query, page)
	if err != nil {
		return err
	}
	return c.open(ctx, nav.Transition{}, e)
}

func (c *Console) fetchPlayers(ctx context.Context, action domain.PlayerAction, query string, page int) (nav.Entry, error) {
	res, err := call(ctx, c, func(ctx context.Context) (domain.PlayerPage, error) {
		return c.deps.Backend.ListPlayers(ctx, PageSize, page*PageSize, query)
	})
	if err != nil {
		return nav.Entry{}, err
	}
	return nav.PlayerList(res.Names, query, page, res.Total, action), nil
}

// page moves within the current list. Paging replaces the screen instead of adding
// history.
func (c *Console) page(ctx context.Context, delta int) error {
	if c.current.Kind != nav.KindPlayerList {
		return fmt.Errorf("not on a player list")
	}
	next := c.current.Page + delta
	if next < 0 || next >= pageCount(c.current.Total) {
		return fmt.Errorf("no more pages")
	}
	e, err := c.fetchPlayers(ctx, c.current.Action, c.current.Query, next)
	if err != nil {
		return err
	}
	c.current = e
	return c.render(ctx, e)
}

func pageCount(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

func (c *Console) renderPlayers(e nav.Entry) {
	header := "Players"
	if e.Action != domain.ActionNone && e.Action != "" {
		header = "Select a player to " + e.Action.Label()
	}
	if e.Query != "" {
		header += fmt.Sprintf(" matching %q", e.Query)
	}
	c.println(fmt.Sprintf("%s (page %d/%d, %d total)", header, e.Page+1, pageCount(e.Total), e.Total))
	if len(e.Players) == 0 {
		c.println("  No players.")
		return
	}
	for i, name := range e.Players {
		c.println(fmt.Sprintf("  %d. %s", i+1, name))
	}
}

func (c *Console) pick(ctx context.Context, arg string) error {
	if c.current.Kind != nav.KindPlayerList {
		return fmt.Errorf("not on a player list")
	}
	name := arg
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(c.current.Players) {
			return fmt.Errorf("no player #%d on this page", n)
		}
		name = c.current.Players[n-1]
	}
	return c.dispatch(ctx, c.current.Action, name, true)
}

// dispatch opens the screen for action on target.
func (c *Console) dispatch(ctx context.Context, action domain.PlayerAction, target string, fromList bool) error {
	switch {
	case action.Destructive():
		return c.open(ctx, nav.Transition{}, nav.Confirm(action, target, fromList))
	case action == domain.ActionClaimReward:
		return c.open(ctx, nav.Transition{}, nav.ClaimRewards(target))
	case action == domain.ActionClaimStatus:
		return c.open(ctx, nav.Transition{}, nav.ClaimStatus(target))
	case action == domain.ActionYesterdaySteps:
		return c.steps(ctx, target)
	default:
		return c.open(ctx, nav.Transition{}, nav.ActionMenu(target))
	}
}

func (c *Console) renderClaimable(ctx context.Context, target string) error {
	items, err := call(ctx, c, func(ctx context.Context) ([]domain.ClaimableItem, error) {
		return c.deps.Backend.ClaimAvailable(ctx, target)
	})
	if err != nil {
		return err
	}
	c.claimable = items
	c.println("Claimable rewards for " + target + ":")
	if len(items) == 0 {
		c.println("  No claimable rewards.")
		return nil
	}
	for i, it := range items {
		label := it.Label
		if label == "" {
			label = fmt.Sprintf("Tier %d", it.MinSteps)
		}
		c.println(fmt.Sprintf("  %d. %s %s (%d)", i+1, it.Day, label, it.MinSteps))
	}
	c.println("  take <number> to claim one, claim-all for every reward")
	return nil
}

func (c *Console) renderStatus(ctx context.Context, target string) error {
	rows, err := call(ctx, c, func(ctx context.Context) ([]domain.ClaimStatusItem, error) {
		return c.deps.Backend.ClaimStatusList(ctx, target)
	})
	if err != nil {
		return err
	}
	c.println("Claim status for " + target + ":")
	if len(rows) == 0 {
		c.println("  Nothing recorded.")
		return nil
	}
	for _, r := range rows {
		state := "unclaimed"
		if r.Claimed {
			state = "claimed"
			if r.ClaimedAt != "" {
				state += " at " + r.ClaimedAt
			}
		}
		c.println(fmt.Sprintf("  %s %s (%d): %s", r.Day, r.Label, r.MinSteps, state))
	}
	return nil
}

func (c *Console) renderSettings(ctx context.Context) error {
	key := "not set"
	if c.deps.Creds.Configured() {
		key = "set"
	}
	c.println("Settings")
	c.println("  API key: " + key + "  (set-key <key>)")
	c.println("  Auto-claim: optin <player> <min_steps> on|off, optin <player> to list")
	return nil
}

func (c *Console) renderCatalog(ctx context.Context) error {
	cat, err := call(ctx, c, c.deps.Catalog.Refresh)
	if err != nil {
		return err
	}
	c.println("Reward tiers:")
	if cat.Len() == 0 {
		c.println("  No tiers configured.")
		return nil
	}
	for _, t := range cat.Tiers() {
		c.println(fmt.Sprintf("  %d+ steps: %s (%d actions)", t.MinSteps, t.DisplayName(), len(t.Actions)))
	}
	return nil
}
