package console

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vietddude/stepbridge/internal/bridge"
	"github.com/vietddude/stepbridge/internal/claim"
	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/nav"
)

// await runs work on the pool and hands its outcome back to the console goroutine.
// ProcessingNotice shows if the work is still running after the pending delay.
func (c *Console) await(ctx context.Context, work bridge.WorkFunc) (any, error) {
	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	c.deps.Async.WithPending(ctx, c.delay,
		func() { c.println(ProcessingNotice) },
		work,
		func(v any, err error) { done <- outcome{v, err} },
	)
	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call is await for a typed backend call.
func call[T any](ctx context.Context, c *Console, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.await(ctx, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// claim prints a failed workflow as its outcome instead of returning a command error.
func (c *Console) claim(ctx context.Context, target string) error {
	res, err := call(ctx, c, func(ctx context.Context) (*claim.Result, error) {
		return c.deps.Claims.Claim(ctx, target)
	})
	if err != nil {
		c.printErr(err)
		return nil
	}
	c.println(res.Summary())
	return nil
}

func (c *Console) claimAll(ctx context.Context, target string) error {
	batch, err := call(ctx, c, func(ctx context.Context) (*claim.BatchResult, error) {
		return c.deps.Claims.ClaimAll(ctx, target)
	})
	if err != nil {
		c.printErr(err)
		return nil
	}
	c.println(batch.Summary())
	return nil
}

func (c *Console) take(ctx context.Context, arg string) error {
	if c.current.Kind != nav.KindClaimRewards {
		return fmt.Errorf("not on a claimable rewards screen")
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(c.claimable) {
		return fmt.Errorf("no reward #%s", arg)
	}
	item := c.claimable[n-1]
	target := c.current.Target
	res, err := call(ctx, c, func(ctx context.Context) (*claim.Result, error) {
		return c.deps.Claims.ClaimFor(ctx, target, item.Day, item.MinSteps)
	})
	if err != nil {
		c.printErr(err)
		return nil
	}
	c.println(res.Summary())
	return nil
}

func (c *Console) steps(ctx context.Context, target string) error {
	steps, err := call(ctx, c, func(ctx context.Context) (int64, error) {
		return c.deps.Backend.YesterdaySteps(ctx, target)
	})
	if err != nil {
		return err
	}
	c.println(fmt.Sprintf("%s walked %d steps yesterday.", target, steps))
	return nil
}

func (c *Console) confirm(ctx context.Context, yes bool, reason string) error {
	e := c.current
	if e.Kind != nav.KindConfirm {
		return fmt.Errorf("nothing to confirm")
	}
	if !yes {
		c.println("Cancelled.")
		return c.back(ctx)
	}

	var apply func(ctx context.Context) (string, error)
	switch e.Action {
	case domain.ActionBan:
		apply = func(ctx context.Context) (string, error) { return c.deps.Backend.Ban(ctx, e.Target, reason) }
	case domain.ActionUnban:
		apply = func(ctx context.Context) (string, error) { return c.deps.Backend.Unban(ctx, e.Target) }
	case domain.ActionDelete:
		apply = func(ctx context.Context) (string, error) { return c.deps.Backend.DeletePlayer(ctx, e.Target) }
	default:
		return fmt.Errorf("cannot confirm %s", e.Action.Label())
	}
	resp, err := call(ctx, c, apply)
	if err != nil {
		return err
	}
	c.println(fmt.Sprintf("%s %s: %s", e.Action.Label(), e.Target, resp))

	// The deleted player's menu is gone; start over from the admin screen.
	if e.Action == domain.ActionDelete && !e.ReturnToList {
		c.deps.Nav.End(c.session)
		c.current = nav.Admin()
		return c.render(ctx, c.current)
	}
	return c.back(ctx)
}

func (c *Console) optIn(ctx context.Context, args []string) error {
	switch len(args) {
	case 1:
		player := args[0]
		enabled, err := call(ctx, c, func(ctx context.Context) ([]int64, error) {
			return c.deps.OptIns.Enabled(ctx, player)
		})
		if err != nil {
			return err
		}
		if len(enabled) == 0 {
			c.println(player + " has no auto-claim tiers.")
			return nil
		}
		slices.Sort(enabled)
		parts := make([]string, len(enabled))
		for i, v := range enabled {
			parts[i] = strconv.FormatInt(v, 10)
		}
		c.println(player + " auto-claims: " + strings.Join(parts, ", "))
		return nil
	case 3:
	default:
		return usage("optin <player> [<min_steps> on|off]")
	}

	minSteps, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid min_steps %q", args[1])
	}
	var on bool
	switch args[2] {
	case "on":
		on = true
	case "off":
	default:
		return usage("optin <player> <min_steps> on|off")
	}

	player := args[0]
	_, err = c.await(ctx, func(ctx context.Context) (any, error) {
		if on {
			cat, err := c.deps.Catalog.Refresh(ctx)
			if err != nil {
				return nil, err
			}
			if _, ok := cat.Exact(minSteps); !ok {
				return nil, fmt.Errorf("no reward tier at %d steps", minSteps)
			}
		}
		return nil, c.deps.OptIns.SetEnabled(ctx, player, minSteps, on)
	})
	if err != nil {
		return err
	}
	state := "off"
	if on {
		state = "on"
	}
	c.println(fmt.Sprintf("Auto-claim for %s at %d steps is %s.", player, minSteps, state))
	return nil
}
