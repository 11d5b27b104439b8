// Package console is the line-oriented admin shell. Each screen is a nav.Entry, so
// "back" replays history the same way the in-game menus do.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vietddude/stepbridge/internal/bridge"
	"github.com/vietddude/stepbridge/internal/claim"
	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/backend"
	"github.com/vietddude/stepbridge/internal/infra/storage"
	"github.com/vietddude/stepbridge/internal/nav"
)

// PageSize is the number of players per list page.
const PageSize = 10

// ProcessingNotice is shown when slow work is still running.
const ProcessingNotice = "Processing..."

// Backend is the admin subset of the remote API.
type Backend interface {
	ListPlayers(ctx context.Context, limit, offset int, q string) (domain.PlayerPage, error)
	YesterdaySteps(ctx context.Context, player string) (int64, error)
	ClaimAvailable(ctx context.Context, player string) ([]domain.ClaimableItem, error)
	ClaimAvailableRaw(ctx context.Context, player string, debug bool) (string, error)
	ClaimStatusList(ctx context.Context, player string) ([]domain.ClaimStatusItem, error)
	Ban(ctx context.Context, player, reason string) (string, error)
	Unban(ctx context.Context, player string) (string, error)
	DeletePlayer(ctx context.Context, player string) (string, error)
}

// Claimer runs claim workflows. *claim.Orchestrator satisfies it.
type Claimer interface {
	Claim(ctx context.Context, target string) (*claim.Result, error)
	ClaimFor(ctx context.Context, target, day string, minSteps int64) (*claim.Result, error)
	ClaimAll(ctx context.Context, target string) (*claim.BatchResult, error)
}

// Async runs work off the console goroutine. *bridge.Scheduler satisfies it.
type Async interface {
	WithPending(ctx context.Context, delay time.Duration, notify func(), work bridge.WorkFunc, onDone func(any, error)) *bridge.Handle
}

// Deps are the services the shell drives.
type Deps struct {
	Backend Backend
	Claims  Claimer
	Catalog claim.CatalogSource
	Nav     *nav.Registry
	OptIns  storage.OptInRepository
	Creds   backend.CredentialStore
	Async   Async
}

// Console is one interactive admin session. Backend calls run on the Async pool while
// the console goroutine waits, so screens only change on the console goroutine.
type Console struct {
	deps    Deps
	in      *bufio.Scanner
	out     io.Writer
	log     *slog.Logger
	delay   time.Duration
	session string

	current nav.Entry
	// claimable is the item list behind the current claim_rewards screen.
	claimable []domain.ClaimableItem
}

// Option configures a Console.
type Option func(*Console)

// WithPendingDelay sets how long work runs before ProcessingNotice shows.
func WithPendingDelay(d time.Duration) Option {
	return func(c *Console) { c.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.log = l }
}

// New creates a console reading commands from in and writing screens to out.
func New(deps Deps, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		deps:  deps,
		in:    bufio.NewScanner(in),
		out:   out,
		log:   slog.Default(),
		delay: bridge.DefaultPendingDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "console")
	c.session = deps.Nav.NewSession()
	return c
}

// Run shows the admin screen and processes commands until EOF, "quit" or ctx ends.
func (c *Console) Run(ctx context.Context) error {
	defer c.deps.Nav.End(c.session)

	if err := c.open(ctx, nav.Transition{}, nav.Admin()); err != nil {
		c.printErr(err)
	}
	for {
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := c.Exec(ctx, line); err != nil {
			c.printErr(err)
		}
	}
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "help", "menu":
		return c.open(ctx, nav.Transition{}, nav.Admin())
	case "back":
		return c.back(ctx)
	case "players":
		return c.openPlayers(ctx, domain.ActionNone, rest, 0)
	case "select":
		if len(args) == 0 {
			return usage("select <action> [query]")
		}
		return c.openPlayers(ctx, domain.ParsePlayerAction(args[0]), strings.Join(args[1:], " "), 0)
	case "next":
		return c.page(ctx, 1)
	case "prev":
		return c.page(ctx, -1)
	case "pick":
		if len(args) != 1 {
			return usage("pick <number|name>")
		}
		return c.pick(ctx, args[0])
	case "open":
		if len(args) != 1 {
			return usage("open <player>")
		}
		return c.open(ctx, nav.Transition{}, nav.ActionMenu(args[0]))
	case "do":
		if len(args) != 1 {
			return usage("do <action>")
		}
		if c.current.Kind != nav.KindActionMenu {
			return fmt.Errorf("no player selected")
		}
		return c.dispatch(ctx, domain.ParsePlayerAction(args[0]), c.current.Target, false)
	case "ban":
		if len(args) == 0 {
			return usage("ban <player>")
		}
		return c.open(ctx, nav.Transition{}, nav.Confirm(domain.ActionBan, args[0], false))
	case "unban":
		if len(args) != 1 {
			return usage("unban <player>")
		}
		return c.open(ctx, nav.Transition{}, nav.Confirm(domain.ActionUnban, args[0], false))
	case "delete":
		if len(args) != 1 {
			return usage("delete <player>")
		}
		return c.open(ctx, nav.Transition{}, nav.Confirm(domain.ActionDelete, args[0], false))
	case "yes", "no":
		return c.confirm(ctx, cmd == "yes", rest)
	case "claim":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		return c.claim(ctx, target)
	case "claim-all":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		return c.claimAll(ctx, target)
	case "rewards":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		return c.open(ctx, nav.Transition{}, nav.ClaimRewards(target))
	case "take":
		if len(args) != 1 {
			return usage("take <number>")
		}
		return c.take(ctx, args[0])
	case "status":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		return c.open(ctx, nav.Transition{}, nav.ClaimStatus(target))
	case "steps":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		return c.steps(ctx, target)
	case "debug":
		target, err := c.targetArg(args)
		if err != nil {
			return err
		}
		raw, err := call(ctx, c, func(ctx context.Context) (string, error) {
			return c.deps.Backend.ClaimAvailableRaw(ctx, target, true)
		})
		if err != nil {
			return err
		}
		c.println(raw)
		return nil
	case "catalog":
		return c.open(ctx, nav.Transition{}, nav.Rewards())
	case "settings":
		return c.open(ctx, nav.Transition{}, nav.Settings())
	case "set-key":
		c.deps.Creds.SetAPIKey(rest)
		if c.deps.Creds.Configured() {
			c.println("API key saved.")
		} else {
			c.println("API key cleared.")
		}
		return nil
	case "optin":
		return c.optIn(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
}

// Current returns the screen being shown.
func (c *Console) Current() nav.Entry {
	return c.current
}

// open records the screen being left and shows e.
func (c *Console) open(ctx context.Context, t nav.Transition, e nav.Entry) error {
	c.deps.Nav.PushCurrent(c.session, c.current, t)
	c.current = e
	return c.render(ctx, e)
}

func (c *Console) back(ctx context.Context) error {
	return c.deps.Nav.GoBack(c.session,
		nav.ReplayerFunc(func(t nav.Transition, e nav.Entry) error {
			return c.open(ctx, t, e)
		}),
		func() {
			c.current = nav.Admin()
			if err := c.render(ctx, c.current); err != nil {
				c.printErr(err)
			}
		},
	)
}

func (c *Console) targetArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if len(args) == 0 && c.current.Target != "" {
		return c.current.Target, nil
	}
	return "", fmt.Errorf("which player?")
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) printErr(err error) {
	c.println(domain.Describe(err))
}

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}
