package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/stepbridge/internal/claim"
	"github.com/vietddude/stepbridge/internal/control"
	"github.com/vietddude/stepbridge/internal/core/domain"
)

var (
	claimDay      string
	claimMinSteps int64
)

var claimCmd = &cobra.Command{
	Use:   "claim [player]",
	Short: "Claim yesterday's reward, or one (day, min-steps) reward, for a player",
	Args:  cobra.ExactArgs(1),
	Run:   runClaim,
}

var claimAllCmd = &cobra.Command{
	Use:   "claim-all [player]",
	Short: "Claim every claimable reward for a player",
	Args:  cobra.ExactArgs(1),
	Run:   runClaimAll,
}

func init() {
	claimCmd.Flags().StringVar(&claimDay, "day", "", "day to claim (YYYY-MM-DD), used with --min-steps")
	claimCmd.Flags().Int64Var(&claimMinSteps, "min-steps", -1, "tier threshold to claim; resolved from steps when omitted")
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(claimAllCmd)
}

// printRunner echoes reward actions instead of running them on a game server.
var printRunner = claim.ActionRunnerFunc(func(ctx context.Context, target string, commands []string) error {
	for _, c := range commands {
		fmt.Printf("  > %s\n", c)
	}
	return nil
})

// oneShot runs fn against a started bridge without the health server.
func oneShot(cmd *cobra.Command, fn func(ctx context.Context, app *control.Bridge) error) {
	cfg := setup(cmd)
	cfg.Server.Port = 0

	ctx := context.Background()
	app := startBridge(ctx, cfg, control.WithActionRunner(printRunner))
	err := fn(ctx, app)
	stopBridge(app)
	if err != nil {
		fmt.Println(domain.Describe(err))
		os.Exit(1)
	}
}

func runClaim(cmd *cobra.Command, args []string) {
	oneShot(cmd, func(ctx context.Context, app *control.Bridge) error {
		var (
			res *claim.Result
			err error
		)
		if claimMinSteps >= 0 || claimDay != "" {
			res, err = app.Orchestrator().ClaimFor(ctx, args[0], claimDay, claimMinSteps)
		} else {
			res, err = app.Orchestrator().Claim(ctx, args[0])
		}
		if err != nil {
			return err
		}
		slog.Debug("Claim finished", "run_id", res.RunID, "path", res.Path)
		fmt.Println(res.Summary())
		return nil
	})
}

func runClaimAll(cmd *cobra.Command, args []string) {
	oneShot(cmd, func(ctx context.Context, app *control.Bridge) error {
		batch, err := app.Orchestrator().ClaimAll(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(batch.Summary())
		return nil
	})
}
