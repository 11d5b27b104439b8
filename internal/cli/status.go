package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/stepbridge/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend health and commits waiting for retry",
	Run:   runStatus,
}

var retryCommitsCmd = &cobra.Command{
	Use:   "retry-commits",
	Short: "Retry journaled commits once and exit",
	Run:   runRetryCommits,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(retryCommitsCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	oneShot(cmd, func(ctx context.Context, app *control.Bridge) error {
		report := app.Health().CheckHealth(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintf(w, "SYSTEM\t%s\n", report.SystemStatus)
		_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tLATENCY\tERROR")
		for _, c := range report.Components {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", c.Name, c.Status, c.Latency, c.Error)
		}
		_ = w.Flush()

		pending, err := app.Pending().ListPending(ctx, 100)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d commit(s) waiting for retry\n", report.PendingCommits)
		if len(pending) == 0 {
			return nil
		}
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "PLAYER\tDAY\tMIN STEPS\tTIER\tRETRIES\tLAST TRY\tLAST ERROR")
		for _, pc := range pending {
			day := pc.Day
			if day == "" {
				day = "yesterday"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
				pc.Player, day, pc.MinSteps, pc.TierLabel, pc.RetryCount,
				pc.LastTry.Format(time.RFC3339), pc.Error)
		}
		return w.Flush()
	})
}

func runRetryCommits(cmd *cobra.Command, args []string) {
	oneShot(cmd, func(ctx context.Context, app *control.Bridge) error {
		stats, err := app.Recovery().RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("resolved=%d retried=%d abandoned=%d waiting=%d\n",
			stats.Resolved, stats.Retried, stats.Abandoned, stats.Waiting)
		return nil
	})
}
