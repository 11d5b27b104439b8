package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vietddude/stepbridge/internal/console"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive admin console",
	Run:   runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	cfg.Server.Port = 0

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := startBridge(ctx, cfg)
	defer stopBridge(app)

	con := console.New(console.Deps{
		Backend: app.Client(),
		Claims:  app.Orchestrator(),
		Catalog: app.Catalog(),
		Nav:     app.Nav(),
		OptIns:  app.OptIns(),
		Creds:   app.Credentials(),
		Async:   app.Scheduler(),
	}, os.Stdin, os.Stdout, console.WithPendingDelay(cfg.Scheduler.PendingDelay))

	if err := con.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Console failed", "error", err)
	}
}
