package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/stepbridge/internal/control"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the server reward tiers",
	Run:   runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) {
	oneShot(cmd, func(ctx context.Context, app *control.Bridge) error {
		cat, err := app.Catalog().Refresh(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		_, _ = fmt.Fprintln(w, "MIN STEPS\tTIER\tACTIONS")
		for _, t := range cat.Tiers() {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", t.MinSteps, t.DisplayName(), strings.Join(t.Actions, "; "))
		}
		return w.Flush()
	})
}
