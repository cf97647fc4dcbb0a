package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FalkoBaeker/tonie-app/internal/application/usecases"
)

var (
	refreshLimit    int
	refreshDelayMs  int
	refreshMaxItems int
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh stored market data for the whole catalog",
	Long: `Walk the catalog item by item, fetch fresh listings from every configured
source, and prune stored data past the history horizon.

Examples:
  tonie-app refresh
  tonie-app refresh --limit 25 --delay-ms 500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := refreshService()

		run, err := svc.Run(cmd.Context(), usecases.RefreshOptions{
			Limit:    refreshLimit,
			Delay:    time.Duration(refreshDelayMs) * time.Millisecond,
			MaxItems: refreshMaxItems,
		})
		if errors.Is(err, usecases.ErrRefreshConflict) {
			return fmt.Errorf("refresh already running (run_id=%s)", run.RunID)
		}
		if err != nil {
			return err
		}

		fmt.Printf("run_id:      %s\n", run.RunID)
		fmt.Printf("status:      %s\n", run.Status)
		fmt.Printf("processed:   %d/%d\n", run.Processed, run.Total)
		fmt.Printf("successful:  %d\n", run.Successful)
		fmt.Printf("failed:      %d\n", run.Failed)
		fmt.Printf("saved_rows:  %d\n", run.SavedRows)
		fmt.Printf("pruned_rows: %d\n", run.PrunedRows)
		for _, f := range run.Failures {
			fmt.Printf("  failure: %s\n", f)
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "max catalog items to process (0 = all)")
	refreshCmd.Flags().IntVar(&refreshDelayMs, "delay-ms", 200, "pause between items in milliseconds")
	refreshCmd.Flags().IntVar(&refreshMaxItems, "max-items", 80, "max listings per item and source")
}
