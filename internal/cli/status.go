package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the last market refresh run",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := storage.GetRunState(cmd.Context())
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Println("no refresh run recorded yet")
			return nil
		}

		fmt.Printf("run_id:      %s\n", run.RunID)
		fmt.Printf("status:      %s\n", run.Status)
		fmt.Printf("started_at:  %s\n", run.StartedAt.Format(time.RFC3339))
		if run.FinishedAt != nil {
			fmt.Printf("finished_at: %s\n", run.FinishedAt.Format(time.RFC3339))
		}
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
