package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FalkoBaeker/tonie-app/internal/application/usecases"
)

var (
	cleanupItemID    string
	cleanupLimit     int
	cleanupMaxDelete int
	cleanupApply     bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stored classifieds rows that fail the relevance filter",
	Long: `Re-apply the current relevance filter to stored classifieds rows and flag
the ones that no longer pass. The default is a dry-run preview; --apply
deletes flagged rows up to the --max-delete cap.

Examples:
  tonie-app cleanup
  tonie-app cleanup --item-id tn_042
  tonie-app cleanup --apply --max-delete 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := hygieneService().CleanupPolluted(cmd.Context(), usecases.CleanupOptions{
			ItemID:    cleanupItemID,
			Limit:     cleanupLimit,
			MaxDelete: cleanupMaxDelete,
			Apply:     cleanupApply,
		})
		if err != nil {
			return err
		}

		fmt.Printf("inspected: %d\n", report.Inspected)
		fmt.Printf("flagged:   %d\n", report.Flagged)
		for _, row := range report.Examples {
			fmt.Printf("  id=%d item=%s price=%.2f title=%s\n", row.ID, row.ItemID, row.Price, row.Title)
		}

		if !cleanupApply {
			fmt.Println("\ndry-run only; re-run with --apply to delete flagged rows")
			return nil
		}
		fmt.Printf("deleted:   %d (cap=%d)\n", report.Deleted, cleanupMaxDelete)
		if remaining := report.Flagged - report.Deleted; remaining > 0 {
			fmt.Printf("remaining flagged rows not deleted in this run: %d\n", remaining)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupItemID, "item-id", "", "restrict to one figure ID")
	cleanupCmd.Flags().IntVar(&cleanupLimit, "limit", 2000, "max stored rows to inspect")
	cleanupCmd.Flags().IntVar(&cleanupMaxDelete, "max-delete", 250, "safety cap on deletions per run")
	cleanupCmd.Flags().BoolVar(&cleanupApply, "apply", false, "delete flagged rows instead of previewing")
}
