package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	coverageRefresh   bool
	coverageBatchSize int
	coverageWorkers   int
	coverageAll       bool
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report fresh market data coverage per catalog figure",
	Long: `Report how many catalog figures have enough fresh, trust-weighted market
samples, worst coverage first. With --refresh-lowest the worst covered
figures are refreshed in one batch.

Examples:
  tonie-app coverage
  tonie-app coverage --all
  tonie-app coverage --refresh-lowest --batch-size 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := coverageService()

		if coverageRefresh {
			refreshed, err := svc.RefreshLowest(cmd.Context(), coverageBatchSize, coverageWorkers)
			if err != nil {
				return err
			}
			fmt.Printf("refreshed %d low-coverage figures\n\n", refreshed)
		}

		report, err := svc.Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("covered: %d/%d\n", report.Covered, report.Total)
		for _, row := range report.Items {
			if row.MeetsTarget && !coverageAll {
				continue
			}
			marker := " "
			if row.MeetsTarget {
				marker = "*"
			}
			fmt.Printf("%s %-8s %-50s raw=%-4d effective=%.2f\n",
				marker, row.ItemID, row.Title, row.RawSamples, row.EffectiveSamples)
		}
		return nil
	},
}

func init() {
	coverageCmd.Flags().BoolVar(&coverageAll, "all", false, "list covered figures too")
	coverageCmd.Flags().BoolVar(&coverageRefresh, "refresh-lowest", false, "refresh the worst covered figures first")
	coverageCmd.Flags().IntVar(&coverageBatchSize, "batch-size", 40, "figures per refresh batch")
	coverageCmd.Flags().IntVar(&coverageWorkers, "workers", 2, "parallel refresh workers")
}
