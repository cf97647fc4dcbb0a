package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resolveLimit int

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a free-text query to a catalog figure",
	Long: `Resolve a free-text query (title fragment, alias, or figure ID) against
the catalog.

Examples:
  tonie-app resolve "tn_042"
  tonie-app resolve "lost fox"
  tonie-app resolve "Bibi und Tina Schatz"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		result := res.ResolveN(query, resolveLimit)

		fmt.Printf("status: %s\n", result.Status)
		for i, c := range result.Candidates {
			fmt.Printf("%2d. %-8s %-50s score=%.3f\n", i+1, c.ItemID, c.Title, c.Score)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().IntVar(&resolveLimit, "limit", 5, "maximum candidates to show")
}
