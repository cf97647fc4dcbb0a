package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FalkoBaeker/tonie-app/internal/pricing"
	"github.com/FalkoBaeker/tonie-app/internal/resolver"
)

var priceCondition string

var priceCmd = &cobra.Command{
	Use:   "price <query>",
	Short: "Estimate resale prices for a figure",
	Long: `Resolve the query to a catalog figure and compute its price triple.

The condition scales the market quantiles: ovp, new_open, very_good, good,
played, defective.

Examples:
  tonie-app price tn_042
  tonie-app price "lost fox" --condition ovp`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		condition := pricing.Condition(strings.ToLower(strings.TrimSpace(priceCondition)))
		if !pricing.ValidCondition(condition) {
			return fmt.Errorf("unknown condition %q (valid: %v)", priceCondition, pricing.Conditions())
		}

		query := strings.Join(args, " ")
		resolved := res.Resolve(query)

		switch resolved.Status {
		case resolver.StatusNotFound:
			return fmt.Errorf("no catalog figure matches %q", query)
		case resolver.StatusNeedsConfirmation:
			fmt.Println("Ambiguous query, candidates:")
			for i, c := range resolved.Candidates {
				fmt.Printf("%2d. %-8s %-50s score=%.3f\n", i+1, c.ItemID, c.Title, c.Score)
			}
			return fmt.Errorf("re-run with a more specific query or a figure ID")
		}

		top := resolved.Candidates[0]
		item, _ := cat.ByID(top.ItemID)

		result, err := pricingService().Price(cmd.Context(), top.ItemID, condition)
		if err != nil {
			return err
		}

		fmt.Printf("figure:    %s (%s)\n", item.Title, item.ID)
		fmt.Printf("condition: %s\n", condition)
		fmt.Printf("instant:   %.2f EUR\n", result.Instant)
		fmt.Printf("fair:      %.2f EUR\n", result.Fair)
		fmt.Printf("patience:  %.2f EUR\n", result.Patience)
		fmt.Printf("samples:   %d (effective %.2f)\n", result.SampleSize, result.EffectiveSampleSize)
		fmt.Printf("source:    %s\n", result.SourceTag)
		return nil
	},
}

func init() {
	priceCmd.Flags().StringVar(&priceCondition, "condition", string(pricing.ConditionGood), "figure condition")
}
