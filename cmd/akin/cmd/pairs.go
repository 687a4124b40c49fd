package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
)

func newPairsCmd() *cobra.Command {
	var status string
	var minSimilarity float64
	var limit int

	cmd := &cobra.Command{
		Use:   "pairs [path]",
		Short: "List stored similar-code pairs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			a, err := openApp(path)
			if err != nil {
				return err
			}
			defer a.Close()

			pairs, err := a.Rel.GetSimilarPairs(relstore.PairQuery{
				Status:        model.PairStatus(status),
				MinSimilarity: minSimilarity,
			})
			if err != nil {
				return fmt.Errorf("failed to query pairs: %w", err)
			}
			if limit > 0 && len(pairs) > limit {
				pairs = pairs[:limit]
			}
			printPairs(cmd, pairs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: new, confirmed, redundant, ignored")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "Only show pairs at or above this similarity")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many pairs (0 means no limit)")

	return cmd
}
