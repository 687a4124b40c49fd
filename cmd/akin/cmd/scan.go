package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/relstore"
	"github.com/vimo-dev/akin/internal/scan"
)

func newScanCmd() *cobra.Command {
	var threshold float64
	var crossOnly bool
	var all bool

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Batch-scan indexed units for similar pairs",
		Long: `Runs a parallelized top-k similarity search across every embedded
code unit belonging to the given project paths (or, with --all, every
indexed project), persists discovered pairs, and prints them ordered by
similarity descending.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), cmd, args, all, threshold, crossOnly)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Similarity floor (defaults to the project's configured threshold)")
	cmd.Flags().BoolVar(&crossOnly, "cross-only", false, "Only report pairs spanning two different projects")
	cmd.Flags().BoolVar(&all, "all", false, "Scan every indexed project, ignoring any given paths")

	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, paths []string, all bool, threshold float64, crossOnly bool) error {
	openPath := "."
	if len(paths) > 0 {
		openPath = paths[0]
	}
	a, err := openApp(openPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if threshold <= 0 {
		threshold = a.Config.Similarity.Threshold
	}

	var projectIDs []int64
	if !all {
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("failed to resolve path %q: %w", p, err)
			}
			project, err := a.Rel.GetProjectByRootPath(abs)
			if err != nil {
				return fmt.Errorf("failed to look up project at %q: %w", p, err)
			}
			if project == nil {
				return fmt.Errorf("path %q has not been indexed (run `akin index %s` first)", p, p)
			}
			projectIDs = append(projectIDs, project.ID)
		}
	}

	scanner := scan.New(a.Dual, a.Rel)
	pairs, err := scanner.Run(ctx, scan.Options{ProjectIDs: projectIDs, Threshold: threshold, CrossOnly: crossOnly})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printPairs(cmd, pairs)
	return nil
}

func printPairs(cmd *cobra.Command, pairs []relstore.SimilarPairView) {
	if len(pairs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no similar pairs found")
		return
	}
	for _, p := range pairs {
		fmt.Fprintf(cmd.OutOrStdout(), "%.3f  %s (%s:%d)  <->  %s (%s:%d)  [%s]\n",
			p.Similarity, p.UnitA, p.FileA, p.LineA, p.UnitB, p.FileB, p.LineB, p.Status)
	}
}
