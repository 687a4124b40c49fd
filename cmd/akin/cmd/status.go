package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show index health and stats for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runStatus(cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, path string, jsonOutput bool) error {
	a, err := openApp(path)
	if err != nil {
		return err
	}
	defer a.Close()

	// Scope the stats to the project registered at path, if there is one;
	// an unregistered path falls back to whole-database stats.
	var projectID int64
	scope := "all projects"
	if abs, absErr := filepath.Abs(path); absErr == nil {
		if project, lookupErr := a.Rel.GetProjectByRootPath(abs); lookupErr == nil && project != nil {
			projectID = project.ID
			scope = project.Name
		}
	}

	stats, err := a.Rel.GetStats(projectID)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "data dir:     %s\n", a.DataDir)
	fmt.Fprintf(cmd.OutOrStdout(), "scope:        %s\n", scope)
	fmt.Fprintf(cmd.OutOrStdout(), "code units:   %d\n", stats.TotalUnits)
	fmt.Fprintf(cmd.OutOrStdout(), "groups:       %d\n", stats.TotalGroups)
	fmt.Fprintf(cmd.OutOrStdout(), "vector index: ready=%t dims=%d\n", a.Dual.IndexReady(), a.Dual.Dimensions())
	fmt.Fprintln(cmd.OutOrStdout(), "pairs by status:")
	for status, count := range stats.PairsByStatus {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %d\n", status, count)
	}
	return nil
}
