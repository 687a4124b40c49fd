package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects [path]",
		Short: "List every project registered in the index",
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

			projects, err := a.Rel.ListProjects()
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no projects indexed yet")
				return nil
			}
			for _, p := range projects {
				indexed := "never"
				if p.LastIndexedAt != nil {
					indexed = fmt.Sprintf("%d", *p.LastIndexedAt)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %-20s %-12s %-40s last_indexed=%s\n",
					p.ID, p.Name, p.Language, p.RootPath, indexed)
			}
			return nil
		},
	}
	return cmd
}
