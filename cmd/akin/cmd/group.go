package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/model"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage similarity groups: reviewer-accepted buckets of intentionally similar units",
	}

	cmd.AddCommand(newGroupCreateCmd())
	cmd.AddCommand(newGroupAddCmd())
	cmd.AddCommand(newGroupListCmd())
	cmd.AddCommand(newGroupMembersCmd())
	return cmd
}

func newGroupCreateCmd() *cobra.Command {
	var reason, pattern string

	cmd := &cobra.Command{
		Use:   "create <project_id> <name>",
		Short: "Create a new similarity group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project_id %q: %w", args[0], err)
			}

			a, err := openApp(".")
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.Rel.CreateGroup(&model.SimilarityGroup{
				ProjectID: projectID,
				Name:      args[1],
				Reason:    reason,
				Pattern:   pattern,
			})
			if err != nil {
				return fmt.Errorf("failed to create group: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why this group is intentionally similar")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Free-text description of the shared pattern")
	return cmd
}

func newGroupAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <group_id> <qualified_name>",
		Short: "Assign a code unit to a similarity group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid group_id %q: %w", args[0], err)
			}

			a, err := openApp(".")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Rel.AddToGroup(args[1], groupID); err != nil {
				return fmt.Errorf("failed to add unit to group: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to group %d\n", args[1], groupID)
			return nil
		},
	}
	return cmd
}

func newGroupListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <project_id>",
		Short: "List every similarity group for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project_id %q: %w", args[0], err)
			}

			a, err := openApp(".")
			if err != nil {
				return err
			}
			defer a.Close()

			groups, err := a.Rel.GetGroups(projectID)
			if err != nil {
				return fmt.Errorf("failed to list groups: %w", err)
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no groups for this project")
				return nil
			}
			for _, g := range groups {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %-20s reason=%q pattern=%q\n", g.ID, g.Name, g.Reason, g.Pattern)
			}
			return nil
		},
	}
	return cmd
}

func newGroupMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members <group_id>",
		Short: "List the qualified names belonging to a similarity group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid group_id %q: %w", args[0], err)
			}

			a, err := openApp(".")
			if err != nil {
				return err
			}
			defer a.Close()

			members, err := a.Rel.GetGroupMembers(groupID)
			if err != nil {
				return fmt.Errorf("failed to list group members: %w", err)
			}
			for _, m := range members {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
	return cmd
}
