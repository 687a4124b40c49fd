package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/model"
)

func newIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore <unit_a> <unit_b>",
		Short: "Mark a similar pair as ignored so future scans and the hook skip it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(".")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Rel.UpdatePairStatus(args[0], args[1], model.StatusIgnored); err != nil {
				return fmt.Errorf("failed to ignore pair: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ignored %s <-> %s\n", args[0], args[1])
			return nil
		},
	}
	return cmd
}
