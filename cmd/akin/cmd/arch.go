package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newArchCmd is a completeness stub. Static call-graph and architecture
// analysis (diagram rendering, dead-code detection, call-tree walks) belong
// to a separate collaborator tool built on top of the same code units this
// engine extracts and stores, not to akin itself.
func newArchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arch",
		Short: "Architecture analysis (diagram, dead-code, call-tree) - not implemented here",
		Long: `akin's scope is similarity detection: extraction, embedding, and
nearest-neighbor search over code units. Call-graph construction, dead-code
detection, and diagram rendering are left to a separate tool that consumes
the code units and relational metadata akin produces.`,
	}

	cmd.AddCommand(newArchSubCmd("diagram", "Render a call/dependency diagram"))
	cmd.AddCommand(newArchSubCmd("dead-code", "Report unreachable functions"))
	cmd.AddCommand(newArchSubCmd("call-tree", "Walk the call tree rooted at a function"))

	return cmd
}

func newArchSubCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("not implemented: architecture analysis is a separate collaborator tool, out of scope for akin")
		},
	}
}
