package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/extract/treesitter"
	"github.com/vimo-dev/akin/internal/hook"
)

// newHookCmd wires the real-time editor hook: reads the JSON request
// envelope on stdin, runs internal/hook.Run against the shared global
// database, and writes the JSON response envelope to stdout. Invoked
// by the host editor after every PostToolUse edit event.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Read a PostToolUse edit event from stdin and report near-duplicate code on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func runHook(ctx context.Context, in io.Reader, out io.Writer) error {
	var req hook.Request
	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read hook request: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		// A malformed envelope is not fatal to the editor session: emit an
		// empty response rather than erroring the hook process out.
		return json.NewEncoder(out).Encode(&hook.Response{})
	}

	a, err := openApp(req.Cwd)
	if err != nil {
		return json.NewEncoder(out).Encode(&hook.Response{})
	}
	defer a.Close()

	embedder, err := a.embedder()
	if err != nil {
		return json.NewEncoder(out).Encode(&hook.Response{})
	}
	defer embedder.Close()

	parser := treesitter.NewParser()
	defer parser.Close()

	deps := hook.Deps{
		Config:    a.Config,
		Rel:       a.Rel,
		Dual:      a.Dual,
		Embedder:  embedder,
		Parser:    parser,
		Extractor: treesitter.NewExtractor(),
	}

	resp, err := hook.Run(ctx, req, deps)
	if err != nil || resp == nil {
		resp = &hook.Response{}
	}
	return json.NewEncoder(out).Encode(resp)
}
