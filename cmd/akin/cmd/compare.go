package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/config"
	"github.com/vimo-dev/akin/internal/embedclient"
	"github.com/vimo-dev/akin/internal/extract/lsp"
	"github.com/vimo-dev/akin/internal/model"
)

func newCompareCmd() *cobra.Command {
	var langA, langB string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "compare <path_a> <path_b>",
		Short: "Compare two files (or directories) without touching any database",
		Long: `A transient, LSP-only comparison: extracts and embeds every
function in path_a and path_b, reports every cross pair above
--threshold, and exits. Nothing is persisted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if langA == "" || langB == "" {
				return fmt.Errorf("--lang-a and --lang-b are both required")
			}
			return runCompare(cmd.Context(), cmd, args[0], langA, args[1], langB, threshold)
		},
	}

	cmd.Flags().StringVar(&langA, "lang-a", "", "Language of path_a")
	cmd.Flags().StringVar(&langB, "lang-b", "", "Language of path_b")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.80, "Similarity floor")

	return cmd
}

func runCompare(ctx context.Context, cmd *cobra.Command, pathA, langAFlag, pathB, langBFlag string, threshold float64) error {
	a, err := parseLanguage(langAFlag)
	if err != nil {
		return err
	}
	b, err := parseLanguage(langBFlag)
	if err != nil {
		return err
	}

	unitsA, err := extractPath(ctx, pathA, a)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", pathA, err)
	}
	unitsB, err := extractPath(ctx, pathB, b)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", pathB, err)
	}

	cfg := config.NewConfig()
	embedder, err := embedclient.New(embedclient.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    time.Duration(cfg.Embeddings.TimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	defer embedder.Close()

	vecsA, err := embedAll(ctx, embedder, unitsA)
	if err != nil {
		return err
	}
	vecsB, err := embedAll(ctx, embedder, unitsB)
	if err != nil {
		return err
	}

	found := false
	for i, ua := range unitsA {
		for j, ub := range unitsB {
			sim := model.CosineSimilarity(vecsA[i], vecsB[j])
			if sim >= threshold {
				found = true
				fmt.Fprintf(cmd.OutOrStdout(), "%.3f  %s  <->  %s\n", sim, ua.QualifiedName, ub.QualifiedName)
			}
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "no pairs found at or above threshold")
	}
	return nil
}

func extractPath(ctx context.Context, path string, lang model.Language) ([]*model.CodeUnit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return lsp.ExtractFile(ctx, path, lang)
	}
	return lsp.ExtractProject(ctx, path, lang, nil, nil)
}

func embedAll(ctx context.Context, embedder *embedclient.Client, units []*model.CodeUnit) ([][]float32, error) {
	vecs := make([][]float32, len(units))
	for i, u := range units {
		vec, err := embedder.Embed(ctx, u.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", u.QualifiedName, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}
