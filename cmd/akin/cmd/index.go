package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vimo-dev/akin/internal/extract/lsp"
	"github.com/vimo-dev/akin/internal/model"
)

func newIndexCmd() *cobra.Command {
	var lang string
	var jobID string
	var modelName string
	var minLines int

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Extract, embed, and store every function in a source tree",
		Long: `Walks a project's source files for the given language, extracts
every function/method/constructor via its language server, embeds each
one, and stores the results in akin's shared database and vector index
under ~/.vimo/akin/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			if lang == "" {
				return fmt.Errorf("--lang is required")
			}

			return runIndex(ctx, cmd, path, lang, jobID, modelName, minLines)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language to index: rust, swift, typescript, or javascript")
	cmd.Flags().StringVar(&jobID, "job-id", "", "Correlation id set when spawned by the background watcher (log only)")
	cmd.Flags().StringVar(&modelName, "model", "", "Embedding model to use (overrides the configured embeddings.model)")
	cmd.Flags().IntVar(&minLines, "min-lines", 0, "Skip units shorter than this many lines (overrides the configured similarity.min_lines)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path, langFlag, jobID, modelName string, minLines int) error {
	language, err := parseLanguage(langFlag)
	if err != nil {
		return err
	}

	a, err := openApp(path)
	if err != nil {
		return err
	}
	defer a.Close()

	if modelName != "" {
		a.Config.Embeddings.Model = modelName
	}
	if minLines > 0 {
		a.Config.Similarity.MinLines = minLines
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	projectID, err := a.Rel.GetOrCreateProject(filepath.Base(root), root, language)
	if err != nil {
		return fmt.Errorf("failed to register project: %w", err)
	}

	embedder, err := a.embedder()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	defer embedder.Close()

	var fileErrors int
	units, err := lsp.ExtractProject(ctx, root, language, a.Config.Paths.Exclude, func(file string, extractErr error) {
		fileErrors++
		slog.Warn("failed to extract file", slog.String("file", file), slog.String("error", extractErr.Error()), slog.String("job_id", jobID))
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	indexed := 0
	for _, u := range units {
		u.ProjectID = projectID
		if u.LineCount() < a.Config.Similarity.MinLines {
			continue
		}

		// Two units with identical body bytes share a cached embedding
		// rather than re-embedding, so check for an existing blob before
		// calling out to the embedder.
		if cached, ok, cacheErr := a.Rel.GetEmbeddingByContentHash(u.ContentHash); cacheErr == nil && ok {
			u.Embedding = cached
		} else {
			vec, embedErr := embedder.Embed(ctx, u.Body)
			if embedErr != nil {
				slog.Warn("failed to embed unit", slog.String("unit", u.QualifiedName), slog.String("error", embedErr.Error()))
				continue
			}
			u.Embedding = model.EncodeEmbedding(vec)
		}

		if err := a.Dual.UpsertCodeUnit(u); err != nil {
			slog.Warn("failed to store unit", slog.String("unit", u.QualifiedName), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	if err := a.Rel.UpdateProjectIndexedTime(projectID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record index time: %w", err)
	}

	if err := a.Dual.SaveVectorIndex(); err != nil {
		return fmt.Errorf("failed to persist vector index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d units across %s (%d files skipped due to extraction errors)\n", indexed, root, fileErrors)
	return nil
}
