package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vimo-dev/akin/internal/config"
	"github.com/vimo-dev/akin/internal/dualstore"
	"github.com/vimo-dev/akin/internal/embedclient"
	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
)

// app bundles every store/client a command needs. Every command shares the
// single global database at config.DefaultDBPath()
// (`<home>/.vimo/akin/akin.db`) - one relational store + vector index
// spanning every project the user has ever indexed, distinguished by
// project_id.
type app struct {
	Config  *config.Config
	Rel     *relstore.Store
	Dual    *dualstore.Store
	DataDir string
}

// openApp resolves the project root starting at path for config-loading
// purposes, then opens the shared relational + dual stores, creating the
// data directory on first use.
func openApp(path string) (*app, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	root, err := config.FindProjectRoot(abs)
	if err != nil {
		root = abs
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := config.DefaultDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := config.DefaultDBPath()
	rel, err := relstore.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open relational store: %w", err)
	}

	dual, err := dualstore.Open(rel, dbPath)
	if err != nil {
		_ = rel.Close()
		return nil, fmt.Errorf("failed to open dual store: %w", err)
	}

	return &app{Config: cfg, Rel: rel, Dual: dual, DataDir: dataDir}, nil
}

func (a *app) Close() {
	_ = a.Rel.Close()
}

func (a *app) embedder() (*embedclient.Client, error) {
	return embedclient.New(embedclient.Config{
		BaseURL:    a.Config.Embeddings.BaseURL,
		Model:      a.Config.Embeddings.Model,
		Dimensions: a.Config.Embeddings.Dimensions,
		Timeout:    time.Duration(a.Config.Embeddings.TimeoutSec) * time.Second,
	})
}

// parseLanguage maps a CLI --lang flag value onto a model.Language.
func parseLanguage(s string) (model.Language, error) {
	switch s {
	case "rust":
		return model.LangRust, nil
	case "swift":
		return model.LangSwift, nil
	case "typescript", "ts":
		return model.LangTypeScript, nil
	case "javascript", "js":
		return model.LangJavaScript, nil
	default:
		return "", fmt.Errorf("unsupported language %q (want rust, swift, typescript, or javascript)", s)
	}
}
