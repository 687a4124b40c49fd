package lsp

import (
	"fmt"
	"os/exec"

	"github.com/vimo-dev/akin/internal/apperr"
	"github.com/vimo-dev/akin/internal/model"
)

// ServerConfig describes how to launch one language's server.
type ServerConfig struct {
	Command     string
	Args        []string
	LanguageID  string
	MissingHint string
}

// resolveServer locates the language server binary for lang on PATH (Swift
// additionally falls back to the Xcode toolchain via xcrun), returning a
// clear configuration error if nothing is found.
func resolveServer(lang model.Language) (ServerConfig, error) {
	switch lang {
	case model.LangRust:
		return lookupOnPath(ServerConfig{
			Command:     "rust-analyzer",
			LanguageID:  "rust",
			MissingHint: "install rust-analyzer and ensure it is on PATH",
		})
	case model.LangSwift:
		return resolveSwiftServer()
	case model.LangTypeScript:
		return lookupOnPath(ServerConfig{
			Command:     "typescript-language-server",
			Args:        []string{"--stdio"},
			LanguageID:  "typescript",
			MissingHint: "npm install -g typescript-language-server typescript",
		})
	case model.LangJavaScript:
		return lookupOnPath(ServerConfig{
			Command:     "typescript-language-server",
			Args:        []string{"--stdio"},
			LanguageID:  "javascript",
			MissingHint: "npm install -g typescript-language-server typescript",
		})
	default:
		return ServerConfig{}, apperr.New(apperr.ErrCodeUnsupportedLanguage,
			fmt.Sprintf("no LSP adapter for language %q", lang), nil)
	}
}

func lookupOnPath(cfg ServerConfig) (ServerConfig, error) {
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return ServerConfig{}, apperr.New(apperr.ErrCodeMissingLSPServer,
			fmt.Sprintf("%s not found on PATH", cfg.Command), err).
			WithSuggestion(cfg.MissingHint)
	}
	return cfg, nil
}

// resolveSwiftServer prefers a bare sourcekit-lsp on PATH, then falls back
// to the one bundled with the active Xcode toolchain via `xcrun`.
func resolveSwiftServer() (ServerConfig, error) {
	cfg := ServerConfig{
		Command:     "sourcekit-lsp",
		LanguageID:  "swift",
		MissingHint: "install Xcode command line tools, or put sourcekit-lsp on PATH",
	}
	if _, err := exec.LookPath(cfg.Command); err == nil {
		return cfg, nil
	}
	if path, err := exec.LookPath("xcrun"); err == nil {
		return ServerConfig{
			Command:     path,
			Args:        []string{"sourcekit-lsp"},
			LanguageID:  "swift",
			MissingHint: cfg.MissingHint,
		}, nil
	}
	return ServerConfig{}, apperr.New(apperr.ErrCodeMissingLSPServer,
		"sourcekit-lsp not found on PATH and xcrun unavailable", nil).
		WithSuggestion(cfg.MissingHint)
}
