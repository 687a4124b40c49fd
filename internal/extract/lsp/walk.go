package lsp

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vimo-dev/akin/internal/gitignore"
	"github.com/vimo-dev/akin/internal/model"
)

// ignoreCache holds one combined gitignore matcher per project root,
// bounded so a long-running process (the batch scanner walking many
// projects, or repeated hook-spawned indexing of the same project) never
// re-parses every .gitignore file in a tree on each walk.
var ignoreCache, _ = lru.New[string, *gitignore.Matcher](32)

// projectIgnoreMatcher returns the combined gitignore matcher for root,
// built from every .gitignore file found under it, rooted at its
// containing directory. Cached by root path.
func projectIgnoreMatcher(root string) (*gitignore.Matcher, error) {
	if m, ok := ignoreCache.Get(root); ok {
		return m, nil
	}

	m := gitignore.New()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" {
			_ = m.AddFromFile(path, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ignoreCache.Add(root, m)
	return m, nil
}

// skipDirs are conventional build/dependency directories the walker never
// descends into.
var skipDirs = map[string]bool{
	"target": true, ".build": true, "Build": true, "DerivedData": true,
	"Pods": true, "node_modules": true, "dist": true, "build": true,
	".next": true, ".nuxt": true, "coverage": true, ".git": true,
	".turbo": true, ".cache": true,
}

var extensionsByLanguage = map[model.Language][]string{
	model.LangRust:       {".rs"},
	model.LangSwift:      {".swift"},
	model.LangTypeScript: {".ts", ".tsx"},
	model.LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
}

// WalkSourceFiles returns every file under root matching lang's extension
// set, skipping conventional build directories, any path matching one of
// extraExcludes (the project's configured paths.exclude patterns, on top of
// whatever the tree's own .gitignore files already cover), and (for
// TypeScript) declaration/config files that carry no function bodies worth
// embedding.
func WalkSourceFiles(root string, lang model.Language, extraExcludes []string) ([]string, error) {
	exts := extensionsByLanguage[lang]
	var files []string

	ignore, err := projectIgnoreMatcher(root)
	if err != nil {
		return nil, err
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if path != root && ignore.Match(path, true) {
				return filepath.SkipDir
			}
			if path != root && gitignore.MatchesAnyPattern(rel, extraExcludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasAnyExt(path, exts) {
			return nil
		}
		if isExcludedFile(path, lang) {
			return nil
		}
		if ignore.Match(path, false) {
			return nil
		}
		if gitignore.MatchesAnyPattern(rel, extraExcludes) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func hasAnyExt(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// isExcludedFile drops TypeScript/JavaScript declaration and config files,
// which describe types or build tooling rather than executable bodies.
func isExcludedFile(path string, lang model.Language) bool {
	if lang != model.LangTypeScript && lang != model.LangJavaScript {
		return false
	}
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".d.ts") {
		return true
	}
	// *.config.* - e.g. vite.config.ts, jest.config.js
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(name, ".config")
}
