// Package hook implements the real-time editor hook that flags newly
// written code similar to existing code, invoked by the host editor after
// every file edit.
package hook

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vimo-dev/akin/internal/config"
	"github.com/vimo-dev/akin/internal/dualstore"
	"github.com/vimo-dev/akin/internal/embedclient"
	"github.com/vimo-dev/akin/internal/extract/treesitter"
	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
	"github.com/vimo-dev/akin/internal/watch"
)

// Request is the JSON envelope the host editor sends on stdin.
type Request struct {
	HookEventName string `json:"hook_event_name"`
	ToolName      string `json:"tool_name"`
	ToolInput     struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	} `json:"tool_input"`
	Cwd string `json:"cwd"`
}

// Response is the JSON envelope written to stdout. Every field is omitted
// when absent; an entirely empty object means "no action".
type Response struct {
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	SystemMessage string `json:"systemMessage,omitempty"`
}

var extToLang = map[string]model.Language{
	".rs":    model.LangRust,
	".swift": model.LangSwift,
	".ts":    model.LangTypeScript,
	".tsx":   model.LangTypeScript,
	".js":    model.LangJavaScript,
	".jsx":   model.LangJavaScript,
	".mjs":   model.LangJavaScript,
	".cjs":   model.LangJavaScript,
}

var tsLangName = map[model.Language]string{
	model.LangRust:       "rust",
	model.LangSwift:      "swift",
	model.LangTypeScript: "typescript",
	model.LangJavaScript: "javascript",
}

// Deps bundles everything Run needs beyond the request itself.
type Deps struct {
	Config    *config.Config
	Rel       *relstore.Store
	Dual      *dualstore.Store
	Embedder  *embedclient.Client
	Parser    *treesitter.Parser
	Extractor *treesitter.Extractor
}

// Run executes the hook's full policy - extract the edited file's units,
// embed each one, search for near-duplicates, apply scope and ignore
// filters - and returns the Response to serialize to stdout.
func Run(ctx context.Context, req Request, deps Deps) (*Response, error) {
	if req.HookEventName != "PostToolUse" {
		return &Response{}, nil
	}

	ext := strings.ToLower(filepath.Ext(req.ToolInput.FilePath))
	lang, ok := extToLang[ext]
	if !ok {
		return &Response{}, nil
	}

	tree, err := deps.Parser.Parse(ctx, []byte(req.ToolInput.Content), tsLangName[lang])
	if err != nil {
		return &Response{}, nil
	}
	tsUnits := deps.Extractor.Extract(tree)

	minLines := deps.Config.Similarity.MinLines
	relPath := relativeOrSelf(req.Cwd, req.ToolInput.FilePath)

	projectRoot, err := config.FindProjectRoot(req.Cwd)
	if err != nil {
		projectRoot = req.Cwd
	}
	projectID, indexed, err := resolveProject(deps.Rel, projectRoot, lang)
	if err != nil {
		return &Response{}, nil
	}
	if !indexed {
		_, _ = watch.SpawnIndex(projectRoot, string(lang))
	}

	ignored, err := deps.Rel.LoadIgnoredPairs([]int64{projectID})
	if err != nil {
		ignored = relstore.IgnoredPairSet{}
	}

	maxResults := deps.Config.Similarity.MaxResults
	k := maxResults * 3
	if k < 50 {
		k = 50
	}

	type scoredHit struct {
		unit *model.CodeUnit
		sim  float64
	}
	var hits []scoredHit

	for _, u := range tsUnits {
		lineCount := u.EndLine - u.StartLine + 1
		if lineCount < minLines {
			continue
		}
		qname := model.QualifiedName(lang, relPath, u.EnclosingType, u.Name)

		vec, err := deps.Embedder.Embed(ctx, u.Body)
		if err != nil {
			continue // embed failure suppresses this unit entirely
		}

		predicate := func(name string) bool {
			if name == qname {
				return false
			}
			return !ignored.Contains(qname, name)
		}

		var results []dualstore.SimilarUnit
		if deps.Dual.IndexReady() {
			results, err = deps.Dual.SearchSimilarFiltered(vec, k, deps.Config.Similarity.Threshold, predicate)
		} else {
			// Vector index missing/uninitialized: brute-force cosine loop
			// over every embedded unit in scope.
			results, err = deps.Dual.SearchSimilarBruteForce(vec, k, deps.Config.Similarity.Threshold, scopeProjectIDs(deps.Config.Similarity.Scope, projectID), predicate)
		}
		if err != nil {
			continue
		}

		for _, r := range results {
			if !inScope(deps.Config.Similarity.Scope, projectID, r.Unit.ProjectID) {
				continue
			}
			hits = append(hits, scoredHit{unit: r.Unit, sim: r.Similarity})
		}
	}

	if len(hits) == 0 {
		return &Response{}, nil
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	matches := make([]*model.CodeUnit, len(hits))
	sims := make([]float64, len(hits))
	for i, h := range hits {
		matches[i] = h.unit
		sims[i] = h.sim
	}

	return buildResponse(deps.Config, req.ToolInput.FilePath, matches, sims), nil
}

func buildResponse(cfg *config.Config, editedFile string, matches []*model.CodeUnit, sims []float64) *Response {
	reason := formatReason(editedFile, matches, sims)
	if cfg.Hook.Notify == config.NotifyUser {
		return &Response{SystemMessage: reason}
	}
	return &Response{Decision: "block", Reason: reason}
}

// formatReason lists every one of the (already truncated-to-max-results)
// matches, not just the closest one, so an edit that collides with several
// near-duplicates surfaces all of them in one hook response.
func formatReason(editedFile string, matches []*model.CodeUnit, sims []float64) string {
	if len(matches) == 1 {
		match := matches[0]
		pct := int(sims[0]*100 + 0.5)
		return "similar to " + match.QualifiedName + " in " + match.FilePath +
			" (" + strconv.Itoa(pct) + "% similar) - consider reusing " + match.FilePath + " instead of " + editedFile
	}

	var b strings.Builder
	b.WriteString("similar to " + strconv.Itoa(len(matches)) + " existing units:\n")
	for i, match := range matches {
		pct := int(sims[i]*100 + 0.5)
		b.WriteString("  - " + match.QualifiedName + " in " + match.FilePath +
			" (" + strconv.Itoa(pct) + "% similar)\n")
	}
	b.WriteString("consider reusing one of the above instead of " + editedFile)
	return b.String()
}

// scopeProjectIDs narrows the brute-force fallback's database scan to the
// projects inScope could ever accept; nil means "scan every project" (the
// inScope filter below still applies per-hit).
func scopeProjectIDs(scope config.Scope, queryProjectID int64) []int64 {
	if scope == config.ScopeProject {
		return []int64{queryProjectID}
	}
	return nil
}

func inScope(scope config.Scope, queryProjectID, hitProjectID int64) bool {
	switch scope {
	case config.ScopeProject:
		return hitProjectID == queryProjectID
	case config.ScopeCrossOnly:
		return hitProjectID != queryProjectID
	default:
		return true
	}
}

// resolveProject looks up (or creates) the project row for root, and
// reports whether it has ever been indexed (LastIndexedAt set) - a never-
// indexed project triggers the detached background index spawn.
func resolveProject(rel *relstore.Store, root string, lang model.Language) (int64, bool, error) {
	name := filepath.Base(root)
	id, err := rel.GetOrCreateProject(name, root, lang)
	if err != nil {
		return 0, false, err
	}
	project, err := rel.GetProject(id)
	if err != nil {
		return 0, false, err
	}
	return id, project != nil && project.LastIndexedAt != nil, nil
}

func relativeOrSelf(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
