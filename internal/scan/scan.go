// Package scan implements the batch similarity scanner: it parallelizes
// top-k queries across all stored units, normalizes pair ordering, and
// persists discovered pairs.
package scan

import (
	"context"
	"sort"

	"github.com/vimo-dev/akin/internal/dualstore"
	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
)

// topK is fixed at 100: an HNSW search returns at most k neighbors, so k
// must comfortably exceed how many units could plausibly sit above the
// similarity floor for any one query, or a smaller k would silently lose
// matches under high cluster density.
const topK = 100

// Options configures one scan run.
type Options struct {
	// ProjectIDs restricts the scan to these projects; empty means every
	// indexed project.
	ProjectIDs []int64
	Threshold  float64
	CrossOnly  bool
}

// Scanner runs batch similarity scans against a dual store + relational
// store pair.
type Scanner struct {
	Dual *dualstore.Store
	Rel  *relstore.Store
}

// New constructs a Scanner.
func New(dual *dualstore.Store, rel *relstore.Store) *Scanner {
	return &Scanner{Dual: dual, Rel: rel}
}

// Run loads every embedded unit in scope, fans their vectors out through
// the parallel batch search, canonicalizes and deduplicates the resulting
// pairs, persists them, and returns the discovered pairs joined with
// file/line metadata, ordered by similarity descending.
func (s *Scanner) Run(ctx context.Context, opts Options) ([]relstore.SimilarPairView, error) {
	units, err := s.Rel.GetCodeUnitsByProjects(opts.ProjectIDs)
	if err != nil {
		return nil, err
	}

	type embedded struct {
		unit *model.CodeUnit
		vec  []float32
	}
	var candidates []embedded
	for _, u := range units {
		vec, ok := model.DecodeEmbedding(u.Embedding)
		if !ok || len(vec) == 0 {
			continue
		}
		candidates = append(candidates, embedded{unit: u, vec: vec})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	projectByName := make(map[string]int64, len(candidates))
	queries := make([][]float32, len(candidates))
	for i, c := range candidates {
		projectByName[c.unit.QualifiedName] = c.unit.ProjectID
		queries[i] = c.vec
	}

	hits, err := s.Dual.SearchBatchParallel(ctx, queries, topK, opts.Threshold)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]bool)
	var pairs []model.SimilarPair
	for _, h := range hits {
		queryName := candidates[h.QueryIndex].unit.QualifiedName
		if queryName == h.Name {
			continue // self-match
		}
		if opts.CrossOnly && projectByName[queryName] == projectByName[h.Name] {
			continue
		}

		a, b := model.CanonicalPair(queryName, h.Name)
		key := [2]string{a, b}
		if seen[key] {
			continue
		}
		seen[key] = true

		pairs = append(pairs, model.SimilarPair{
			UnitA:         a,
			UnitB:         b,
			Similarity:    h.Similarity,
			TriggerReason: "scan",
		})
	}

	if len(pairs) > 0 {
		if err := s.Rel.BatchUpsertSimilarPairs(pairs, "scan"); err != nil {
			return nil, err
		}
	}

	report, err := s.Rel.GetSimilarPairs(relstore.PairQuery{
		MinSimilarity: opts.Threshold,
		ProjectIDs:    opts.ProjectIDs,
	})
	if err != nil {
		return nil, err
	}

	if opts.CrossOnly {
		filtered := report[:0]
		for _, p := range report {
			if projectByName[p.UnitA] == projectByName[p.UnitB] {
				continue
			}
			filtered = append(filtered, p)
		}
		report = filtered
	}

	sort.SliceStable(report, func(i, j int) bool { return report[i].Similarity > report[j].Similarity })
	return report, nil
}
