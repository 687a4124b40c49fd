package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vimo-dev/akin/internal/dualstore"
	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
)

func unitVec(hot int, dims int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1
	return v
}

func seedEmbeddedUnit(t *testing.T, rel *relstore.Store, projectID int64, name string, vec []float32) {
	t.Helper()
	body := "fn " + name + "() {}"
	// The file path is the qualified name's file segment ("rust:a.rs::foo" -> "a.rs").
	file := strings.TrimPrefix(name, "rust:")
	if i := strings.Index(file, "::"); i >= 0 {
		file = file[:i]
	}
	err := rel.UpsertCodeUnit(&model.CodeUnit{
		QualifiedName: name,
		ProjectID:     projectID,
		FilePath:      file,
		Kind:          model.KindFunction,
		RangeStart:    1,
		RangeEnd:      3,
		Body:          body,
		ContentHash:   model.ContentHash(body),
		StructureHash: model.StructureHash(body),
		Embedding:     model.EncodeEmbedding(vec),
	})
	require.NoError(t, err)
}

func newTestScanner(t *testing.T) (*Scanner, *relstore.Store, int64, int64) {
	t.Helper()
	rel, err := relstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rel.Close() })

	dual, err := dualstore.Open(rel, t.TempDir()+"/akin.db")
	require.NoError(t, err)

	p1, err := rel.GetOrCreateProject("proj-a", "/a", model.LangRust)
	require.NoError(t, err)
	p2, err := rel.GetOrCreateProject("proj-b", "/b", model.LangRust)
	require.NoError(t, err)

	return New(dual, rel), rel, p1, p2
}

func TestRun_FindsNearIdenticalPairWithinProject(t *testing.T) {
	s, rel, p1, _ := newTestScanner(t)

	vec := unitVec(0, 8)
	seedEmbeddedUnit(t, rel, p1, "rust:lib.rs::foo", vec)
	seedEmbeddedUnit(t, rel, p1, "rust:lib.rs::bar", vec)
	// Re-ensure the dual store's in-memory vector index reflects the
	// seeded embeddings (UpsertCodeUnit went through rel directly above,
	// bypassing dualstore's insert path), so rebuild before scanning.
	_, err := s.Dual.RebuildVectorIndex()
	require.NoError(t, err)

	pairs, err := s.Run(context.Background(), Options{Threshold: 0.85})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, "rust:lib.rs::bar", pairs[0].UnitA)
	require.Equal(t, "rust:lib.rs::foo", pairs[0].UnitB)
}

func TestRun_CrossOnlyDropsSameProjectPairs(t *testing.T) {
	s, rel, p1, p2 := newTestScanner(t)

	vec := unitVec(0, 8)
	seedEmbeddedUnit(t, rel, p1, "rust:a.rs::foo", vec)
	seedEmbeddedUnit(t, rel, p1, "rust:a.rs::bar", vec)
	seedEmbeddedUnit(t, rel, p2, "rust:b.rs::baz", vec)
	_, err := s.Dual.RebuildVectorIndex()
	require.NoError(t, err)

	pairs, err := s.Run(context.Background(), Options{Threshold: 0.85, CrossOnly: true})
	require.NoError(t, err)
	for _, p := range pairs {
		require.NotEqual(t, p.FileA, p.FileB)
	}
}

func TestRun_NoEmbeddedUnitsReturnsEmpty(t *testing.T) {
	s, _, _, _ := newTestScanner(t)
	pairs, err := s.Run(context.Background(), Options{Threshold: 0.85})
	require.NoError(t, err)
	require.Empty(t, pairs)
}
