package vectorindex

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot%dims] = 1.0
	return v
}

func TestNew_RejectsZeroDimensions(t *testing.T) {
	_, err := New(Config{Dimensions: 0})
	assert.Error(t, err)
}

func TestAdd_RejectsDimensionMismatch(t *testing.T) {
	idx, err := New(DefaultConfig(8))
	require.NoError(t, err)

	err = idx.Add(1, make([]float32, 4))
	assert.Error(t, err)
}

func TestAdd_AndSearch_ReturnsNearestFirst(t *testing.T) {
	idx, err := New(DefaultConfig(4))
	require.NoError(t, err)

	require.NoError(t, idx.Add(1, unitVec(4, 0)))
	require.NoError(t, idx.Add(2, unitVec(4, 1)))
	require.NoError(t, idx.Add(3, unitVec(4, 0))) // identical to id 1

	results, err := idx.Search(unitVec(4, 0), 2)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, []uint64{1, 3}, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestSearchFiltered_ExcludesRejectedIDs(t *testing.T) {
	idx, err := New(DefaultConfig(4))
	require.NoError(t, err)

	require.NoError(t, idx.Add(1, unitVec(4, 0)))
	require.NoError(t, idx.Add(2, unitVec(4, 0)))

	results, err := idx.SearchFiltered(unitVec(4, 0), 5, func(id uint64) bool {
		return id != 1
	})

	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, uint64(1), r.ID)
	}
}

func TestRemove_ThenContainsFalse(t *testing.T) {
	idx, err := New(DefaultConfig(4))
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, unitVec(4, 0)))

	idx.Remove(1)

	assert.False(t, idx.Contains(1))
	assert.Equal(t, 0, idx.Size())
}

func TestSaveLoad_RoundTripsGraph(t *testing.T) {
	idx, err := New(DefaultConfig(4))
	require.NoError(t, err)
	require.NoError(t, idx.Add(1, unitVec(4, 0)))
	require.NoError(t, idx.Add(2, unitVec(4, 1)))

	path := filepath.Join(t.TempDir(), "index.hnsw")
	require.NoError(t, idx.Save(path))

	loaded, err := New(DefaultConfig(4))
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))
	loaded.MarkLoaded([]uint64{1, 2})

	assert.Equal(t, 2, loaded.Size())
	results, err := loaded.Search(unitVec(4, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].ID)
}

func TestDimensions_ReturnsConfiguredValue(t *testing.T) {
	idx, err := New(DefaultConfig(1024))
	require.NoError(t, err)
	assert.Equal(t, 1024, idx.Dimensions())
}

func TestNormalizeInPlace_ZeroVectorIsNoop(t *testing.T) {
	v := make([]float32, 4)
	normalizeInPlace(v)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestNormalizeInPlace_UnitLength(t *testing.T) {
	v := []float32{3, 4, 0, 0}
	normalizeInPlace(v)
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.True(t, math.Abs(sumSquares-1.0) < 1e-5)
}
