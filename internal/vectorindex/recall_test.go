package vectorindex

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVec(rng *rand.Rand, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

// bruteForceTopK ranks ids by exact cosine similarity against query.
func bruteForceTopK(vectors map[uint64][]float32, query []float32, k int) []uint64 {
	type scored struct {
		id  uint64
		sim float64
	}
	scores := make([]scored, 0, len(vectors))
	for id, v := range vectors {
		scores = append(scores, scored{id: id, sim: cosine(query, v)})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].sim > scores[j].sim })
	if len(scores) > k {
		scores = scores[:k]
	}
	out := make([]uint64, len(scores))
	for i, s := range scores {
		out[i] = s.id
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func TestSearch_RecallAgainstBruteForce(t *testing.T) {
	const (
		dims    = 128
		count   = 1000
		k       = 10
		queries = 10
	)

	rng := rand.New(rand.NewSource(42))

	idx, err := New(DefaultConfig(dims))
	require.NoError(t, err)
	idx.Reserve(count)

	vectors := make(map[uint64][]float32, count)
	for id := uint64(1); id <= count; id++ {
		v := randomVec(rng, dims)
		vectors[id] = v
		require.NoError(t, idx.Add(id, v))
	}

	var hit, total int
	for q := 0; q < queries; q++ {
		query := randomVec(rng, dims)

		exact := bruteForceTopK(vectors, query, k)
		exactSet := make(map[uint64]bool, k)
		for _, id := range exact {
			exactSet[id] = true
		}

		approx, err := idx.Search(query, k)
		require.NoError(t, err)

		total += len(exact)
		for _, r := range approx {
			if exactSet[r.ID] {
				hit++
			}
		}
	}

	recall := float64(hit) / float64(total)
	assert.GreaterOrEqual(t, recall, 0.8, "top-%d recall %f below floor", k, recall)
}

func TestSearch_FasterThanBruteForce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance floor test in -short mode")
	}

	const (
		dims    = 1024
		count   = 5000
		k       = 50
		queries = 20
	)

	rng := rand.New(rand.NewSource(7))

	idx, err := New(DefaultConfig(dims))
	require.NoError(t, err)
	idx.Reserve(count)

	vectors := make(map[uint64][]float32, count)
	for id := uint64(1); id <= count; id++ {
		v := randomVec(rng, dims)
		vectors[id] = v
		require.NoError(t, idx.Add(id, v))
	}

	queryVecs := make([][]float32, queries)
	for i := range queryVecs {
		queryVecs[i] = randomVec(rng, dims)
	}

	start := time.Now()
	for _, q := range queryVecs {
		_, err := idx.Search(q, k)
		require.NoError(t, err)
	}
	annElapsed := time.Since(start)

	start = time.Now()
	for _, q := range queryVecs {
		bruteForceTopK(vectors, q, k)
	}
	bruteElapsed := time.Since(start)

	assert.Less(t, annElapsed, bruteElapsed/5,
		"ANN search (%v) not at least 5x faster than brute force (%v)", annElapsed, bruteElapsed)
}
