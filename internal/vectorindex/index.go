package vectorindex

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/vimo-dev/akin/internal/apperr"
)

// Index is a thin, ownership-clear adapter around coder/hnsw configured
// with cosine distance. Keys are caller-assigned uint64s - the bijective
// string<->uint64 mapping required to expose string qualified_names lives
// one layer up, in internal/dualstore.
type Index struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config Config
	keys   map[uint64]struct{} // tracks which keys are live, for Contains/Size
}

// New creates an empty Index. config.Dimensions must be positive.
func New(config Config) (*Index, error) {
	if config.Dimensions <= 0 {
		return nil, apperr.New(apperr.ErrCodeDimensionMismatch, "dimensions must be positive", nil)
	}
	if config.M == 0 {
		config.M = 16
	}
	if config.EfConstruction == 0 {
		config.EfConstruction = 128
	}
	if config.EfSearch == 0 {
		config.EfSearch = 64
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = config.M
	graph.EfSearch = config.EfSearch
	graph.Ml = 0.25 // coder/hnsw's recommended level generation factor

	return &Index{
		graph:  graph,
		config: config,
		keys:   make(map[uint64]struct{}),
	}, nil
}

// Reserve pre-allocates capacity for the given number of additional
// vectors. coder/hnsw grows its internal storage on demand, so this is a
// hint rather than a hard allocation; callers track capacity themselves
// via Capacity.
func (idx *Index) Reserve(capacity int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	// coder/hnsw has no explicit reserve API; the map below is the only
	// structure worth pre-sizing.
	if capacity > len(idx.keys) {
		grown := make(map[uint64]struct{}, capacity)
		for k := range idx.keys {
			grown[k] = struct{}{}
		}
		idx.keys = grown
	}
}

// Add inserts or replaces the vector stored under id. Returns
// DimensionMismatch if len(vec) != config.Dimensions.
func (idx *Index) Add(id uint64, vec []float32) error {
	if len(vec) != idx.Dimensions() {
		return apperr.New(apperr.ErrCodeDimensionMismatch, "vector length does not match index dimensions", nil).
			WithDetail("expected", itoa(idx.Dimensions())).
			WithDetail("got", itoa(len(vec)))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	idx.graph.Add(hnsw.MakeNode(id, normalized))
	idx.keys[id] = struct{}{}
	return nil
}

// Remove deletes id from the index. A missing id is not an error.
func (idx *Index) Remove(id uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph.Delete(id)
	delete(idx.keys, id)
	if idx.graph.Len() == 0 {
		// An emptied graph is replaced with a fresh one, so a later Add
		// starts from a clean graph.
		fresh := hnsw.NewGraph[uint64]()
		fresh.Distance = idx.graph.Distance
		fresh.M = idx.graph.M
		fresh.EfSearch = idx.graph.EfSearch
		fresh.Ml = idx.graph.Ml
		idx.graph = fresh
	}
}

// Contains reports whether id currently has a vector stored.
func (idx *Index) Contains(id uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.keys[id]
	return ok
}

// Result is one hit from Search/SearchFiltered, ordered by ascending
// distance (descending similarity).
type Result struct {
	ID         uint64
	Distance   float32 // cosine distance, 0 (identical) to 2 (opposite)
	Similarity float64 // 1 - distance, i.e. the cosine similarity in [-1, 1]
}

// Search returns the k nearest neighbors of query.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	return idx.SearchFiltered(query, k, nil)
}

// SearchFiltered is identical to Search except ids for which predicate
// returns false are excluded from the result set. A nil predicate matches
// everything.
func (idx *Index) SearchFiltered(query []float32, k int, predicate func(uint64) bool) ([]Result, error) {
	if len(query) != idx.Dimensions() {
		return nil, apperr.New(apperr.ErrCodeDimensionMismatch, "query length does not match index dimensions", nil)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.keys) == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// coder/hnsw has no native predicate search, so over-fetch and filter.
	// Widen the request when a predicate is present since some hits will
	// be discarded.
	fetch := k
	if predicate != nil {
		fetch = k * 4
		if fetch < k+32 {
			fetch = k + 32
		}
	}

	nodes := idx.graph.Search(normalized, fetch)

	results := make([]Result, 0, k)
	for _, node := range nodes {
		if predicate != nil && !predicate(node.Key) {
			continue
		}
		dist := idx.graph.Distance(normalized, node.Value)
		results = append(results, Result{
			ID:         node.Key,
			Distance:   dist,
			Similarity: 1.0 - float64(dist),
		})
		if len(results) == k {
			break
		}
	}

	return results, nil
}

// Save persists the index to path using coder/hnsw's binary export format,
// via a temp-file-and-rename for crash-atomicity.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to create index directory", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to create index file", err)
	}

	if err := idx.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to export hnsw graph", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to close index file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to rename index file", err)
	}
	return nil
}

// Load replaces the index's contents with the graph persisted at path.
// Callers are responsible for separately restoring the key set (the
// string<->uint64 mapping lives in internal/dualstore, not here) by
// calling MarkLoaded with the set of keys known to exist in the database.
func (idx *Index) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to open index file", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f) // coder/hnsw Import requires io.ByteReader
	if err := idx.graph.Import(reader); err != nil {
		return apperr.New(apperr.ErrCodeIndexFileIO, "failed to import hnsw graph", err)
	}
	return nil
}

// MarkLoaded records which keys are live after a Load, since the graph's
// binary format carries node keys but the Index's own bookkeeping
// (Contains/Size) needs them re-registered explicitly.
func (idx *Index) MarkLoaded(keys []uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.keys = make(map[uint64]struct{}, len(keys))
	for _, k := range keys {
		idx.keys[k] = struct{}{}
	}
}

// Size returns the number of live vectors in the index.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.keys)
}

// Capacity reports graph node count, including lazily-deleted orphans.
func (idx *Index) Capacity() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len()
}

// MemoryUsage estimates resident bytes: each node stores a float32 vector
// of the configured dimension plus HNSW layer-pointer overhead, which we
// approximate as two pointer-widths per connection.
func (idx *Index) MemoryUsage() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	perNode := int64(idx.config.Dimensions)*4 + int64(idx.config.M)*16
	return perNode * int64(idx.graph.Len())
}

// Dimensions returns the configured vector dimension.
func (idx *Index) Dimensions() int {
	return idx.config.Dimensions
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
