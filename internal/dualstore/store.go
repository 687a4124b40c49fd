// Package dualstore coordinates the relational store and the vector index,
// maintaining the bijective string<->uint64 identifier mapping the vector
// index needs but the relational store's natural key (qualified_name)
// doesn't carry.
package dualstore

import (
	"context"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vimo-dev/akin/internal/model"
	"github.com/vimo-dev/akin/internal/relstore"
	"github.com/vimo-dev/akin/internal/vectorindex"
)

// indexFileExt is appended to the database path to derive where the vector
// index persists; coder/hnsw's export format is opaque so the extension is
// nominal.
const indexFileExt = ".hnsw"

// Store presents a single consistent view over a relstore.Store and a
// lazily-created vectorindex.Index.
type Store struct {
	mu sync.RWMutex

	rel       *relstore.Store
	indexPath string

	idx        *vectorindex.Index
	dimensions int

	nameToID map[string]uint64
	idToName map[uint64]string
	nextID   uint64
}

// Open wires a dual store atop an already-open relational store. The
// persisted vector index lives next to the database file, at dbPath plus
// indexFileExt.
func Open(rel *relstore.Store, dbPath string) (*Store, error) {
	s := &Store{
		rel:       rel,
		indexPath: dbPath + indexFileExt,
		nameToID:  make(map[string]uint64),
		idToName:  make(map[uint64]string),
		nextID:    1,
	}

	if err := s.rebuildMappingFromDatabase(); err != nil {
		return nil, err
	}

	if s.dimensions > 0 {
		idx, err := vectorindex.New(vectorindex.DefaultConfig(s.dimensions))
		if err != nil {
			return nil, err
		}
		if fileExists(s.indexPath) {
			if err := idx.Load(s.indexPath); err != nil {
				// Corrupt or stale persisted index: fall back to rebuild.
				if _, rebuildErr := s.rebuildVectorIndexLocked(idx); rebuildErr != nil {
					return nil, rebuildErr
				}
			} else {
				idx.MarkLoaded(s.liveKeys())
			}
		} else {
			if _, err := s.rebuildVectorIndexLocked(idx); err != nil {
				return nil, err
			}
		}
		s.idx = idx
	}

	return s, nil
}

// rebuildMappingFromDatabase enumerates every code unit in natural SQL
// scan order (rowid order, i.e. insertion order) and assigns ids,
// discovering the embedding dimension from the first unit that carries
// one. The order matters: UpsertCodeUnit hands out ids as units stream in
// during indexing and those ids are baked into the saved graph's node
// keys, so reopening must reproduce the same id for the same unit or
// every loaded-graph hit resolves to the wrong qualified_name.
func (s *Store) rebuildMappingFromDatabase() error {
	units, err := s.rel.GetCodeUnitsByProjects(nil)
	if err != nil {
		return err
	}

	var nextID uint64 = 1
	for _, u := range units {
		s.nameToID[u.QualifiedName] = nextID
		s.idToName[nextID] = u.QualifiedName
		nextID++

		if s.dimensions == 0 {
			if vec, ok := model.DecodeEmbedding(u.Embedding); ok && len(vec) > 0 {
				s.dimensions = len(vec)
			}
		}
	}
	s.nextID = nextID
	return nil
}

func (s *Store) liveKeys() []uint64 {
	keys := make([]uint64, 0, len(s.idToName))
	for id := range s.idToName {
		keys = append(keys, id)
	}
	return keys
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// UpsertCodeUnit writes unit through the relational store, then - if it
// carries an embedding - ensures the vector index exists, grows it when
// full, and (re)inserts the vector under the unit's assigned id. The two
// writes are not globally transactional; RebuildVectorIndex recovers from
// a crash between them.
func (s *Store) UpsertCodeUnit(unit *model.CodeUnit) error {
	if err := s.rel.UpsertCodeUnit(unit); err != nil {
		return err
	}

	if len(unit.Embedding) == 0 {
		return nil
	}
	vec, ok := model.DecodeEmbedding(unit.Embedding)
	if !ok || len(vec) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, known := s.nameToID[unit.QualifiedName]
	if !known {
		id = s.nextID
		s.nextID++
		s.nameToID[unit.QualifiedName] = id
		s.idToName[id] = unit.QualifiedName
	}

	if s.idx == nil {
		idx, err := vectorindex.New(vectorindex.DefaultConfig(len(vec)))
		if err != nil {
			return err
		}
		s.dimensions = len(vec)
		s.idx = idx
	}

	if s.idx.Size()+1 > s.idx.Capacity() {
		s.idx.Reserve(s.idx.Capacity() + 1000)
	}

	s.idx.Remove(id)
	return s.idx.Add(id, vec)
}

// SaveVectorIndex persists the in-memory vector index to its on-disk path.
func (s *Store) SaveVectorIndex() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.idx == nil {
		return nil
	}
	return s.idx.Save(s.indexPath)
}

// RebuildVectorIndex clears the in-memory mapping, reassigns ids in the
// same natural scan order rebuildMappingFromDatabase uses, rebuilds the
// vector index from every embedded unit in the database, and persists it.
// Returns the number of embeddings written.
func (s *Store) RebuildVectorIndex() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	units, err := s.rel.GetCodeUnitsByProjects(nil)
	if err != nil {
		return 0, err
	}

	dims := s.dimensions
	for _, u := range units {
		if vec, ok := model.DecodeEmbedding(u.Embedding); ok && len(vec) > 0 {
			dims = len(vec)
			break
		}
	}
	if dims == 0 {
		s.nameToID = make(map[string]uint64)
		s.idToName = make(map[uint64]string)
		s.nextID = 1
		s.idx = nil
		return 0, nil
	}

	idx, err := vectorindex.New(vectorindex.DefaultConfig(dims))
	if err != nil {
		return 0, err
	}
	idx.Reserve(len(units) + 1000)

	nameToID := make(map[string]uint64, len(units))
	idToName := make(map[uint64]string, len(units))
	var nextID uint64 = 1
	written := 0

	for _, u := range units {
		id := nextID
		nextID++
		nameToID[u.QualifiedName] = id
		idToName[id] = u.QualifiedName

		vec, ok := model.DecodeEmbedding(u.Embedding)
		if !ok || len(vec) == 0 {
			continue
		}
		if err := idx.Add(id, vec); err != nil {
			return written, err
		}
		written++
	}

	s.nameToID = nameToID
	s.idToName = idToName
	s.nextID = nextID
	s.dimensions = dims
	s.idx = idx

	if err := idx.Save(s.indexPath); err != nil {
		return written, err
	}
	return written, nil
}

func (s *Store) rebuildVectorIndexLocked(idx *vectorindex.Index) (int, error) {
	// Used only during Open, before s.idx is assigned; inserts under the
	// ids rebuildMappingFromDatabase already handed out, against a
	// caller-owned index instance.
	units, err := s.rel.GetCodeUnitsByProjects(nil)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, u := range units {
		id, ok := s.nameToID[u.QualifiedName]
		if !ok {
			continue
		}
		vec, ok := model.DecodeEmbedding(u.Embedding)
		if !ok || len(vec) == 0 {
			continue
		}
		if err := idx.Add(id, vec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// IDFor returns the uint64 assigned to qualifiedName, if any.
func (s *Store) IDFor(qualifiedName string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.nameToID[qualifiedName]
	return id, ok
}

// NameFor returns the qualified_name assigned to id, if any.
func (s *Store) NameFor(id uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.idToName[id]
	return name, ok
}

// SimilarUnit is one hit from a similarity search, joined back to its
// CodeUnit row.
type SimilarUnit struct {
	Unit       *model.CodeUnit
	Similarity float64
}

// SearchSimilar returns the top k units whose embedding is within
// similarity floor of query.
func (s *Store) SearchSimilar(query []float32, k int, floor float64) ([]SimilarUnit, error) {
	return s.SearchSimilarFiltered(query, k, floor, nil)
}

// SearchSimilarFiltered is SearchSimilar restricted to units for which
// predicate(qualified_name) returns true.
func (s *Store) SearchSimilarFiltered(query []float32, k int, floor float64, predicate func(string) bool) ([]SimilarUnit, error) {
	s.mu.RLock()
	idx := s.idx
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	var idPredicate func(uint64) bool
	if predicate != nil {
		idPredicate = func(id uint64) bool {
			name, ok := s.NameFor(id)
			if !ok {
				return false
			}
			return predicate(name)
		}
	}

	results, err := idx.SearchFiltered(query, k, idPredicate)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarUnit, 0, len(results))
	for _, r := range results {
		if r.Similarity < floor {
			continue
		}
		name, ok := s.NameFor(r.ID)
		if !ok {
			continue
		}
		unit, err := s.rel.GetCodeUnit(name)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			continue
		}
		out = append(out, SimilarUnit{Unit: unit, Similarity: r.Similarity})
	}
	return out, nil
}

// SearchSimilarBruteForce is the O(N) cosine loop over all embedded units
// in scope, used by the hook when IndexReady reports false (the vector
// index is missing or uninitialized). projectIDs narrows the scan the same
// way relstore.GetCodeUnitsByProjects does (nil means all projects);
// predicate is applied to each candidate's qualified_name, same contract
// as SearchSimilarFiltered.
func (s *Store) SearchSimilarBruteForce(query []float32, k int, floor float64, projectIDs []int64, predicate func(string) bool) ([]SimilarUnit, error) {
	units, err := s.rel.GetCodeUnitsByProjects(projectIDs)
	if err != nil {
		return nil, err
	}

	out := make([]SimilarUnit, 0, k)
	for _, u := range units {
		if predicate != nil && !predicate(u.QualifiedName) {
			continue
		}
		vec, ok := model.DecodeEmbedding(u.Embedding)
		if !ok || len(vec) == 0 {
			continue
		}
		sim := model.CosineSimilarity(query, vec)
		if sim < floor {
			continue
		}
		out = append(out, SimilarUnit{Unit: u, Similarity: sim})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// NameHit is a lightweight search result that never touches the database,
// the hot path for batch scanning.
type NameHit struct {
	Name       string
	Similarity float64
}

// SearchNames is SearchSimilar without the CodeUnit join.
func (s *Store) SearchNames(query []float32, k int, floor float64) ([]NameHit, error) {
	s.mu.RLock()
	idx := s.idx
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	results, err := idx.Search(query, k)
	if err != nil {
		return nil, err
	}

	out := make([]NameHit, 0, len(results))
	for _, r := range results {
		if r.Similarity < floor {
			continue
		}
		name, ok := s.NameFor(r.ID)
		if !ok {
			continue
		}
		out = append(out, NameHit{Name: name, Similarity: r.Similarity})
	}
	return out, nil
}

// BatchHit is one result from SearchBatchParallel, tagged with the index of
// the query that produced it so callers can reassemble per-query result
// sets after the fan-out.
type BatchHit struct {
	QueryIndex int
	Name       string
	Similarity float64
}

// SearchBatchParallel runs SearchNames for every query concurrently via
// errgroup, fanning out across available cores; each worker only reads the
// shared index and reverse mapping, so no query result depends on another.
func (s *Store) SearchBatchParallel(ctx context.Context, queries [][]float32, k int, floor float64) ([]BatchHit, error) {
	results := make([][]NameHit, len(queries))

	g, _ := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := s.SearchNames(q, k, floor)
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []BatchHit
	for qi, hits := range results {
		for _, h := range hits {
			flat = append(flat, BatchHit{QueryIndex: qi, Name: h.Name, Similarity: h.Similarity})
		}
	}
	return flat, nil
}

// Dimensions returns the vector index's configured dimensionality, or 0 if
// no index has been created yet (no unit has ever carried an embedding).
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// IndexReady reports whether the vector index exists (lazily created on
// first embedded upsert, or on Open against a non-empty database).
func (s *Store) IndexReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx != nil
}
