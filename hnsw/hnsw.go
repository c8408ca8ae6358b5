// Package hnsw implements a layered navigable small-world graph over points
// in the open Poincaré ball, providing approximate nearest neighbor search
// under a pluggable distance kernel.
package hnsw

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gyrodb/gyro/kernel"
)

const (
	// DefaultM is the default maximum number of connections per node per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default size of the dynamic candidate list
	// during insertion.
	DefaultEFConstruction = 64

	// DefaultEFSearch is the default size of the dynamic candidate list
	// during search.
	DefaultEFSearch = 50

	// minimumM is the minimum valid value for M.
	minimumM = 2
)

// Options represents the options for configuring the index.
type Options struct {
	// M is the maximum number of connections per node per layer.
	M int

	// EFConstruction is the size of the dynamic candidate list used while
	// locating neighbors for a new node.
	EFConstruction int

	// EFSearch is the default size of the dynamic candidate list during
	// search. Overridable per call via SearchOptions.
	EFSearch int

	// Kernel is the distance function used for every graph operation.
	// The kernel is fixed for the full duration of any single operation;
	// it is never mixed mid-search or mid-insert.
	Kernel kernel.Func

	// RandomSeed seeds the layer generator for reproducible graphs.
	// If nil, the generator is seeded from the clock.
	RandomSeed *int64
}

// DefaultOptions are the default index options.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Kernel:         kernel.Poincare,
}

// VectorRecord is a stored vector with its identity and metadata.
// Records are immutable after insert; an update is a delete plus an insert.
type VectorRecord struct {
	ID       string
	Vector   []float64
	Metadata map[string]any

	// Norm is the Euclidean norm of Vector, computed once at insert.
	Norm float64
}

// SearchResult represents a search result.
type SearchResult struct {
	ID       string
	Distance float64
}

// node is a graph node. conns[l] holds the neighbor local ids at layer l;
// the node exists on layers 0..len(conns)-1.
type node struct {
	local  uint32
	record VectorRecord
	conns  [][]uint32
}

func (n *node) maxLayer() int { return len(n.conns) - 1 }

// Index is the hyperbolic vector index.
//
// Index is not internally synchronized: insert mutates multiple layers
// non-atomically, so concurrent use requires an externally imposed
// single-writer or reader-writer discipline.
type Index struct {
	dimension      int
	m              int
	efConstruction int
	efSearch       int
	kernel         kernel.Func

	// layerMultiplier normalizes the exponential layer distribution:
	// maxLayer = floor(-ln(U) * layerMultiplier).
	layerMultiplier float64
	rng             *rand.Rand

	nodes     map[uint32]*node
	locals    map[string]uint32
	nextLocal uint32

	entry    uint32
	hasEntry bool
	topLayer int

	opts Options
}

// New creates a new index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}

	if opts.M < minimumM {
		opts.M = minimumM
	}

	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}

	if opts.Kernel == nil {
		opts.Kernel = kernel.Poincare
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Index{
		dimension:       dimension,
		m:               opts.M,
		efConstruction:  opts.EFConstruction,
		efSearch:        opts.EFSearch,
		kernel:          opts.Kernel,
		layerMultiplier: 1 / math.Log(2),
		rng:             rng,
		nodes:           make(map[uint32]*node),
		locals:          make(map[string]uint32),
		opts:            opts,
	}, nil
}

// Len returns the number of vectors currently in the index.
func (i *Index) Len() int { return len(i.nodes) }

// Dimension returns the configured vector dimension.
func (i *Index) Dimension() int { return i.dimension }

// Get returns the record stored under id.
func (i *Index) Get(id string) (VectorRecord, bool) {
	local, ok := i.locals[id]
	if !ok {
		return VectorRecord{}, false
	}

	return i.nodes[local].record, true
}

// randomLayer draws floor(-ln(U) / ln(2)) from the injected generator.
func (i *Index) randomLayer() int {
	u := i.rng.Float64()
	for u == 0 {
		u = i.rng.Float64()
	}

	return int(math.Floor(-math.Log(u) * i.layerMultiplier))
}

// Insert adds a new vector under id. Validation precedes any mutation:
// a dimension mismatch or duplicate id leaves the index untouched.
func (i *Index) Insert(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	if len(vector) != i.dimension {
		return &ErrDimensionMismatch{Expected: i.dimension, Actual: len(vector)}
	}

	if _, ok := i.locals[id]; ok {
		return &ErrDuplicateID{ID: id}
	}

	vec := slices.Clone(vector)

	n := &node{
		local: i.nextLocal,
		record: VectorRecord{
			ID:       id,
			Vector:   vec,
			Metadata: metadata,
			Norm:     kernel.Norm(vec),
		},
		conns: make([][]uint32, i.randomLayer()+1),
	}
	i.nextLocal++

	if len(i.nodes) == 0 {
		i.nodes[n.local] = n
		i.locals[id] = n.local
		i.entry = n.local
		i.hasEntry = true
		i.topLayer = n.maxLayer()

		return nil
	}

	i.nodes[n.local] = n
	i.locals[id] = n.local

	// Greedy descent through the layers above the new node's top layer
	// locates a good starting point for neighbor selection.
	curr := i.entry
	currDist := i.kernel(vec, i.nodes[curr].record.Vector)

	newLayer := n.maxLayer()
	for layer := i.topLayer; layer > newLayer; layer-- {
		curr, currDist = i.descendLayer(vec, curr, currDist, layer)
	}

	for layer := min(newLayer, i.topLayer); layer >= 0; layer-- {
		candidates := i.searchLayer(vec, curr, currDist, i.efConstruction, layer)

		// Only nodes that exist on this layer can carry the back edge.
		candidates = slices.DeleteFunc(candidates, func(c scored) bool {
			return layer > i.nodes[c.local].maxLayer()
		})

		i.sortScored(candidates)

		if len(candidates) > i.m {
			candidates = candidates[:i.m]
		}

		conns := make([]uint32, len(candidates))
		for j, c := range candidates {
			conns[j] = c.local
		}
		n.conns[layer] = conns

		for _, c := range candidates {
			i.link(c.local, n.local, layer)
		}

		if len(candidates) > 0 {
			curr, currDist = candidates[0].local, candidates[0].dist
		}
	}

	// The entry point is sticky: it only changes when the index was empty
	// or the entry itself is deleted. Layers above it still count toward
	// the graph's top layer.
	if newLayer > i.topLayer {
		i.topLayer = newLayer
	}

	return nil
}

// link records a bidirectional edge from an existing node to the new node
// and prunes the neighbor list back to the M closest on overflow.
func (i *Index) link(from, to uint32, layer int) {
	nb := i.nodes[from]
	if layer > nb.maxLayer() {
		return
	}

	if slices.Contains(nb.conns[layer], to) {
		return
	}

	nb.conns[layer] = append(nb.conns[layer], to)

	if len(nb.conns[layer]) <= i.m {
		return
	}

	// Prune to the M closest by recomputing distances to all current
	// neighbors. Stable order, ties broken by smaller id.
	candidates := make([]scored, 0, len(nb.conns[layer]))
	for _, c := range nb.conns[layer] {
		candidates = append(candidates, scored{
			local: c,
			dist:  i.kernel(nb.record.Vector, i.nodes[c].record.Vector),
		})
	}

	i.sortScored(candidates)

	conns := make([]uint32, i.m)
	for j := 0; j < i.m; j++ {
		conns[j] = candidates[j].local
	}

	nb.conns[layer] = conns
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	// EF is the size of the bounded candidate list for the base-layer beam
	// search. Values below k are clamped to k.
	EF int
}

// KNNSearch returns the k nearest neighbors of query, ascending by distance
// with ties broken by id. An empty index or k <= 0 yields an empty result.
func (i *Index) KNNSearch(ctx context.Context, query []float64, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	if len(query) != i.dimension {
		return nil, &ErrDimensionMismatch{Expected: i.dimension, Actual: len(query)}
	}

	if k <= 0 || len(i.nodes) == 0 {
		return []SearchResult{}, nil
	}

	opts := SearchOptions{EF: i.efSearch}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.EF < k {
		opts.EF = k
	}

	curr := i.entry
	currDist := i.kernel(query, i.nodes[curr].record.Vector)

	for layer := i.topLayer; layer >= 1; layer-- {
		curr, currDist = i.descendLayer(query, curr, currDist, layer)
	}

	candidates := i.searchLayer(query, curr, currDist, opts.EF, 0)
	i.sortScored(candidates)

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]SearchResult, len(candidates))
	for j, c := range candidates {
		results[j] = SearchResult{ID: i.nodes[c.local].record.ID, Distance: c.dist}
	}

	return results, nil
}

// BruteSearch performs an exact linear scan. Used as ground truth in tests
// and for datasets too small to benefit from the graph.
func (i *Index) BruteSearch(ctx context.Context, query []float64, k int) ([]SearchResult, error) {
	if len(query) != i.dimension {
		return nil, &ErrDimensionMismatch{Expected: i.dimension, Actual: len(query)}
	}

	if k <= 0 || len(i.nodes) == 0 {
		return []SearchResult{}, nil
	}

	candidates := make([]scored, 0, len(i.nodes))
	for local, n := range i.nodes {
		candidates = append(candidates, scored{local: local, dist: i.kernel(query, n.record.Vector)})
	}

	i.sortScored(candidates)

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]SearchResult, len(candidates))
	for j, c := range candidates {
		results[j] = SearchResult{ID: i.nodes[c.local].record.ID, Distance: c.dist}
	}

	return results, nil
}

// Delete removes id from the index, stripping it from every neighbor list
// on every layer. Former neighbors of the deleted node are not reconnected
// to each other; the resulting local fragmentation is an accepted
// approximation of this index.
func (i *Index) Delete(ctx context.Context, id string) bool {
	local, ok := i.locals[id]
	if !ok {
		return false
	}

	delete(i.locals, id)
	delete(i.nodes, local)

	for _, other := range i.nodes {
		for layer, conns := range other.conns {
			other.conns[layer] = slices.DeleteFunc(conns, func(c uint32) bool {
				return c == local
			})
		}
	}

	if i.entry == local {
		i.reassignEntry()
	}

	i.recomputeTopLayer()

	return true
}

// Update replaces the vector and metadata stored under id.
// Equivalent to delete followed by insert.
func (i *Index) Update(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	if len(vector) != i.dimension {
		return &ErrDimensionMismatch{Expected: i.dimension, Actual: len(vector)}
	}

	i.Delete(ctx, id)

	return i.Insert(ctx, id, vector, metadata)
}

// reassignEntry deterministically picks the lowest remaining id as the new
// entry point.
func (i *Index) reassignEntry() {
	i.hasEntry = false

	var lowest string
	for id := range i.locals {
		if !i.hasEntry || id < lowest {
			lowest = id
			i.hasEntry = true
		}
	}

	if i.hasEntry {
		i.entry = i.locals[lowest]
	}
}

func (i *Index) recomputeTopLayer() {
	i.topLayer = 0
	for _, n := range i.nodes {
		if n.maxLayer() > i.topLayer {
			i.topLayer = n.maxLayer()
		}
	}
}

// descendLayer greedily moves toward query within a single layer until no
// neighbor improves the distance.
func (i *Index) descendLayer(query []float64, curr uint32, currDist float64, layer int) (uint32, float64) {
	for {
		improved := false

		n := i.nodes[curr]
		if layer <= n.maxLayer() {
			for _, c := range n.conns[layer] {
				d := i.kernel(query, i.nodes[c].record.Vector)
				if d < currDist {
					curr = c
					currDist = d
					improved = true
				}
			}
		}

		if !improved {
			return curr, currDist
		}
	}
}

// searchLayer performs a bounded beam search within one layer: always expand
// the closest unvisited candidate, keep at most ef results, stop when no
// candidate can improve on the worst kept result.
func (i *Index) searchLayer(query []float64, entry uint32, entryDist float64, ef int, layer int) []scored {
	visited := roaring.New()
	visited.Add(entry)

	candidates := newPriorityQueue(false)
	candidates.push(entry, entryDist)

	results := newPriorityQueue(true)
	results.push(entry, entryDist)

	for candidates.len() > 0 {
		c := candidates.pop()

		if results.len() >= ef && c.distance > results.top().distance {
			break
		}

		n := i.nodes[c.node]
		if layer > n.maxLayer() {
			continue
		}

		for _, nb := range n.conns[layer] {
			if visited.Contains(nb) {
				continue
			}
			visited.Add(nb)

			d := i.kernel(query, i.nodes[nb].record.Vector)

			if results.len() < ef {
				results.push(nb, d)
				candidates.push(nb, d)
			} else if d < results.top().distance {
				results.pop()
				results.push(nb, d)
				candidates.push(nb, d)
			}
		}
	}

	out := make([]scored, 0, results.len())
	for results.len() > 0 {
		item := results.pop()
		out = append(out, scored{local: item.node, dist: item.distance})
	}

	return out
}

// scored pairs a local id with its distance to the current query.
type scored struct {
	local uint32
	dist  float64
}

// sortScored orders ascending by distance, ties broken by smaller id.
func (i *Index) sortScored(s []scored) {
	sort.SliceStable(s, func(a, b int) bool {
		if s[a].dist != s[b].dist {
			return s[a].dist < s[b].dist
		}

		return i.nodes[s[a].local].record.ID < i.nodes[s[b].local].record.ID
	})
}
