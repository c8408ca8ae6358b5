package gyro

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/gyrodb/gyro/embedding"
	"github.com/gyrodb/gyro/hnsw"
	"github.com/gyrodb/gyro/kernel"
	"github.com/gyrodb/gyro/query"
)

// planExecutor is satisfied by both the scalar and the vectorized executor.
type planExecutor interface {
	Stream(ctx context.Context, plan query.Node) (iter.Seq2[query.Row, error], error)
	Materialize(ctx context.Context, plan query.Node) ([]query.Row, error)
}

// Gyro wires the kernel registry, the hyperbolic index, the embedding
// lifecycle manager and the query executor behind one facade.
//
// The index is not internally synchronized: callers must impose a
// single-writer or reader-writer discipline across Insert/KNNSearch/Delete.
// The embedding manager and the default storage are independently
// synchronized collaborators.
type Gyro struct {
	kernels    *kernel.Registry
	index      *hnsw.Index
	embeddings *embedding.Manager
	executor   planExecutor

	metrics MetricsCollector
	logger  *Logger
}

// New creates a Gyro instance for vectors of the given dimension.
func New(dimension int, optFns ...Option) (*Gyro, error) {
	o := applyOptions(optFns)

	kernelFn, ok := o.kernels.Get(o.kernelName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKernelNotRegistered, o.kernelName)
	}

	index, err := hnsw.New(dimension, func(io *hnsw.Options) {
		if o.m > 0 {
			io.M = o.m
		}
		if o.efSearch > 0 {
			io.EFSearch = o.efSearch
		}
		io.Kernel = kernelFn
		io.RandomSeed = o.randomSeed
	})
	if err != nil {
		return nil, err
	}

	var executor planExecutor
	if o.vectorized {
		executor = query.NewVectorizedExecutor(o.storage, o.kernels)
	} else {
		executor = query.NewExecutor(o.storage, o.kernels)
	}

	return &Gyro{
		kernels:    o.kernels,
		index:      index,
		embeddings: embedding.NewManager(),
		executor:   executor,
		metrics:    o.metricsCollector,
		logger:     o.logger,
	}, nil
}

// Insert adds a vector under id.
func (g *Gyro) Insert(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	start := time.Now()

	err := g.index.Insert(ctx, id, vector, metadata)

	g.metrics.RecordInsert(time.Since(start), err)
	g.logger.LogInsert(ctx, id, len(vector), err)

	return err
}

// KNNSearch returns the k nearest neighbors of query, ascending by distance.
func (g *Gyro) KNNSearch(ctx context.Context, vector []float64, k int, optFns ...func(o *hnsw.SearchOptions)) ([]hnsw.SearchResult, error) {
	start := time.Now()

	results, err := g.index.KNNSearch(ctx, vector, k, optFns...)

	g.metrics.RecordSearch(k, time.Since(start), err)
	g.logger.LogSearch(ctx, k, len(results), err)

	return results, err
}

// Delete removes id from the index. Returns false if the id is absent.
func (g *Gyro) Delete(ctx context.Context, id string) bool {
	start := time.Now()

	found := g.index.Delete(ctx, id)

	g.metrics.RecordDelete(time.Since(start), found)
	g.logger.LogDelete(ctx, id, found)

	return found
}

// Update replaces the vector stored under id (delete plus insert).
func (g *Gyro) Update(ctx context.Context, id string, vector []float64, metadata map[string]any) error {
	return g.index.Update(ctx, id, vector, metadata)
}

// Record returns the stored record for id.
func (g *Gyro) Record(id string) (hnsw.VectorRecord, error) {
	rec, ok := g.index.Get(id)
	if !ok {
		return hnsw.VectorRecord{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return rec, nil
}

// UpsertEmbedding stores a new version of an entity's embedding in the
// lifecycle manager and feeds it into the index (replacing any previous
// vector under the same id). An empty version gets a generated identifier;
// the effective version is returned and carried in the record metadata.
func (g *Gyro) UpsertEmbedding(ctx context.Context, entityID string, vector []float64, version string) (string, error) {
	version, err := g.embeddings.Store(entityID, vector, version)
	if err != nil {
		g.logger.LogUpsertEmbedding(ctx, entityID, version, err)
		return "", err
	}

	err = g.index.Update(ctx, entityID, vector, map[string]any{"version": version})
	g.logger.LogUpsertEmbedding(ctx, entityID, version, err)
	if err != nil {
		return "", err
	}

	return version, nil
}

// Query compiles plan and returns a lazy row stream (streamed mode).
func (g *Gyro) Query(ctx context.Context, plan query.Node) (iter.Seq2[query.Row, error], error) {
	start := time.Now()

	seq, err := g.executor.Stream(ctx, plan)

	g.metrics.RecordQuery(time.Since(start), err)
	g.logger.LogQuery(ctx, fmt.Sprint(plan), err)

	return seq, err
}

// QueryAll drains the streamed pipeline into a slice (materialized mode).
func (g *Gyro) QueryAll(ctx context.Context, plan query.Node) ([]query.Row, error) {
	start := time.Now()

	rows, err := g.executor.Materialize(ctx, plan)

	g.metrics.RecordQuery(time.Since(start), err)
	g.logger.LogQuery(ctx, fmt.Sprint(plan), err)

	return rows, err
}

// Stats returns graph statistics for polling by external telemetry.
func (g *Gyro) Stats() hnsw.Stats {
	return g.index.Stats()
}

// Len returns the number of vectors in the index.
func (g *Gyro) Len() int {
	return g.index.Len()
}

// Kernels returns the kernel registry.
func (g *Gyro) Kernels() *kernel.Registry {
	return g.kernels
}

// Embeddings returns the embedding lifecycle manager.
func (g *Gyro) Embeddings() *embedding.Manager {
	return g.embeddings
}

// Index returns the underlying hyperbolic index.
func (g *Gyro) Index() *hnsw.Index {
	return g.index
}
