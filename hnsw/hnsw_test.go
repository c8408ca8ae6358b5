package hnsw

import (
	"context"
	"fmt"
	"testing"

	"github.com/gyrodb/gyro/kernel"
	"github.com/gyrodb/gyro/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, dimension int, optFns ...func(o *Options)) *Index {
	t.Helper()

	seed := int64(4711)
	idx, err := New(dimension, append([]func(o *Options){func(o *Options) {
		o.RandomSeed = &seed
	}}, optFns...)...)
	require.NoError(t, err)

	return idx
}

func TestNew(t *testing.T) {
	idx, err := New(16)
	require.NoError(t, err)

	assert.Equal(t, 16, idx.m)
	assert.Equal(t, DefaultEFSearch, idx.efSearch)
	assert.Equal(t, 16, idx.Dimension())
	assert.Equal(t, 0, idx.Len())
}

func TestNewInvalidDimension(t *testing.T) {
	_, err := New(0)

	var ed *ErrInvalidDimension
	require.ErrorAs(t, err, &ed)
	assert.Equal(t, 0, ed.Dimension)
}

func TestNewClampsM(t *testing.T) {
	idx, err := New(4, func(o *Options) { o.M = 1 })
	require.NoError(t, err)

	assert.Equal(t, minimumM, idx.m)
}

func TestInsertDimensionMismatchLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	err := idx.Insert(ctx, "a", []float64{0.1, 0.2, 0.3}, nil)

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Equal(t, 0, idx.Len())
}

func TestInsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))

	err := idx.Insert(ctx, "a", []float64{0.2, 0.0}, nil)

	var dup *ErrDuplicateID
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)
	assert.Equal(t, 1, idx.Len())
}

func TestSearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	results, err := idx.KNNSearch(ctx, []float64{0.1, 0.1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchNonPositiveK(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)
	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))

	results, err := idx.KNNSearch(ctx, []float64{0.1, 0.0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.KNNSearch(ctx, []float64{0.1, 0.0}, -3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)
	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))

	_, err := idx.KNNSearch(ctx, []float64{0.1}, 1)

	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
}

func TestSearchConcreteScenario(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	require.NoError(t, idx.Insert(ctx, "A", []float64{0.1, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "B", []float64{0.2, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "C", []float64{0.9, 0.0}, nil))

	query := []float64{0.15, 0.0}

	dA := kernel.Poincare(query, []float64{0.1, 0.0})
	dB := kernel.Poincare(query, []float64{0.2, 0.0})
	dC := kernel.Poincare(query, []float64{0.9, 0.0})
	require.Less(t, dA, dB)
	require.Less(t, dB, dC)

	results, err := idx.KNNSearch(ctx, query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "A", results[0].ID)
	assert.Equal(t, "B", results[1].ID)
	assert.InDelta(t, dA, results[0].Distance, 1e-12)
	assert.InDelta(t, dB, results[1].Distance, 1e-12)
}

func TestSelfQueryReturnsInsertedID(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(99)

	idx := seeded(t, 4)

	const n = 50
	vecs := rng.BallVectors(n, 4, 0.9)
	for i, v := range vecs {
		require.NoError(t, idx.Insert(ctx, fmt.Sprintf("v%02d", i), v, nil))
	}

	for i, v := range vecs {
		results, err := idx.KNNSearch(ctx, v, 1, func(o *SearchOptions) { o.EF = n })
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, fmt.Sprintf("v%02d", i), results[0].ID)
		assert.InDelta(t, 0, results[0].Distance, 1e-9)
	}
}

func TestSearchTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	// Equidistant from the origin on opposite sides.
	require.NoError(t, idx.Insert(ctx, "b", []float64{-0.3, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "a", []float64{0.3, 0.0}, nil))

	results, err := idx.KNNSearch(ctx, []float64{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestEFBelowKIsClamped(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Insert(ctx, fmt.Sprintf("v%d", i), []float64{0.05 * float64(i), 0.01}, nil))
	}

	results, err := idx.KNNSearch(ctx, []float64{0.2, 0.0}, 5, func(o *SearchOptions) { o.EF = 1 })
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestDeleteRemovesFromSearches(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(123)

	idx := seeded(t, 3)

	const n = 30
	vecs := rng.BallVectors(n, 3, 0.9)
	for i, v := range vecs {
		require.NoError(t, idx.Insert(ctx, fmt.Sprintf("v%02d", i), v, nil))
	}

	assert.True(t, idx.Delete(ctx, "v07"))
	assert.False(t, idx.Delete(ctx, "v07"))
	assert.Equal(t, n-1, idx.Len())

	for _, v := range vecs {
		results, err := idx.KNNSearch(ctx, v, n, func(o *SearchOptions) { o.EF = n })
		require.NoError(t, err)

		for _, r := range results {
			assert.NotEqual(t, "v07", r.ID)
		}
	}

	_, ok := idx.Get("v07")
	assert.False(t, ok)
}

func TestDeleteEntryPointReassignsDeterministically(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	require.NoError(t, idx.Insert(ctx, "m", []float64{0.1, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "z", []float64{0.2, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "a", []float64{0.3, 0.0}, nil))

	// First insert is the entry point; deleting it promotes the lowest
	// remaining id.
	assert.Equal(t, "m", idx.Stats().EntryPoint)

	assert.True(t, idx.Delete(ctx, "m"))
	assert.Equal(t, "a", idx.Stats().EntryPoint)

	results, err := idx.KNNSearch(ctx, []float64{0.2, 0.0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "z", results[0].ID)
}

func TestDeleteAllThenReinsert(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "b", []float64{0.2, 0.0}, nil))

	assert.True(t, idx.Delete(ctx, "a"))
	assert.True(t, idx.Delete(ctx, "b"))
	assert.Equal(t, 0, idx.Len())

	results, err := idx.KNNSearch(ctx, []float64{0.1, 0.0}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, idx.Insert(ctx, "c", []float64{0.3, 0.0}, nil))

	results, err = idx.KNNSearch(ctx, []float64{0.3, 0.0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].ID)
}

func TestUpdateReplacesVector(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "b", []float64{0.5, 0.0}, nil))

	require.NoError(t, idx.Update(ctx, "a", []float64{0.6, 0.0}, map[string]any{"rev": 2}))

	rec, ok := idx.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float64{0.6, 0.0}, rec.Vector)
	assert.Equal(t, map[string]any{"rev": 2}, rec.Metadata)

	results, err := idx.KNNSearch(ctx, []float64{0.55, 0.0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestRecallAgainstBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(2024)

	idx := seeded(t, 8)

	const (
		n = 200
		k = 10
	)

	vecs := rng.BallVectors(n, 8, 0.9)
	for i, v := range vecs {
		require.NoError(t, idx.Insert(ctx, fmt.Sprintf("v%03d", i), v, nil))
	}

	hits, total := 0, 0
	for qi := 0; qi < n; qi += 10 {
		ground, err := idx.BruteSearch(ctx, vecs[qi], k)
		require.NoError(t, err)

		groundIDs := make(map[string]bool, len(ground))
		for _, g := range ground {
			groundIDs[g.ID] = true
		}

		results, err := idx.KNNSearch(ctx, vecs[qi], k, func(o *SearchOptions) { o.EF = n })
		require.NoError(t, err)
		require.Len(t, results, k)

		for _, r := range results {
			total++
			if groundIDs[r.ID] {
				hits++
			}
		}
	}

	precision := float64(hits) / float64(total)
	t.Logf("recall@%d => %f (%d/%d)", k, precision, hits, total)
	assert.GreaterOrEqual(t, precision, 0.99)
}

func TestSeededGraphsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(555)

	vecs := rng.BallVectors(40, 3, 0.9)

	build := func() *Index {
		idx := seeded(t, 3)
		for i, v := range vecs {
			require.NoError(t, idx.Insert(ctx, fmt.Sprintf("v%02d", i), v, nil))
		}
		return idx
	}

	a, b := build(), build()

	assert.Equal(t, a.Stats(), b.Stats())

	query := vecs[17]
	ra, err := a.KNNSearch(ctx, query, 5)
	require.NoError(t, err)
	rb, err := b.KNNSearch(ctx, query, 5)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	idx := seeded(t, 2)

	assert.Equal(t, Stats{}, idx.Stats())

	require.NoError(t, idx.Insert(ctx, "a", []float64{0.1, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "b", []float64{0.2, 0.0}, nil))
	require.NoError(t, idx.Insert(ctx, "c", []float64{0.3, 0.0}, nil))

	s := idx.Stats()
	assert.Equal(t, 3, s.NumVectors)
	assert.Equal(t, "a", s.EntryPoint)
	assert.Greater(t, s.NumConnections, 0)
	assert.InDelta(t, float64(s.NumConnections)/3, s.AvgConnections, 1e-12)
}

func TestCustomKernel(t *testing.T) {
	ctx := context.Background()

	idx, err := New(2, func(o *Options) {
		o.Kernel = kernel.Euclidean
	})
	require.NoError(t, err)

	// Euclidean kernels accept points outside the unit ball.
	require.NoError(t, idx.Insert(ctx, "far", []float64{10, 0}, nil))
	require.NoError(t, idx.Insert(ctx, "near", []float64{1, 0}, nil))

	results, err := idx.KNNSearch(ctx, []float64{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].ID)
	assert.InDelta(t, 1, results[0].Distance, 1e-12)
}
