package query

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/gyrodb/gyro/kernel"
	"github.com/gyrodb/gyro/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinPair struct {
	lid, rid string
	distance float64
}

func collectPairs(t *testing.T, rows []Row) []joinPair {
	t.Helper()

	pairs := make([]joinPair, len(rows))
	for i, row := range rows {
		pairs[i] = joinPair{
			lid:      row["lid"].(string),
			rid:      row["rid"].(string),
			distance: row[ColJoinDistance].(float64),
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].lid != pairs[j].lid {
			return pairs[i].lid < pairs[j].lid
		}
		return pairs[i].rid < pairs[j].rid
	})

	return pairs
}

func seedJoinTables(storage *MemStorage) {
	rng := testutil.NewRNG(31337)

	for i, v := range rng.BallVectors(15, 3, 0.9) {
		storage.Insert("left", Row{"lid": fmt.Sprintf("l%02d", i), ColPoint: v})
	}
	for i, v := range rng.BallVectors(12, 3, 0.9) {
		storage.Insert("right", Row{"rid": fmt.Sprintf("r%02d", i), ColPoint: v})
	}
}

func TestVectorizedJoinMatchesScalar(t *testing.T) {
	ctx := context.Background()
	registry := kernel.NewRegistry()

	storage := NewMemStorage()
	seedJoinTables(storage)

	plan := &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 1.5,
	}

	scalarRows, err := NewExecutor(storage, registry).Materialize(ctx, plan)
	require.NoError(t, err)
	require.NotEmpty(t, scalarRows)

	batchedRows, err := NewVectorizedExecutor(storage, registry).Materialize(ctx, plan)
	require.NoError(t, err)

	scalarPairs := collectPairs(t, scalarRows)
	batchedPairs := collectPairs(t, batchedRows)
	require.Len(t, batchedPairs, len(scalarPairs))

	for i, sp := range scalarPairs {
		bp := batchedPairs[i]
		assert.Equal(t, sp.lid, bp.lid)
		assert.Equal(t, sp.rid, bp.rid)
		assert.InDelta(t, sp.distance, bp.distance, 1e-6)
	}
}

func TestVectorizedJoinLeftMajorOrder(t *testing.T) {
	ctx := context.Background()

	storage := NewMemStorage()
	storage.Insert("left",
		Row{"lid": "l0", ColPoint: []float64{0.1, 0}},
		Row{"lid": "l1", ColPoint: []float64{0.2, 0}},
	)
	storage.Insert("right",
		Row{"rid": "r0", ColPoint: []float64{0.1, 0}},
		Row{"rid": "r1", ColPoint: []float64{0.2, 0}},
	)

	rows, err := NewVectorizedExecutor(storage, kernel.NewRegistry()).Materialize(ctx, &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "l0", rows[0]["lid"])
	assert.Equal(t, "r0", rows[0]["rid"])
	assert.Equal(t, "r1", rows[1]["rid"])
	assert.Equal(t, "l1", rows[2]["lid"])
}

func TestVectorizationDisabledFallsBack(t *testing.T) {
	ctx := context.Background()
	registry := kernel.NewRegistry()

	storage := NewMemStorage()
	seedJoinTables(storage)

	plan := &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 1.5,
	}

	batched, err := NewVectorizedExecutor(storage, registry).Materialize(ctx, plan)
	require.NoError(t, err)

	disabled, err := NewVectorizedExecutor(storage, registry, func(o *VectorizedOptions) {
		o.DisableVectorization = true
	}).Materialize(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, collectPairs(t, batched), collectPairs(t, disabled))
}

func TestScalarOnlyKernelFallsBack(t *testing.T) {
	ctx := context.Background()

	registry := kernel.NewRegistry()
	registry.Register("manhattan", func(a, b []float64) float64 {
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			if d < 0 {
				d = -d
			}
			sum += d
		}
		return sum
	})

	storage := NewMemStorage()
	storage.Insert("left", Row{"lid": "l0", ColPoint: []float64{0.1, 0}})
	storage.Insert("right",
		Row{"rid": "r0", ColPoint: []float64{0.2, 0}},
		Row{"rid": "r1", ColPoint: []float64{0.9, 0}},
	)

	rows, err := NewVectorizedExecutor(storage, registry).Materialize(ctx, &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 0.2,
		Kernel:    "manhattan",
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "r0", rows[0]["rid"])
	assert.InDelta(t, 0.1, rows[0][ColJoinDistance].(float64), 1e-12)
}

func TestHeterogeneousDimensionsFallBack(t *testing.T) {
	ctx := context.Background()
	registry := kernel.NewRegistry()

	storage := NewMemStorage()
	storage.Insert("left",
		Row{"lid": "l0", ColPoint: []float64{0.1, 0}},
		Row{"lid": "l1", ColPoint: []float64{0.1, 0, 0}},
	)
	storage.Insert("right",
		Row{"rid": "r0", ColPoint: []float64{0.2, 0}},
	)

	plan := &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 10,
	}

	batched, err := NewVectorizedExecutor(storage, registry).Materialize(ctx, plan)
	require.NoError(t, err)

	scalar, err := NewExecutor(storage, registry).Materialize(ctx, plan)
	require.NoError(t, err)

	// Mixed dimensions force the scalar nested loop: the 3-d left row is
	// skipped against the 2-d right point in both modes.
	require.Len(t, scalar, 1)
	assert.Equal(t, collectPairs(t, batched), collectPairs(t, scalar))
}

func TestHeterogeneousFallbackScansChildrenOnce(t *testing.T) {
	ctx := context.Background()

	mem := NewMemStorage()
	mem.Insert("left",
		Row{"lid": "l0", ColPoint: []float64{0.1, 0}},
		Row{"lid": "l1", ColPoint: []float64{0.1, 0, 0}},
	)
	mem.Insert("right", Row{"rid": "r0", ColPoint: []float64{0.2, 0}})

	counting := &countingStorage{inner: mem}
	e := NewVectorizedExecutor(counting, kernel.NewRegistry())

	rows, err := e.Materialize(ctx, &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "right"},
		Threshold: 10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "l0", rows[0]["lid"])

	// The fallback joins the rows drained up front; neither side is
	// scanned a second time.
	assert.Equal(t, 3, counting.yielded)
}

func TestVectorizedJoinEmptySides(t *testing.T) {
	ctx := context.Background()
	registry := kernel.NewRegistry()

	storage := NewMemStorage()
	storage.Insert("left", Row{"lid": "l0", ColPoint: []float64{0.1, 0}})

	rows, err := NewVectorizedExecutor(storage, registry).Materialize(ctx, &GeodesicJoinNode{
		Left:      &ScanNode{Table: "left"},
		Right:     &ScanNode{Table: "empty"},
		Threshold: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
