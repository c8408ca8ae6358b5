package query

import (
	"context"

	"github.com/gyrodb/gyro/kernel"
	"gonum.org/v1/gonum/mat"
)

// VectorizedOptions configures the VectorizedExecutor.
type VectorizedOptions struct {
	// DisableVectorization forces every geodesic join down the scalar
	// nested-loop path.
	DisableVectorization bool
}

// VectorizedExecutor is an Executor that overrides only the geodesic join
// evaluation strategy: both sides are materialized, the point columns are
// packed into dense matrices, and the full pairwise distance matrix is
// computed with the kernel's batched form before threshold filtering.
//
// The batched path yields exactly the same (left, right) pairs as the
// scalar nested loop, with distances agreeing within floating-point
// tolerance. When the kernel has no pairwise form, vectorization is
// disabled, or the point columns are not of uniform dimension, it falls
// back to the scalar path.
type VectorizedExecutor struct {
	*Executor

	disabled bool
}

// NewVectorizedExecutor creates a vectorized executor over the given
// storage and kernels.
func NewVectorizedExecutor(storage Storage, kernels *kernel.Registry, optFns ...func(o *VectorizedOptions)) *VectorizedExecutor {
	var opts VectorizedOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	v := &VectorizedExecutor{
		Executor: NewExecutor(storage, kernels),
		disabled: opts.DisableVectorization,
	}
	v.Executor.geodesicJoin = v.batchedGeodesicJoin

	return v
}

func (v *VectorizedExecutor) batchedGeodesicJoin(n *GeodesicJoinNode, left, right compiled, kernelName string, fn kernel.Func) compiled {
	scalar := v.Executor.scalarGeodesicJoin(n, left, right, kernelName, fn)

	pairwise, ok := v.kernels.Pairwise(kernelName)
	if v.disabled || !ok {
		return scalar
	}

	leftCol, rightCol := joinColumns(n)

	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			leftRows, err := drain(left(ctx))
			if err != nil {
				yield(nil, err)
				return
			}

			rightRows, err := drain(right(ctx))
			if err != nil {
				yield(nil, err)
				return
			}

			leftPoints, leftIdx, leftOK := extractPoints(leftRows, leftCol)
			rightPoints, rightIdx, rightOK := extractPoints(rightRows, rightCol)

			uniform := leftOK && rightOK &&
				(len(leftPoints) == 0 || len(rightPoints) == 0 ||
					len(leftPoints[0]) == len(rightPoints[0]))

			if !uniform {
				// Heterogeneous point dimensions cannot be packed into a
				// dense matrix; run the rows already drained through the
				// scalar nested loop rather than re-scanning the children.
				for _, lrow := range leftRows {
					lp, ok := pointColumn(lrow, leftCol)
					if !ok {
						continue
					}

					for _, rrow := range rightRows {
						rp, ok := pointColumn(rrow, rightCol)
						if !ok || len(rp) != len(lp) {
							continue
						}

						d := fn(lp, rp)
						if d > n.Threshold {
							continue
						}

						out := mergeRows(lrow, rrow)
						out[ColJoinDistance] = d

						if !yield(out, nil) {
							return
						}
					}
				}

				return
			}

			if len(leftPoints) == 0 || len(rightPoints) == 0 {
				return
			}

			dists := pairwise(packMatrix(leftPoints), packMatrix(rightPoints))

			for i := range leftPoints {
				for j := range rightPoints {
					d := dists.At(i, j)
					if d > n.Threshold {
						continue
					}

					out := mergeRows(leftRows[leftIdx[i]], rightRows[rightIdx[j]])
					out[ColJoinDistance] = d

					if !yield(out, nil) {
						return
					}
				}
			}
		}
	}
}

// extractPoints pulls the usable point vectors out of rows, remembering the
// originating row index of each. uniform is false when two usable points
// disagree on dimension.
func extractPoints(rows []Row, col string) (points [][]float64, idx []int, uniform bool) {
	for i, row := range rows {
		p, ok := pointColumn(row, col)
		if !ok {
			continue
		}

		if len(points) > 0 && len(p) != len(points[0]) {
			return nil, nil, false
		}

		points = append(points, p)
		idx = append(idx, i)
	}

	return points, idx, true
}

func packMatrix(points [][]float64) *mat.Dense {
	dim := len(points[0])

	data := make([]float64, 0, len(points)*dim)
	for _, p := range points {
		data = append(data, p...)
	}

	return mat.NewDense(len(points), dim, data)
}
